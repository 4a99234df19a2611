// player.go - top-level orchestrator: owns VM+Renderer+SynthDriver for one cutscene

package flashback

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// AssetFetcher resolves a cutscene's named assets. Player fetches CMD and
// POL concurrently via errgroup-backed helpers on the caller's behalf;
// SynthDriver does the same for INS/MID slots through InstrumentFetcher.
type AssetFetcher interface {
	FetchCMD(ctx context.Context, name string) ([]byte, error)
	FetchPOL(ctx context.Context, name string) ([]byte, error)
	FetchPRF(ctx context.Context, name string) ([]byte, error)
	InstrumentFetcher
}

// cutscenePRFNames maps a cutscene's base name to the PRF file carrying
// its audio profile. The two rarely match (e.g. INTRO1's audio lives in
// INTROL3.PRF); a name absent from this table is assumed to share the
// cutscene's own base name.
var cutscenePRFNames = map[string]string{
	"INTRO1": "INTROL3",
}

func prfNameForCutscene(cutsceneName string) string {
	if name, ok := cutscenePRFNames[cutsceneName]; ok {
		return name
	}
	return cutsceneName
}

// PlayerState is the coarse playback state surfaced to a host UI.
type PlayerState int

const (
	StateStopped PlayerState = iota
	StatePlaying
	StatePaused
)

// StateChangeFunc is invoked whenever the Player's PlayerState changes.
type StateChangeFunc func(PlayerState)

// MidiStateChangeFunc is invoked with false when Load's
// SynthDriver.LoadForCutscene call fails; it is not invoked otherwise.
type MidiStateChangeFunc func(playing bool)

// ChannelChangeFunc is invoked by MuteChannel and UnmuteChannel, for a host
// channel-mute panel; playing reports whether the Player is in
// StatePlaying. Note changes do not invoke it.
type ChannelChangeFunc func(channel uint8, muted bool, playing bool)

// Player orchestrates a VM, Renderer and SynthDriver as one named
// cutscene's playback session. It holds no asset I/O itself beyond
// calling the host-supplied AssetFetcher.
type Player struct {
	vm       *VM
	renderer *Renderer
	synth    *SynthDriver

	cutscene *Cutscene
	state    PlayerState
	fetcher  AssetFetcher

	onStateChange     StateChangeFunc
	onMidiStateChange MidiStateChangeFunc
	onChannelChange   ChannelChangeFunc

	log *logComponent
}

// NewPlayer wires a fresh Renderer, VM and SynthDriver together. core may
// be nil for a video-only session.
func NewPlayer(core OPL3Core) *Player {
	renderer := NewRenderer()
	vm := NewVM(renderer)
	synth := NewSynthDriver(core)

	p := &Player{
		vm:       vm,
		renderer: renderer,
		synth:    synth,
		log:      newLogComponent("player"),
	}
	vm.OnFrameChange(func(subsceneIdx, frameIdx int) {
		p.log.WithField("subscene", subsceneIdx).Infof("frame change: %d", frameIdx)
	})
	return p
}

// OnStateChange, OnMidiStateChange and OnChannelChange register the
// Player's three host callbacks. Each replaces any previously registered
// callback of its kind.
func (p *Player) OnStateChange(fn StateChangeFunc)         { p.onStateChange = fn }
func (p *Player) OnMidiStateChange(fn MidiStateChangeFunc) { p.onMidiStateChange = fn }
func (p *Player) OnChannelChange(fn ChannelChangeFunc)     { p.onChannelChange = fn }

// Load fetches cutsceneName's CMD and POL assets concurrently, parses
// both, installs the result into the VM, and attempts to load its audio
// profile: the PRF name is resolved from cutsceneName through a fixed
// mapping table (most cutscenes share their own base name; a few, like
// INTRO1, map to a differently-named PRF), then its referenced INS and
// MIDI files are fetched. A failure to load audio is recorded via
// AudioUnavailableError and logged, not returned: visual playback
// proceeds silently.
func (p *Player) Load(ctx context.Context, fetcher AssetFetcher, cutsceneName string) error {
	cmdName := cutsceneName + ".CMD"
	polName := cutsceneName + ".POL"

	cmdData, polData, err := fetchCMDAndPOL(ctx, fetcher, cmdName, polName)
	if err != nil {
		return err
	}

	script, err := ParseCMD(cmdData)
	if err != nil {
		return err
	}
	shapes, palettes, err := ParsePOL(polData)
	if err != nil {
		return err
	}

	cutscene := &Cutscene{
		Name:     cutsceneName,
		Shapes:   shapes,
		Palettes: palettes,
		Script:   script,
	}
	p.cutscene = cutscene
	p.fetcher = fetcher
	p.vm.Load(cutscene)
	p.setState(StateStopped)

	p.synth.Init()
	prfName := prfNameForCutscene(cutsceneName) + ".PRF"
	prfData, err := fetcher.FetchPRF(ctx, prfName)
	if err != nil {
		p.log.Warnf("prf fetch failed for %s: %v", prfName, err)
		return nil
	}
	prf, err := ParsePRF(prfData)
	if err != nil {
		p.log.Warnf("prf parse failed for %s: %v", prfName, err)
		return nil
	}
	if err := p.synth.LoadForCutscene(ctx, prf, fetcher); err != nil {
		p.log.Warnf("audio unavailable: %v", err)
		if p.onMidiStateChange != nil {
			p.onMidiStateChange(false)
		}
	}
	return nil
}

func (p *Player) setState(s PlayerState) {
	p.state = s
	if p.onStateChange != nil {
		p.onStateChange(s)
	}
}

// Play transitions to StatePlaying and starts the synth driver.
func (p *Player) Play() {
	p.setState(StatePlaying)
	p.synth.Play()
}

// Stop transitions to StateStopped and halts the synth driver.
func (p *Player) Stop() {
	p.setState(StateStopped)
	p.synth.Stop()
}

// TogglePlay flips between StatePlaying and StatePaused without
// resetting VM or synth position.
func (p *Player) TogglePlay() {
	if p.state == StatePlaying {
		p.setState(StatePaused)
		p.synth.Stop()
		return
	}
	p.setState(StatePlaying)
	p.synth.Play()
}

// NextFrame advances the VM one frame and renders the result.
func (p *Player) NextFrame() (bool, error) {
	ok, err := p.vm.StepFrame()
	if err != nil {
		return ok, err
	}
	p.renderer.Render()
	return ok, nil
}

// PrevFrame rewinds the VM one frame (via full replay) and renders.
func (p *Player) PrevFrame() error {
	if err := p.vm.PrevFrame(); err != nil {
		return err
	}
	p.renderer.Render()
	return nil
}

// GoToFrame scrubs the VM to the given flattened frame index and renders.
func (p *Player) GoToFrame(index int) error {
	if err := p.vm.GoToFrame(index); err != nil {
		return err
	}
	p.renderer.Render()
	return nil
}

// Reset returns the VM to frame zero and stops playback.
func (p *Player) Reset() error {
	p.Stop()
	return p.GoToFrame(0)
}

// FrameCount returns the total number of frames in the loaded cutscene.
func (p *Player) FrameCount() int {
	if p.cutscene == nil {
		return 0
	}
	return p.cutscene.TotalFrames()
}

// CurrentFrame returns the VM's (subscene, frame) cursor.
func (p *Player) CurrentFrame() (int, int) {
	return p.vm.CurrentFrame()
}

// Framebuffer returns the renderer's current pixel buffer.
func (p *Player) Framebuffer() *Framebuffer {
	return p.renderer.Framebuffer()
}

// SetVolume forwards to the synth driver's volume model.
func (p *Player) SetVolume(level uint8) {
	p.synth.SetVolumeModel(level)
}

// SetLoop forwards to the synth driver's loop flag.
func (p *Player) SetLoop(loop bool) {
	p.synth.SetLoop(loop)
}

// SetAudioEnabled forwards to the synth driver, for hosts that must defer
// audio start until an explicit user gesture.
func (p *Player) SetAudioEnabled(enabled bool) {
	p.synth.SetAudioEnabled(enabled)
}

// GetChannels returns a snapshot of every synth channel's mixing state.
func (p *Player) GetChannels() [opl3InstrumentSlots]ChannelInfo {
	return p.synth.Channels()
}

// SetChannelInstrument hot-swaps channel ch's instrument to the named
// .INS patch, fetched through the AssetFetcher supplied to the most
// recent Load. A failed fetch or parse leaves the current instrument in
// place. A no-op if Load has not been called yet.
func (p *Player) SetChannelInstrument(ctx context.Context, ch uint8, name string) {
	if p.fetcher == nil {
		return
	}
	p.synth.SetChannelInstrument(ctx, p.fetcher, ch, name)
}

// SetChannelOctaveOffset shifts channel ch's played notes by delta
// octaves.
func (p *Player) SetChannelOctaveOffset(ch uint8, delta int) {
	p.synth.SetChannelOctaveOffset(ch, delta)
}

// Seek forwards to the synth driver's chip-level seek.
func (p *Player) Seek(seconds float64) error {
	return p.synth.Seek(seconds)
}

// MuteChannel, UnmuteChannel forward to the synth driver and notify the
// channel-change callback.
func (p *Player) MuteChannel(ch uint8) {
	p.synth.MuteChannel(ch)
	p.notifyChannel(ch, true)
}

func (p *Player) UnmuteChannel(ch uint8) {
	p.synth.UnmuteChannel(ch)
	p.notifyChannel(ch, false)
}

func (p *Player) notifyChannel(ch uint8, muted bool) {
	if p.onChannelChange != nil {
		p.onChannelChange(ch, muted, p.state == StatePlaying)
	}
}

// RenderAudio fills out with the next block of synth audio.
func (p *Player) RenderAudio(out []float32) {
	p.synth.RenderSamples(out)
}

// fetchCMDAndPOL fetches a cutscene's two required assets concurrently,
// returning as soon as either fails.
func fetchCMDAndPOL(ctx context.Context, fetcher AssetFetcher, cmdName, polName string) (cmdData, polData []byte, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cmdData, err = fetcher.FetchCMD(gctx, cmdName)
		return err
	})
	g.Go(func() error {
		var err error
		polData, err = fetcher.FetchPOL(gctx, polName)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return cmdData, polData, nil
}
