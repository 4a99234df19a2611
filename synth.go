// synth.go - audio profile driver: loads instruments, drives an OPL3 core

package flashback

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// OPL3Core is the pluggable chip backend a SynthDriver renders through.
// Implementations range from a software OPL3 emulator to a hardware
// register-write sink; this core never assumes which.
type OPL3Core interface {
	Reset()
	WriteRegister(bank uint8, reg uint8, value uint8)
	NoteOn(channel uint8, block uint8, fnum uint16)
	NoteOff(channel uint8)
	SetVolume(channel uint8, level uint8)
	LoadMIDI(data []byte) error
	Seek(seconds float64) error
	RenderSamples(out []float32)
}

// InstrumentFetcher resolves .INS and .MID asset names to their decoded
// contents. SynthDriver.LoadForCutscene fetches every referenced slot
// concurrently through this interface.
type InstrumentFetcher interface {
	FetchINS(ctx context.Context, name string) ([]byte, error)
	FetchMIDI(ctx context.Context, name string) ([]byte, error)
}

// opl3InstrumentSlots matches the PRF's 16 instrument slots. Only
// channels 0-8 (FM-only, the only ones the original engine's music
// driver actually reaches) are ever wired to real chip output; the rest
// still carry mute/volume/instrument state for host UIs that expect a
// full 16-channel mixer. An OPL3Core is free to ignore NoteOn/SetVolume
// calls above channel 8.
const opl3InstrumentSlots = 16

// ChannelInfo is one channel's host-visible mixing state, as surfaced by
// Player.GetChannels for a VU-meter or channel-mute panel.
type ChannelInfo struct {
	Muted        bool
	Playing      bool
	Volume       uint8
	OctaveOffset int
}

// channelState is the SynthDriver's per-channel mixing and mute state,
// independent of whatever the OPL3Core itself tracks.
type channelState struct {
	instrument   opl3Channel
	muted        bool
	volume       uint8 // 0-63, 63 loudest
	playing      bool
	octaveOffset int
}

// SynthDriver owns instrument loading and playback control for one
// cutscene's audio profile. It never touches the framebuffer or bytecode;
// the Player coordinates it alongside the VM.
type SynthDriver struct {
	core OPL3Core

	mu           sync.Mutex
	channels     [opl3InstrumentSlots]channelState
	prf          *PrfData
	loop         bool
	playing      bool
	audioEnabled bool

	log *logComponent

	pendingErr error // set by LoadForCutscene when audio could not be readied
}

// NewSynthDriver constructs a driver bound to a chip backend. core may be
// nil, in which case every chip call is skipped while per-channel state
// (mute, volume, instruments) is still tracked.
func NewSynthDriver(core OPL3Core) *SynthDriver {
	return &SynthDriver{core: core, audioEnabled: true, log: newLogComponent("synth")}
}

// Init resets the chip to a known state. Safe to call multiple times.
func (s *SynthDriver) Init() {
	if s.core == nil {
		return
	}
	s.core.Reset()
}

// fetchINSWithFallback fetches name, and if that fails and name ends in
// "a", retries with the trailing letter stripped — the original asset set
// carries both forms for some patches (e.g. a variant suffix) and the
// shorter name is the canonical patch.
func fetchINSWithFallback(ctx context.Context, fetcher InstrumentFetcher, name string) ([]byte, error) {
	raw, err := fetcher.FetchINS(ctx, name)
	if err == nil {
		return raw, nil
	}
	if !strings.HasSuffix(name, "a") {
		return nil, err
	}
	alt, altErr := fetcher.FetchINS(ctx, name[:len(name)-1])
	if altErr != nil {
		return nil, err
	}
	return alt, nil
}

// clampVolume clamps a signed velocity-offset computation into the
// channel's 0-63 volume range (63 loudest).
func clampVolume(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 63 {
		return 63
	}
	return uint8(v)
}

// LoadForCutscene fetches and decodes every instrument slot named by prf
// concurrently, translates each into OPL3 register state, installs them
// into the driver's sixteen channel slots, and fetches+loads the PRF's
// referenced MIDI file into the chip backend. A failure on one slot is
// recorded as an InstrumentLoadError and that slot plays silently; the
// call only returns an error when every referenced slot failed, since a
// partially playable cutscene is preferable to none.
func (s *SynthDriver) LoadForCutscene(ctx context.Context, prf *PrfData, fetcher InstrumentFetcher) error {
	s.mu.Lock()
	s.prf = prf
	s.mu.Unlock()

	type result struct {
		slot int
		ch   opl3Channel
		err  error
	}
	results := make([]result, opl3InstrumentSlots)
	var midiData []byte

	g, gctx := errgroup.WithContext(ctx)
	for slot := 0; slot < opl3InstrumentSlots; slot++ {
		slot := slot
		name := prf.Instruments[slot]
		if name == "" {
			continue
		}
		g.Go(func() error {
			raw, err := fetchINSWithFallback(gctx, fetcher, name)
			if err != nil {
				results[slot] = result{slot: slot, err: &InstrumentLoadError{Slot: slot, Name: name, Err: err}}
				return nil
			}
			ins, err := ParseINS(raw)
			if err != nil {
				results[slot] = result{slot: slot, err: &InstrumentLoadError{Slot: slot, Name: name, Err: err}}
				return nil
			}
			noteOffset := int(prf.AdlibNotes[slot])
			velocityOffset := int(prf.AdlibVelocities[slot])
			results[slot] = result{slot: slot, ch: TranslateInstrument(ins, noteOffset, velocityOffset)}
			return nil
		})
	}
	if prf.MidiFilename != "" {
		g.Go(func() error {
			data, err := fetcher.FetchMIDI(gctx, prf.MidiFilename)
			if err != nil {
				s.log.WithField("midi", prf.MidiFilename).Warnf("midi fetch failed: %v", err)
				return nil
			}
			midiData = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := 0
	for _, r := range results {
		if r.err != nil {
			s.log.WithField("slot", r.slot).Warnf("instrument load failed: %v", r.err)
			continue
		}
		if r.slot >= opl3InstrumentSlots {
			continue
		}
		s.channels[r.slot].instrument = r.ch
		s.channels[r.slot].volume = clampVolume(63 + r.ch.VelocityOffset)
		loaded++
	}
	if midiData != nil && s.core != nil {
		if err := s.core.LoadMIDI(midiData); err != nil {
			s.log.Warnf("midi load failed for %s: %v", prf.MidiFilename, err)
		}
	}
	if loaded == 0 {
		s.pendingErr = &AudioUnavailableError{Reason: "no instrument slots loaded"}
		return s.pendingErr
	}
	s.pendingErr = nil
	return nil
}

// SetChannelInstrument hot-swaps channel ch's instrument to the named
// .INS patch, fetched and translated through the same fallback and
// note/velocity-offset path LoadForCutscene uses. A failed fetch or parse
// leaves the channel's current instrument in place.
func (s *SynthDriver) SetChannelInstrument(ctx context.Context, fetcher InstrumentFetcher, ch uint8, name string) {
	raw, err := fetchINSWithFallback(ctx, fetcher, name)
	if err != nil {
		s.log.WithField("channel", ch).Warnf("instrument hot-swap fetch failed for %s: %v", name, err)
		return
	}
	ins, err := ParseINS(raw)
	if err != nil {
		s.log.WithField("channel", ch).Warnf("instrument hot-swap parse failed for %s: %v", name, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if int(ch) >= len(s.channels) {
		return
	}
	noteOffset, velocityOffset := 0, 0
	if s.prf != nil {
		noteOffset = int(s.prf.AdlibNotes[ch])
		velocityOffset = int(s.prf.AdlibVelocities[ch])
	}
	s.channels[ch].instrument = TranslateInstrument(ins, noteOffset, velocityOffset)
}

// SetChannelOctaveOffset shifts channel ch's played notes by delta
// octaves, independent of the instrument's own PRF-supplied note_offset.
func (s *SynthDriver) SetChannelOctaveOffset(ch uint8, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(ch) >= len(s.channels) {
		return
	}
	s.channels[ch].octaveOffset = delta
}

// Channels returns a snapshot of every channel's host-visible mixing
// state for Player.GetChannels.
func (s *SynthDriver) Channels() [opl3InstrumentSlots]ChannelInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [opl3InstrumentSlots]ChannelInfo
	for i, cs := range s.channels {
		out[i] = ChannelInfo{
			Muted:        cs.muted,
			Playing:      cs.playing,
			Volume:       cs.volume,
			OctaveOffset: cs.octaveOffset,
		}
	}
	return out
}

// Play starts chip playback from the current position.
func (s *SynthDriver) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
}

// Stop halts chip playback and silences every channel.
func (s *SynthDriver) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	if s.core == nil {
		return
	}
	for ch := range s.channels {
		s.core.NoteOff(uint8(ch))
		s.channels[ch].playing = false
	}
}

// Seek scrubs the chip backend's MIDI playback position; a nil core is a
// safe no-op.
func (s *SynthDriver) Seek(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.core == nil {
		return nil
	}
	return s.core.Seek(seconds)
}

// SetLoop records the loop flag. Only the flag is stored: nothing in
// SynthDriver reads it, and playback does not wrap at TotalDurationTicks.
func (s *SynthDriver) SetLoop(loop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop = loop
}

// SetAudioEnabled toggles whether the driver renders audio at all,
// independent of Play/Stop transport state. A host disables this when the
// platform requires an explicit user gesture before audio may start.
func (s *SynthDriver) SetAudioEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioEnabled = enabled
}

// SetVolumeModel sets every channel's stored volume to level (0-255,
// linear) mapped onto 0-63, replacing each channel's previous volume
// rather than scaling it, to match the host's overall audio volume.
func (s *SynthDriver) SetVolumeModel(level uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scaled := uint8((uint16(level) * 63) / 255)
	for ch := range s.channels {
		s.channels[ch].volume = scaled
		if s.core != nil {
			s.core.SetVolume(uint8(ch), scaled)
		}
	}
}

// MuteChannel silences one channel without affecting its stored volume.
func (s *SynthDriver) MuteChannel(ch uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(ch) >= len(s.channels) {
		return
	}
	s.channels[ch].muted = true
	if s.core != nil {
		s.core.NoteOff(ch)
	}
}

// UnmuteChannel re-enables a previously muted channel.
func (s *SynthDriver) UnmuteChannel(ch uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(ch) >= len(s.channels) {
		return
	}
	s.channels[ch].muted = false
}

// NoteOn starts a note on channel ch using that channel's loaded
// instrument, resolving note+detune through fNumForNote after applying
// the channel's octave offset and the instrument's (block-wrapped) PRF
// note_offset. A muted channel, a disabled-audio driver, or one with no
// loaded instrument is a silent no-op.
func (s *SynthDriver) NoteOn(ch uint8, note int, detuneCents int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.core == nil || int(ch) >= len(s.channels) {
		return
	}
	cs := &s.channels[ch]
	if cs.muted || !s.audioEnabled {
		return
	}
	shifted := note + cs.octaveOffset*12
	offset := wrapNoteOffset(shifted, cs.instrument.NoteOffset)
	block, fnum := fNumForNote(shifted+offset, detuneCents)
	s.core.NoteOn(ch, block, fnum)
	cs.playing = true
}

// NoteOff releases the note currently playing on channel ch.
func (s *SynthDriver) NoteOff(ch uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.core == nil || int(ch) >= len(s.channels) {
		return
	}
	s.core.NoteOff(ch)
	s.channels[ch].playing = false
}

// RenderSamples fills out with the chip's next block of audio, or
// silence when playback is stopped, audio is disabled, or no chip is
// attached.
func (s *SynthDriver) RenderSamples(out []float32) {
	s.mu.Lock()
	playing := s.playing && s.audioEnabled
	core := s.core
	s.mu.Unlock()

	if !playing || core == nil {
		for i := range out {
			out[i] = 0
		}
		return
	}
	core.RenderSamples(out)
}
