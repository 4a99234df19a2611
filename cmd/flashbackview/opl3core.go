package main

import (
	"math"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

const oplSampleRate = 49716

// oplVoice is one melodic channel's oscillator state: a two-operator FM
// pair reduced to carrier frequency plus a fixed modulation index, since
// this core renders for preview/playback rather than bit-accurate
// chip emulation.
type oplVoice struct {
	active   bool
	freqHz   float64
	phase    float64
	modPhase float64
	modRatio float64
	modDepth float64
	volume   float64
}

func blockFnumToHz(block uint8, fnum uint16) float64 {
	return float64(fnum) * 49716.0 / math.Exp2(float64(20-int(block)))
}

// otoOPL3Core is a minimal software FM synth driven through oto, grounded
// on the teacher's OtoPlayer: an atomic snapshot of voice state is read
// lock-free from oto's own pull callback, while register/note writes take
// a mutex and install a fresh snapshot.
type otoOPL3Core struct {
	ctx    *oto.Context
	player *oto.Player

	voices atomic.Pointer[[9]oplVoice]

	mutex     sync.Mutex
	started   bool
	sampleN   uint64
	midi      []byte
	seekToSec float64
}

func newOtoOPL3Core(ctx *oto.Context) *otoOPL3Core {
	c := &otoOPL3Core{ctx: ctx}
	var zero [9]oplVoice
	c.voices.Store(&zero)
	c.player = ctx.NewPlayer(c)
	c.player.Play()
	c.started = true
	return c
}

func (c *otoOPL3Core) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var zero [9]oplVoice
	c.voices.Store(&zero)
}

// WriteRegister is accepted for interface completeness; this core derives
// voice state from NoteOn/NoteOff/SetVolume rather than a raw OPL3
// register file.
func (c *otoOPL3Core) WriteRegister(bank, reg, value uint8) {}

func (c *otoOPL3Core) NoteOn(channel uint8, block uint8, fnum uint16) {
	if int(channel) >= 9 {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	cur := *c.voices.Load()
	cur[channel] = oplVoice{
		active:   true,
		freqHz:   blockFnumToHz(block, fnum),
		modRatio: 2,
		modDepth: 1.5,
		volume:   cur[channel].volume,
	}
	if cur[channel].volume == 0 {
		cur[channel].volume = 0.6
	}
	c.voices.Store(&cur)
}

func (c *otoOPL3Core) NoteOff(channel uint8) {
	if int(channel) >= 9 {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	cur := *c.voices.Load()
	cur[channel].active = false
	c.voices.Store(&cur)
}

func (c *otoOPL3Core) SetVolume(channel uint8, level uint8) {
	if int(channel) >= 9 {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	cur := *c.voices.Load()
	cur[channel].volume = float64(level) / 63.0
	c.voices.Store(&cur)
}

// LoadMIDI stores the raw SMF bytes for later playback. This core is a
// test-tone approximation rather than a sequencer: it records the data so
// a caller can confirm the load path ran, but does not drive NoteOn/
// NoteOff from it.
func (c *otoOPL3Core) LoadMIDI(data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.midi = data
	return nil
}

// Seek records the requested playback position. With no sequencer behind
// this core, the next rendered sample still advances from sampleN; a real
// MIDI-driven backend would resume voice state from the seeked position
// instead.
func (c *otoOPL3Core) Seek(seconds float64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.seekToSec = seconds
	return nil
}

// RenderSamples advances the shared sample counter and synthesises one
// block directly, for callers that drive the chip outside oto's pull loop
// (such as a headless PNG exporter checking audio wiring).
func (c *otoOPL3Core) RenderSamples(out []float32) {
	voices := c.voices.Load()
	n := atomic.LoadUint64(&c.sampleN)
	for i := range out {
		out[i] = c.mix(voices, n+uint64(i))
	}
	atomic.AddUint64(&c.sampleN, uint64(len(out)))
}

func (c *otoOPL3Core) mix(voices *[9]oplVoice, sampleIdx uint64) float32 {
	t := float64(sampleIdx) / oplSampleRate
	var sum float64
	for _, v := range voices {
		if !v.active {
			continue
		}
		mod := math.Sin(2*math.Pi*v.freqHz*v.modRatio*t) * v.modDepth
		sum += math.Sin(2*math.Pi*v.freqHz*t+mod) * v.volume
	}
	sum /= 9
	if sum > 1 {
		sum = 1
	}
	if sum < -1 {
		sum = -1
	}
	return float32(sum)
}

// Read implements io.Reader for oto.Context.NewPlayer, producing float32
// little-endian mono samples on demand.
func (c *otoOPL3Core) Read(p []byte) (int, error) {
	numSamples := len(p) / 4
	if numSamples == 0 {
		return 0, nil
	}
	voices := c.voices.Load()
	n := atomic.AddUint64(&c.sampleN, uint64(numSamples)) - uint64(numSamples)

	samples := make([]float32, numSamples)
	for i := range samples {
		samples[i] = c.mix(voices, n+uint64(i))
	}
	copy(p, (*[1 << 30]byte)(unsafe.Pointer(&samples[0]))[:numSamples*4])
	return numSamples * 4, nil
}
