package flashback

import (
	"context"
	"testing"
)

type fakeAssetFetcher struct {
	cmd map[string][]byte
	pol map[string][]byte
	prf map[string][]byte
	ins map[string][]byte
}

func (f *fakeAssetFetcher) FetchCMD(ctx context.Context, name string) ([]byte, error) {
	data, ok := f.cmd[name]
	if !ok {
		return nil, &AssetNotFoundError{Name: name}
	}
	return data, nil
}

func (f *fakeAssetFetcher) FetchPOL(ctx context.Context, name string) ([]byte, error) {
	data, ok := f.pol[name]
	if !ok {
		return nil, &AssetNotFoundError{Name: name}
	}
	return data, nil
}

func (f *fakeAssetFetcher) FetchPRF(ctx context.Context, name string) ([]byte, error) {
	data, ok := f.prf[name]
	if !ok {
		return nil, &AssetNotFoundError{Name: name}
	}
	return data, nil
}

func (f *fakeAssetFetcher) FetchINS(ctx context.Context, name string) ([]byte, error) {
	data, ok := f.ins[name]
	if !ok {
		return nil, &AssetNotFoundError{Name: name}
	}
	return data, nil
}

func (f *fakeAssetFetcher) FetchMIDI(ctx context.Context, name string) ([]byte, error) {
	return nil, &AssetNotFoundError{Name: name}
}

func TestPlayerLoadAndStepFrame(t *testing.T) {
	fetcher := &fakeAssetFetcher{
		cmd: map[string][]byte{"INTRO.CMD": buildTestCMD()},
		pol: map[string][]byte{"INTRO.POL": buildTestPOL()},
	}

	p := NewPlayer(nil)
	if err := p.Load(context.Background(), fetcher, "INTRO"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := p.FrameCount(); got != 2 {
		t.Fatalf("FrameCount() = %d, want 2", got)
	}

	ok, err := p.NextFrame()
	if err != nil || !ok {
		t.Fatalf("NextFrame() = (%v, %v), want (true, nil)", ok, err)
	}
	sub, frame := p.CurrentFrame()
	if sub != 0 || frame != 1 {
		t.Fatalf("cursor = (%d,%d), want (0,1)", sub, frame)
	}
}

func TestPlayerLoadMissingAssetFails(t *testing.T) {
	fetcher := &fakeAssetFetcher{}
	p := NewPlayer(nil)
	if err := p.Load(context.Background(), fetcher, "NOPE"); err == nil {
		t.Fatal("expected error loading missing assets")
	}
}

func TestPlayerStateTransitions(t *testing.T) {
	fetcher := &fakeAssetFetcher{
		cmd: map[string][]byte{"A.CMD": buildTestCMD()},
		pol: map[string][]byte{"A.POL": buildTestPOL()},
	}
	p := NewPlayer(nil)
	var seen []PlayerState
	p.OnStateChange(func(s PlayerState) { seen = append(seen, s) })

	if err := p.Load(context.Background(), fetcher, "A"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p.Play()
	p.TogglePlay()
	p.TogglePlay()
	p.Stop()

	want := []PlayerState{StateStopped, StatePlaying, StatePaused, StatePlaying, StateStopped}
	if len(seen) != len(want) {
		t.Fatalf("got %d state transitions, want %d: %v", len(seen), len(want), seen)
	}
	for i, s := range want {
		if seen[i] != s {
			t.Fatalf("transition %d = %v, want %v", i, seen[i], s)
		}
	}
}

func TestPlayerResetReturnsToFrameZero(t *testing.T) {
	fetcher := &fakeAssetFetcher{
		cmd: map[string][]byte{"A.CMD": buildTestCMD()},
		pol: map[string][]byte{"A.POL": buildTestPOL()},
	}
	p := NewPlayer(nil)
	if err := p.Load(context.Background(), fetcher, "A"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := p.NextFrame(); err != nil {
		t.Fatalf("NextFrame failed: %v", err)
	}
	if err := p.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	sub, frame := p.CurrentFrame()
	if sub != 0 || frame != 0 {
		t.Fatalf("cursor after Reset = (%d,%d), want (0,0)", sub, frame)
	}
}

func TestPlayerLoadDegradesGracefullyWhenMappedPRFMissing(t *testing.T) {
	fetcher := &fakeAssetFetcher{
		cmd: map[string][]byte{"INTRO1.CMD": buildTestCMD()},
		pol: map[string][]byte{"INTRO1.POL": buildTestPOL()},
		prf: map[string][]byte{}, // INTROL3.PRF intentionally absent
	}
	p := NewPlayer(nil)
	var gotMidiState []bool
	p.OnMidiStateChange(func(playing bool) { gotMidiState = append(gotMidiState, playing) })

	if err := p.Load(context.Background(), fetcher, "INTRO1"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// prfNameForCutscene("INTRO1") == "INTROL3": a fetch for "INTRO1.PRF"
	// directly would also 404, so this alone doesn't prove the mapping
	// ran, but it does prove Load never panics or fails visual load when
	// the mapped PRF is absent (graceful audio degradation).
	if len(gotMidiState) != 0 {
		t.Fatalf("onMidiStateChange should not fire for a missing PRF (no LoadForCutscene attempt), got %v", gotMidiState)
	}
	if got := p.FrameCount(); got != 2 {
		t.Fatalf("FrameCount() = %d, want 2", got)
	}
}

func TestPlayerGetChannelsReflectsMuteState(t *testing.T) {
	p := NewPlayer(nil)
	p.MuteChannel(3)
	channels := p.GetChannels()
	if !channels[3].Muted {
		t.Fatal("expected channel 3 to report muted")
	}
	if channels[0].Muted {
		t.Fatal("expected channel 0 to report unmuted")
	}
}
