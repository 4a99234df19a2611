// Command flashbackview plays a decoded Flashback cutscene in a resizable
// window, advancing frames on a timer and accepting next/prev/toggle
// keyboard input.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"flashback"
	"flashback/internal/assets"
	"flashback/internal/config"
	"flashback/internal/debugserver"
)

var (
	cfgPath      string
	assetDir     string
	cutsceneName string
	loop         bool
	debugListen  string
)

func main() {
	root := &cobra.Command{
		Use:   "flashbackview",
		Short: "Play a Flashback cutscene in a window",
		RunE:  runView,
	}
	root.Flags().StringVar(&cfgPath, "config", "", "path to a TOML config file")
	root.Flags().StringVar(&assetDir, "assets", ".", "directory containing CMD/POL/PRF/INS assets")
	root.Flags().StringVarP(&cutsceneName, "cutscene", "c", "", "base name of the cutscene to play (required)")
	root.Flags().BoolVar(&loop, "loop", false, "loop audio playback")
	root.Flags().StringVar(&debugListen, "debug-listen", "", "address for the debug state HTTP endpoint (disabled if empty)")
	root.MarkFlagRequired("cutscene")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runView(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.AssetDir != "" {
		assetDir = cfg.AssetDir
	}
	if debugListen == "" {
		debugListen = cfg.Debug.Listen
	}

	logrus.WithField("cutscene", cutsceneName).Info("starting flashbackview")

	fetcher := &assets.DirFetcher{Dir: assetDir}
	core, err := newAudioCore()
	if err != nil {
		logrus.WithField("component", "audio").Warnf("audio unavailable: %v", err)
	}

	player := flashback.NewPlayer(core)
	ctx := context.Background()
	if err := player.Load(ctx, fetcher, cutsceneName); err != nil {
		return fmt.Errorf("load cutscene: %w", err)
	}
	player.SetLoop(loop)
	player.SetVolume(200)

	dbg := debugserver.New(player, debugListen)
	dbg.Start()
	defer dbg.Close()

	game := &viewerGame{player: player, loop: loop, tick: time.Now()}

	ebiten.SetWindowSize(256*3, 224*3)
	ebiten.SetWindowTitle("flashbackview - " + cutsceneName)
	ebiten.SetWindowResizable(true)
	return ebiten.RunGame(game)
}

// viewerGame adapts Player to the ebiten.Game interface: Update advances
// the VM on a fixed-rate timer and handles transport keys, Draw blits
// the player's framebuffer.
type viewerGame struct {
	player     *flashback.Player
	loop       bool
	tick       time.Time
	frameEvery time.Duration
	paused     bool
}

func (g *viewerGame) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.player.TogglePlay()
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyRight) {
		if _, err := g.player.NextFrame(); err != nil {
			logrus.WithField("component", "viewer").Warnf("next frame: %v", err)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyLeft) {
		if err := g.player.PrevFrame(); err != nil {
			logrus.WithField("component", "viewer").Warnf("prev frame: %v", err)
		}
	}

	if g.paused {
		return nil
	}
	if g.frameEvery == 0 {
		g.frameEvery = time.Second / 15
	}
	if time.Since(g.tick) < g.frameEvery {
		return nil
	}
	g.tick = time.Now()

	ok, err := g.player.NextFrame()
	if err != nil {
		return err
	}
	if !ok && g.loop {
		return g.player.Reset()
	}
	return nil
}

func (g *viewerGame) Draw(screen *ebiten.Image) {
	fb := g.player.Framebuffer()
	img := ebiten.NewImageFromImage(fb.AsImage())
	screen.DrawImage(img, nil)
}

func (g *viewerGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return 256, 224
}

// newAudioCore opens the default oto playback context if one is
// available on this host. A nil core is a legitimate, silent result:
// Player and SynthDriver treat it as audio-unavailable.
func newAudioCore() (flashback.OPL3Core, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   49716,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4,
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, err
	}
	<-ready
	return newOtoOPL3Core(ctx), nil
}
