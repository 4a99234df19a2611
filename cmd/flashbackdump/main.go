// Command flashbackdump renders every frame of a cutscene to a sequence
// of PNG files, without opening a window.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"flashback"
	"flashback/internal/assets"
	"flashback/internal/config"
	"flashback/internal/export"
)

var (
	cfgPath      string
	assetDir     string
	cutsceneName string
	outDir       string
	scale        int
	smooth       bool
)

func main() {
	root := &cobra.Command{
		Use:   "flashbackdump",
		Short: "Export every frame of a cutscene as PNG files",
		RunE:  runDump,
	}
	root.Flags().StringVar(&cfgPath, "config", "", "path to a TOML config file")
	root.Flags().StringVar(&assetDir, "assets", ".", "directory containing CMD/POL assets")
	root.Flags().StringVarP(&cutsceneName, "cutscene", "c", "", "base name of the cutscene to export (required)")
	root.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: config export dir)")
	root.Flags().IntVar(&scale, "scale", 0, "upscale factor (default: config export scale)")
	root.Flags().BoolVar(&smooth, "smooth", false, "use smooth (Catmull-Rom) upscaling instead of nearest-neighbour")
	root.MarkFlagRequired("cutscene")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.AssetDir != "" && assetDir == "." {
		assetDir = cfg.AssetDir
	}
	if outDir == "" {
		outDir = cfg.Export.OutputDir
	}
	if scale == 0 {
		scale = cfg.Export.Scale
	}

	log := logrus.WithField("component", "flashbackdump")

	fetcher := &assets.DirFetcher{Dir: assetDir}
	player := flashback.NewPlayer(nil)
	ctx := context.Background()
	if err := player.Load(ctx, fetcher, cutsceneName); err != nil {
		return fmt.Errorf("load cutscene: %w", err)
	}

	total := player.FrameCount()
	destDir := filepath.Join(outDir, cutsceneName)

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))

	for i := 0; i < total; i++ {
		name := fmt.Sprintf("frame_%04d.png", i)
		path, err := export.WritePNG(player.Framebuffer(), destDir, name, scale, smooth)
		if err != nil {
			return fmt.Errorf("export frame %d: %w", i, err)
		}
		if isTTY {
			fmt.Printf("\r[%d/%d] %s", i+1, total, path)
		} else {
			log.WithField("frame", i).Infof("wrote %s", path)
		}
		if i < total-1 {
			if _, err := player.NextFrame(); err != nil {
				return fmt.Errorf("advance to frame %d: %w", i+1, err)
			}
		}
	}
	if isTTY {
		fmt.Println()
	}
	log.WithField("count", total).Info("export complete")
	return nil
}
