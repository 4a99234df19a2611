// Package assets provides a filesystem-backed flashback.AssetFetcher for
// the cmd/ host binaries.
package assets

import (
	"context"
	"os"
	"path/filepath"

	"flashback"
)

// DirFetcher satisfies flashback.AssetFetcher by reading CMD/POL/PRF/INS
// files straight off disk from one asset directory.
type DirFetcher struct {
	Dir string
}

func (d *DirFetcher) read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(d.Dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &flashback.AssetNotFoundError{Name: name}
		}
		return nil, err
	}
	return data, nil
}

func (d *DirFetcher) FetchCMD(ctx context.Context, name string) ([]byte, error)  { return d.read(name) }
func (d *DirFetcher) FetchPOL(ctx context.Context, name string) ([]byte, error)  { return d.read(name) }
func (d *DirFetcher) FetchPRF(ctx context.Context, name string) ([]byte, error)  { return d.read(name) }
func (d *DirFetcher) FetchINS(ctx context.Context, name string) ([]byte, error)  { return d.read(name) }
func (d *DirFetcher) FetchMIDI(ctx context.Context, name string) ([]byte, error) { return d.read(name) }
