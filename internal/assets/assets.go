// Package assets keeps a local copy of the Leaflet distribution the map
// pages are rendered against.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mohammed-shakir/wbd-map/internal/core/observability"
)

const (
	JS  = "leaflet.js"
	CSS = "leaflet.css"
)

var Files = []string{JS, CSS}

var ErrInstall = errors.New("mapping library install failed")

const maxAsset = 8 << 20

type Installer struct {
	dir    string
	cdn    string
	client *http.Client
	logger *slog.Logger
}

func New(dir, cdn string, client *http.Client, logger *slog.Logger) *Installer {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Installer{
		dir:    dir,
		cdn:    strings.TrimRight(cdn, "/"),
		client: client,
		logger: logger,
	}
}

func (i *Installer) Dir() string { return i.dir }

// Ensure downloads every missing file. Files already present are left alone.
func (i *Installer) Ensure(ctx context.Context) error {
	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrInstall, i.dir, err)
	}
	for _, name := range Files {
		path := filepath.Join(i.dir, name)
		fi, err := os.Stat(path)
		if err == nil && fi.Size() > 0 {
			continue
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: stat %s: %w", ErrInstall, path, err)
		}
		i.logger.InfoContext(ctx, "installing mapping library file", "file", name, "from", i.cdn)
		err = i.fetch(ctx, name, path)
		observability.IncAssetInstall(name, err)
		if err != nil {
			return err
		}
	}
	return nil
}

// Read returns the content of an installed file.
func (i *Installer) Read(name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(i.dir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", name, err)
	}
	return b, nil
}

func (i *Installer) fetch(ctx context.Context, name, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.cdn+"/"+name, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInstall, name, err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInstall, name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %d", ErrInstall, name, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(i.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInstall, name, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxAsset+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	switch {
	case err != nil:
		return fmt.Errorf("%w: %s: %w", ErrInstall, name, err)
	case n == 0:
		return fmt.Errorf("%w: %s: empty body", ErrInstall, name)
	case n > maxAsset:
		return fmt.Errorf("%w: %s: larger than %d bytes", ErrInstall, name, maxAsset)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInstall, name, err)
	}
	return nil
}
