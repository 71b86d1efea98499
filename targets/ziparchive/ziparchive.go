// Package ziparchive deploys files into a local zip archive instead of a
// remote host. The archive is created per batch and finalized when the
// batch ends.
package ziparchive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/vesselworks/shipyard"
	"github.com/vesselworks/shipyard/config"
	"github.com/vesselworks/shipyard/internal/remotepath"
)

type zipContext struct {
	out    *os.File
	writer *zip.Writer
	prefix string
}

type plugin struct{}

// Factory constructs the zip archive plugin.
func Factory(_ context.Context) (shipyard.Plugin, error) {
	return &plugin{}, nil
}

// Sequential is set because a zip writer cannot take entries concurrently.
func (p *plugin) Sequential() bool {
	return true
}

func (p *plugin) CreateContext(_ context.Context, target *config.Target, _ []string) (*shipyard.PluginContext, error) {
	if strings.TrimSpace(target.Out) == "" {
		return nil, fmt.Errorf("target %q: output archive path is required", target.Name)
	}

	out, err := os.Create(target.Out)
	if err != nil {
		return nil, fmt.Errorf("target %q: creating archive %q: %w", target.Name, target.Out, err)
	}

	writer := zip.NewWriter(out)
	writer.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})

	state := &zipContext{
		out:    out,
		writer: writer,
		prefix: remotepath.NormalizePrefix(target.Dir),
	}
	return shipyard.NewPluginContext(state, func(_ context.Context) error {
		writerErr := writer.Close()
		fileErr := out.Close()
		if writerErr != nil {
			return writerErr
		}
		return fileErr
	}), nil
}

func (p *plugin) DeployFile(_ context.Context, pctx *shipyard.PluginContext, file string, target *config.Target, opts *shipyard.FileOptions) shipyard.Result {
	res := shipyard.Result{File: file, Target: target.Name}

	state, ok := pctx.State.(*zipContext)
	if !ok {
		res.Err = fmt.Errorf("target %q: deploy context is not a zip context", target.Name)
		return res
	}

	key, err := remotepath.DestinationKey(state.prefix, opts.BaseDir, file)
	if err != nil {
		res.Err = err
		return res
	}
	res.Destination = key

	opts.BeforeDeploy(shipyard.Event{Destination: key, File: file, Target: target})

	data, err := os.ReadFile(file)
	if err != nil {
		res.Err = fmt.Errorf("reading %q: %w", file, err)
		return res
	}

	if opts.Canceled() {
		res.Canceled = true
		return res
	}

	modified := time.Now()
	if info, statErr := os.Stat(file); statErr == nil {
		modified = info.ModTime()
	}

	entry, err := state.writer.CreateHeader(&zip.FileHeader{
		Name:     key,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		res.Err = shipyard.Transport("archive entry", target, err)
		return res
	}

	if _, err = entry.Write(data); err != nil {
		res.Err = shipyard.Transport("archive write", target, err)
		return res
	}

	return res
}
