// Package ftptarget deploys files over FTP. One control connection is
// opened per batch and quit when the batch ends.
package ftptarget

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/vesselworks/shipyard"
	"github.com/vesselworks/shipyard/config"
	"github.com/vesselworks/shipyard/internal/remotepath"
)

const (
	defaultPort        = 21
	defaultDialTimeout = 30 * time.Second
)

type ftpContext struct {
	conn   *ftp.ServerConn
	prefix string

	// madeDirs remembers remote directories already ensured this batch.
	madeDirs map[string]bool
}

type plugin struct{}

// Factory constructs the ftp plugin.
func Factory(_ context.Context) (shipyard.Plugin, error) {
	return &plugin{}, nil
}

// Sequential is set because a single FTP control connection cannot carry
// concurrent transfers.
func (p *plugin) Sequential() bool {
	return true
}

func (p *plugin) CreateContext(ctx context.Context, target *config.Target, _ []string) (*shipyard.PluginContext, error) {
	if strings.TrimSpace(target.Host) == "" {
		return nil, fmt.Errorf("target %q: host is required", target.Name)
	}

	port := target.Port
	if port == 0 {
		port = defaultPort
	}

	addr := fmt.Sprintf("%s:%d", target.Host, port)
	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(defaultDialTimeout))
	if err != nil {
		return nil, fmt.Errorf("target %q: dialing %s: %w", target.Name, addr, err)
	}

	if err = conn.Login(target.User, target.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("target %q: login as %q: %w", target.Name, target.User, err)
	}

	state := &ftpContext{
		conn:     conn,
		prefix:   remotepath.NormalizePrefix(target.Dir),
		madeDirs: map[string]bool{},
	}
	return shipyard.NewPluginContext(state, func(_ context.Context) error {
		return conn.Quit()
	}), nil
}

func (p *plugin) DeployFile(_ context.Context, pctx *shipyard.PluginContext, file string, target *config.Target, opts *shipyard.FileOptions) shipyard.Result {
	res := shipyard.Result{File: file, Target: target.Name}

	state, ok := pctx.State.(*ftpContext)
	if !ok {
		res.Err = fmt.Errorf("target %q: deploy context is not an ftp context", target.Name)
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

	ensureDirChain(state, key)

	if opts.Canceled() {
		res.Canceled = true
		return res
	}

	if err = state.conn.Stor(key, bytes.NewReader(data)); err != nil {
		res.Err = shipyard.Transport("ftp store", target, err)
		return res
	}

	return res
}

// ensureDirChain creates every parent directory of key, tolerating ones
// that already exist on the server.
func ensureDirChain(state *ftpContext, key string) {
	segments := strings.Split(key, "/")
	if len(segments) < 2 {
		return
	}

	dir := ""
	for _, segment := range segments[:len(segments)-1] {
		if dir == "" {
			dir = segment
		} else {
			dir = dir + "/" + segment
		}
		if state.madeDirs[dir] {
			continue
		}
		// MakeDir fails when the directory exists; the subsequent Stor
		// surfaces anything genuinely wrong.
		_ = state.conn.MakeDir(dir)
		state.madeDirs[dir] = true
	}
}
