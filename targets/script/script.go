// Package script hands each file to an operator configured command. The
// command receives the file, its destination key and the target name in the
// environment.
package script

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/vesselworks/shipyard"
	"github.com/vesselworks/shipyard/config"
	"github.com/vesselworks/shipyard/internal/remotepath"
)

// Environment variables exported to the command per file.
const (
	EnvFile        = "SHIPYARD_FILE"
	EnvDestination = "SHIPYARD_DESTINATION"
	EnvTarget      = "SHIPYARD_TARGET"
)

type scriptContext struct {
	prefix string
}

type plugin struct{}

// Factory constructs the script plugin.
func Factory(_ context.Context) (shipyard.Plugin, error) {
	return &plugin{}, nil
}

func (p *plugin) CreateContext(_ context.Context, target *config.Target, _ []string) (*shipyard.PluginContext, error) {
	if strings.TrimSpace(target.Command) == "" {
		return nil, fmt.Errorf("target %q: command is required", target.Name)
	}

	return shipyard.NewPluginContext(&scriptContext{
		prefix: remotepath.NormalizePrefix(target.Dir),
	}, nil), nil
}

func (p *plugin) DeployFile(ctx context.Context, pctx *shipyard.PluginContext, file string, target *config.Target, opts *shipyard.FileOptions) shipyard.Result {
	res := shipyard.Result{File: file, Target: target.Name}

	state, ok := pctx.State.(*scriptContext)
	if !ok {
		res.Err = fmt.Errorf("target %q: deploy context is not a script context", target.Name)
		return res
	}

	key, err := remotepath.DestinationKey(state.prefix, opts.BaseDir, file)
	if err != nil {
		res.Err = err
		return res
	}
	res.Destination = key

	opts.BeforeDeploy(shipyard.Event{Destination: key, File: file, Target: target})

	if opts.Canceled() {
		res.Canceled = true
		return res
	}

	cmd := exec.CommandContext(ctx, target.Command, target.Args...)
	cmd.Env = append(os.Environ(),
		EnvFile+"="+file,
		EnvDestination+"="+key,
		EnvTarget+"="+target.Name,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		res.Err = shipyard.Transport("script run", target,
			fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))))
		return res
	}

	return res
}
