// Package sftptarget deploys files over SFTP. An SSH connection plus SFTP
// client pair is opened per batch and closed when the batch ends.
package sftptarget

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/vesselworks/shipyard"
	"github.com/vesselworks/shipyard/config"
	"github.com/vesselworks/shipyard/internal/remotepath"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 30 * time.Second
)

type sftpContext struct {
	sshConn *ssh.Client
	client  *sftp.Client
	prefix  string
}

type plugin struct{}

// Factory constructs the sftp plugin.
func Factory(_ context.Context) (shipyard.Plugin, error) {
	return &plugin{}, nil
}

func (p *plugin) CreateContext(_ context.Context, target *config.Target, _ []string) (*shipyard.PluginContext, error) {
	if strings.TrimSpace(target.Host) == "" {
		return nil, fmt.Errorf("target %q: host is required", target.Name)
	}

	auth, err := authMethods(target)
	if err != nil {
		return nil, err
	}

	port := target.Port
	if port == 0 {
		port = defaultPort
	}

	sshCfg := &ssh.ClientConfig{
		User:    target.User,
		Auth:    auth,
		Timeout: defaultDialTimeout,
		// Deploy targets are operator configured; host key pinning is
		// not part of the target schema yet.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
	}

	addr := fmt.Sprintf("%s:%d", target.Host, port)
	sshConn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, fmt.Errorf("target %q: dialing %s: %w", target.Name, addr, err)
	}

	client, err := sftp.NewClient(sshConn)
	if err != nil {
		_ = sshConn.Close()
		return nil, fmt.Errorf("target %q: starting sftp session: %w", target.Name, err)
	}

	state := &sftpContext{
		sshConn: sshConn,
		client:  client,
		prefix:  remotepath.NormalizePrefix(target.Dir),
	}
	return shipyard.NewPluginContext(state, func(_ context.Context) error {
		clientErr := client.Close()
		connErr := sshConn.Close()
		if clientErr != nil {
			return clientErr
		}
		return connErr
	}), nil
}

func authMethods(target *config.Target) ([]ssh.AuthMethod, error) {
	var auth []ssh.AuthMethod

	if target.PrivateKeyPath != "" {
		keyData, err := os.ReadFile(target.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("target %q: reading private key: %w", target.Name, err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("target %q: parsing private key: %w", target.Name, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	if target.Password != "" {
		auth = append(auth, ssh.Password(target.Password))
	}

	if len(auth) == 0 {
		return nil, fmt.Errorf("target %q: a password or private key is required", target.Name)
	}

	return auth, nil
}

func (p *plugin) DeployFile(_ context.Context, pctx *shipyard.PluginContext, file string, target *config.Target, opts *shipyard.FileOptions) shipyard.Result {
	res := shipyard.Result{File: file, Target: target.Name}

	state, ok := pctx.State.(*sftpContext)
	if !ok {
		res.Err = fmt.Errorf("target %q: deploy context is not an sftp context", target.Name)
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

	if dir := path.Dir(key); dir != "." {
		if err = state.client.MkdirAll(dir); err != nil {
			res.Err = shipyard.Transport("sftp mkdir", target, err)
			return res
		}
	}

	if opts.Canceled() {
		res.Canceled = true
		return res
	}

	remote, err := state.client.Create(key)
	if err != nil {
		res.Err = shipyard.Transport("sftp create", target, err)
		return res
	}

	if _, err = remote.Write(data); err != nil {
		_ = remote.Close()
		res.Err = shipyard.Transport("sftp write", target, err)
		return res
	}

	if err = remote.Close(); err != nil {
		res.Err = shipyard.Transport("sftp close", target, err)
		return res
	}

	return res
}
