// Package blobstore deploys files to any bucket addressable by a storage
// URL, e.g. s3://bucket, file:///var/www or mem://cache.
package blobstore

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// bucket driver
	_ "gocloud.dev/blob/memblob"  // mem:// bucket driver
	_ "gocloud.dev/blob/s3blob"   // s3:// bucket driver

	"github.com/vesselworks/shipyard"
	"github.com/vesselworks/shipyard/config"
	"github.com/vesselworks/shipyard/internal/remotepath"
)

type storeContext struct {
	bucket *blob.Bucket
	prefix string
}

type plugin struct{}

// Factory constructs the blobstore plugin.
func Factory(_ context.Context) (shipyard.Plugin, error) {
	return &plugin{}, nil
}

func (p *plugin) CreateContext(ctx context.Context, target *config.Target, _ []string) (*shipyard.PluginContext, error) {
	if strings.TrimSpace(target.URL) == "" {
		return nil, fmt.Errorf("target %q: bucket url is required", target.Name)
	}

	bucket, err := blob.OpenBucket(ctx, target.URL)
	if err != nil {
		return nil, fmt.Errorf("target %q: opening bucket %q: %w", target.Name, target.URL, err)
	}

	state := &storeContext{
		bucket: bucket,
		prefix: remotepath.NormalizePrefix(target.Dir),
	}
	return shipyard.NewPluginContext(state, func(_ context.Context) error {
		return bucket.Close()
	}), nil
}

func (p *plugin) DeployFile(ctx context.Context, pctx *shipyard.PluginContext, file string, target *config.Target, opts *shipyard.FileOptions) shipyard.Result {
	res := shipyard.Result{File: file, Target: target.Name}

	state, ok := pctx.State.(*storeContext)
	if !ok {
		res.Err = fmt.Errorf("target %q: deploy context is not a blob store context", target.Name)
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

	if err = state.bucket.WriteAll(ctx, key, data, nil); err != nil {
		res.Err = shipyard.Transport("blob write", target, err)
		return res
	}

	return res
}
