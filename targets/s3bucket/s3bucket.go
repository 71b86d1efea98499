// Package s3bucket deploys files to an S3-compatible object store. One
// client is opened per batch; the bucket is created on first use when it
// does not exist yet.
package s3bucket

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vesselworks/shipyard"
	"github.com/vesselworks/shipyard/config"
	"github.com/vesselworks/shipyard/internal/remotepath"
)

// DefaultACL is applied when the target does not configure one.
const DefaultACL = "public-read"

type bucketContext struct {
	client *minio.Client
	bucket string
	acl    string
	prefix string
}

type plugin struct{}

// Factory constructs the s3bucket plugin.
func Factory(_ context.Context) (shipyard.Plugin, error) {
	return &plugin{}, nil
}

func (p *plugin) CreateContext(_ context.Context, target *config.Target, _ []string) (*shipyard.PluginContext, error) {
	bucket := strings.TrimSpace(target.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("target %q: bucket name is required", target.Name)
	}

	acl := strings.TrimSpace(target.ACL)
	if acl == "" {
		acl = DefaultACL
	}

	client, err := minio.New(target.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(target.AccessKey, target.SecretKey, ""),
		Secure: target.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("target %q: creating s3 client: %w", target.Name, err)
	}

	state := &bucketContext{
		client: client,
		bucket: bucket,
		acl:    acl,
		prefix: remotepath.NormalizePrefix(target.Dir),
	}
	return shipyard.NewPluginContext(state, nil), nil
}

func (p *plugin) DeployFile(ctx context.Context, pctx *shipyard.PluginContext, file string, target *config.Target, opts *shipyard.FileOptions) shipyard.Result {
	res := shipyard.Result{File: file, Target: target.Name}

	state, ok := pctx.State.(*bucketContext)
	if !ok {
		res.Err = fmt.Errorf("target %q: deploy context is not an s3 bucket context", target.Name)
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

	if err = p.ensureBucket(ctx, state); err != nil {
		res.Err = shipyard.Transport("bucket check", target, err)
		return res
	}

	if opts.Canceled() {
		res.Canceled = true
		return res
	}

	_, err = state.client.PutObject(ctx, state.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  "application/octet-stream",
		UserMetadata: map[string]string{"x-amz-acl": state.acl},
	})
	if err != nil {
		res.Err = shipyard.Transport("object upload", target, err)
		return res
	}

	return res
}

// ensureBucket is an idempotent create-if-absent call, tolerant of another
// actor creating the bucket between the existence check and the create.
func (p *plugin) ensureBucket(ctx context.Context, state *bucketContext) error {
	exists, err := state.client.BucketExists(ctx, state.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = state.client.MakeBucket(ctx, state.bucket, minio.MakeBucketOptions{})
	if err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return nil
		}
		return err
	}
	return nil
}
