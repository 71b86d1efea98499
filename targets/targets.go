// Package targets registers every built-in deploy target plugin.
package targets

import (
	"github.com/vesselworks/shipyard"
	"github.com/vesselworks/shipyard/config"
	"github.com/vesselworks/shipyard/targets/blobstore"
	"github.com/vesselworks/shipyard/targets/ftptarget"
	"github.com/vesselworks/shipyard/targets/s3bucket"
	"github.com/vesselworks/shipyard/targets/script"
	"github.com/vesselworks/shipyard/targets/sftptarget"
	"github.com/vesselworks/shipyard/targets/testtarget"
	"github.com/vesselworks/shipyard/targets/ziparchive"
)

// DefaultRegistry binds every built-in target type to its plugin factory.
func DefaultRegistry() *shipyard.Registry {
	r := shipyard.NewRegistry()
	r.Register(config.TargetTypeS3Bucket, s3bucket.Factory)
	r.Register(config.TargetTypeBlobStore, blobstore.Factory)
	r.Register(config.TargetTypeFTP, ftptarget.Factory)
	r.Register(config.TargetTypeSFTP, sftptarget.Factory)
	r.Register(config.TargetTypeZip, ziparchive.Factory)
	r.Register(config.TargetTypeScript, script.Factory)
	r.Register(config.TargetTypeTest, testtarget.New(testtarget.NewStore()))
	return r
}

// DryRunRegistry binds every built-in target type to an in-memory recorder
// so a deployment can be rehearsed without touching any destination.
func DryRunRegistry(store *testtarget.Store) *shipyard.Registry {
	r := shipyard.NewRegistry()
	factory := testtarget.New(store)
	for _, targetType := range []string{
		config.TargetTypeS3Bucket,
		config.TargetTypeBlobStore,
		config.TargetTypeFTP,
		config.TargetTypeSFTP,
		config.TargetTypeZip,
		config.TargetTypeScript,
		config.TargetTypeTest,
	} {
		r.Register(targetType, factory)
	}
	return r
}
