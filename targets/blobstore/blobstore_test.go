package blobstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vesselworks/shipyard"
	"github.com/vesselworks/shipyard/config"
	"github.com/vesselworks/shipyard/targets/blobstore"
)

type BlobStoreTestSuite struct {
	suite.Suite
}

func TestBlobStoreSuite(t *testing.T) {
	suite.Run(t, &BlobStoreTestSuite{})
}

func (s *BlobStoreTestSuite) TestDeployToFileBucket() {
	ctx := context.Background()

	baseDir := s.T().TempDir()
	file := filepath.Join(baseDir, "a.txt")
	s.Require().NoError(os.WriteFile(file, []byte("alpha"), 0o644))

	bucketDir := s.T().TempDir()
	target := &config.Target{
		Name: "mirror",
		Type: config.TargetTypeBlobStore,
		URL:  "file://" + bucketDir,
		Dir:  "site",
	}

	plugin, err := blobstore.Factory(ctx)
	s.Require().NoError(err)

	pctx, err := plugin.CreateContext(ctx, target, nil)
	s.Require().NoError(err)

	var before []shipyard.Event
	res := plugin.DeployFile(ctx, pctx, file, target, &shipyard.FileOptions{
		BaseDir:        baseDir,
		OnBeforeDeploy: func(ev shipyard.Event) { before = append(before, ev) },
	})
	s.Require().NoError(res.Err)
	s.Require().Equal("site/a.txt", res.Destination)
	s.Require().Len(before, 1)
	s.Require().Equal("site/a.txt", before[0].Destination)

	s.Require().NoError(pctx.Close(ctx))

	stored, err := os.ReadFile(filepath.Join(bucketDir, "site", "a.txt"))
	s.Require().NoError(err)
	s.Require().Equal("alpha", string(stored))
}

func (s *BlobStoreTestSuite) TestMissingURLFailsContext() {
	ctx := context.Background()
	plugin, err := blobstore.Factory(ctx)
	s.Require().NoError(err)

	_, err = plugin.CreateContext(ctx, &config.Target{Name: "mirror", Type: config.TargetTypeBlobStore}, nil)
	s.Require().Error(err)
}

func (s *BlobStoreTestSuite) TestCanceledFileIsNotWritten() {
	ctx := context.Background()

	baseDir := s.T().TempDir()
	file := filepath.Join(baseDir, "a.txt")
	s.Require().NoError(os.WriteFile(file, []byte("alpha"), 0o644))

	bucketDir := s.T().TempDir()
	target := &config.Target{
		Name: "mirror",
		Type: config.TargetTypeBlobStore,
		URL:  "file://" + bucketDir,
	}

	plugin, err := blobstore.Factory(ctx)
	s.Require().NoError(err)
	pctx, err := plugin.CreateContext(ctx, target, nil)
	s.Require().NoError(err)

	cancel := shipyard.NewCancelFlag()
	cancel.Cancel()

	res := plugin.DeployFile(ctx, pctx, file, target, &shipyard.FileOptions{BaseDir: baseDir, Cancel: cancel})
	s.Require().True(res.Canceled)
	s.Require().NoError(res.Err)
	s.Require().NoError(pctx.Close(ctx))

	_, err = os.Stat(filepath.Join(bucketDir, "a.txt"))
	s.Require().True(os.IsNotExist(err))
}
