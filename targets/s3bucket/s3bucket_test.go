package s3bucket

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vesselworks/shipyard"
	"github.com/vesselworks/shipyard/config"
)

type S3BucketTestSuite struct {
	suite.Suite
}

func TestS3BucketSuite(t *testing.T) {
	suite.Run(t, &S3BucketTestSuite{})
}

func (s *S3BucketTestSuite) newTarget() *config.Target {
	return &config.Target{
		Name:      "website",
		Type:      config.TargetTypeS3Bucket,
		Bucket:    "my-site",
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
	}
}

func (s *S3BucketTestSuite) TestCreateContextNormalizesSettings() {
	testCases := []struct {
		name           string
		acl            string
		dir            string
		expectedACL    string
		expectedPrefix string
	}{
		{name: "defaults", acl: "", dir: "", expectedACL: DefaultACL, expectedPrefix: ""},
		{name: "blank acl falls back", acl: "   ", dir: "site", expectedACL: DefaultACL, expectedPrefix: "site/"},
		{name: "explicit settings", acl: "private", dir: "//a/b//", expectedACL: "private", expectedPrefix: "a/b/"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			target := s.newTarget()
			target.ACL = tc.acl
			target.Dir = tc.dir

			plugin, err := Factory(context.Background())
			s.Require().NoError(err)

			pctx, err := plugin.CreateContext(context.Background(), target, nil)
			s.Require().NoError(err)

			state, ok := pctx.State.(*bucketContext)
			s.Require().True(ok)
			s.Require().Equal(tc.expectedACL, state.acl)
			s.Require().Equal(tc.expectedPrefix, state.prefix)
			s.Require().Equal("my-site", state.bucket)
			s.Require().NotNil(state.client)
		})
	}
}

func (s *S3BucketTestSuite) TestCreateContextRequiresBucket() {
	target := s.newTarget()
	target.Bucket = "  "

	plugin, err := Factory(context.Background())
	s.Require().NoError(err)

	_, err = plugin.CreateContext(context.Background(), target, nil)
	s.Require().Error(err)
}

func (s *S3BucketTestSuite) TestDeployFileRelativePathFailure() {
	plugin, err := Factory(context.Background())
	s.Require().NoError(err)

	target := s.newTarget()
	pctx, err := plugin.CreateContext(context.Background(), target, nil)
	s.Require().NoError(err)

	outside := filepath.Join(s.T().TempDir(), "outside.txt")
	s.Require().NoError(os.WriteFile(outside, []byte("x"), 0o644))

	res := plugin.DeployFile(context.Background(), pctx, outside, target, &shipyard.FileOptions{
		BaseDir: s.T().TempDir(),
	})
	s.Require().ErrorIs(res.Err, shipyard.ErrRelativePath)
	s.Require().False(res.Canceled)
}

func (s *S3BucketTestSuite) TestDeployFileObservesCancellationBeforeNetwork() {
	plugin, err := Factory(context.Background())
	s.Require().NoError(err)

	target := s.newTarget()
	target.Dir = "site"
	pctx, err := plugin.CreateContext(context.Background(), target, nil)
	s.Require().NoError(err)

	baseDir := s.T().TempDir()
	file := filepath.Join(baseDir, "a.txt")
	s.Require().NoError(os.WriteFile(file, []byte("alpha"), 0o644))

	cancel := shipyard.NewCancelFlag()
	cancel.Cancel()

	var hooks []string
	res := plugin.DeployFile(context.Background(), pctx, file, target, &shipyard.FileOptions{
		BaseDir:        baseDir,
		Cancel:         cancel,
		OnBeforeDeploy: func(ev shipyard.Event) { hooks = append(hooks, ev.Destination) },
	})

	s.Require().True(res.Canceled)
	s.Require().NoError(res.Err)
	s.Require().Equal("site/a.txt", res.Destination)
	s.Require().Equal([]string{"site/a.txt"}, hooks, "hook fires before the cancellation checkpoint")
}
