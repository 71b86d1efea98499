package ftptarget

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vesselworks/shipyard/config"
)

type FTPTargetTestSuite struct {
	suite.Suite
}

func TestFTPTargetSuite(t *testing.T) {
	suite.Run(t, &FTPTargetTestSuite{})
}

func (s *FTPTargetTestSuite) TestCreateContextRequiresHost() {
	plugin, err := Factory(context.Background())
	s.Require().NoError(err)

	_, err = plugin.CreateContext(context.Background(), &config.Target{
		Name: "upstream",
		Type: config.TargetTypeFTP,
	}, nil)
	s.Require().Error(err)
}

func (s *FTPTargetTestSuite) TestPluginIsSequential() {
	p := &plugin{}
	s.Require().True(p.Sequential())
}
