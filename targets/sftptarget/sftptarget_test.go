package sftptarget

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vesselworks/shipyard/config"
)

type SFTPTargetTestSuite struct {
	suite.Suite
}

func TestSFTPTargetSuite(t *testing.T) {
	suite.Run(t, &SFTPTargetTestSuite{})
}

func (s *SFTPTargetTestSuite) TestCreateContextRequiresHost() {
	plugin, err := Factory(context.Background())
	s.Require().NoError(err)

	_, err = plugin.CreateContext(context.Background(), &config.Target{
		Name: "upstream",
		Type: config.TargetTypeSFTP,
	}, nil)
	s.Require().Error(err)
}

func (s *SFTPTargetTestSuite) TestAuthMethods() {
	testCases := []struct {
		name     string
		target   *config.Target
		expected int
		wantErr  bool
	}{
		{
			name:     "password only",
			target:   &config.Target{Name: "upstream", Password: "secret"},
			expected: 1,
		},
		{
			name:    "no credentials",
			target:  &config.Target{Name: "upstream"},
			wantErr: true,
		},
		{
			name:    "unreadable key file",
			target:  &config.Target{Name: "upstream", PrivateKeyPath: "/nonexistent/id_ed25519"},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			auth, err := authMethods(tc.target)
			if tc.wantErr {
				s.Require().Error(err)
				return
			}
			s.Require().NoError(err)
			s.Require().Len(auth, tc.expected)
		})
	}
}
