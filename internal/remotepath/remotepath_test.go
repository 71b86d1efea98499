package remotepath_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vesselworks/shipyard/internal/remotepath"
)

type RemotePathTestSuite struct {
	suite.Suite
}

func TestRemotePathSuite(t *testing.T) {
	suite.Run(t, &RemotePathTestSuite{})
}

func (s *RemotePathTestSuite) TestNormalizePrefix() {
	testCases := []struct {
		name     string
		dir      string
		expected string
	}{
		{name: "plain", dir: "foo/bar", expected: "foo/bar/"},
		{name: "leading separator", dir: "/foo/bar", expected: "foo/bar/"},
		{name: "trailing separator", dir: "/foo/bar/", expected: "foo/bar/"},
		{name: "repeated separators", dir: "//foo/bar//", expected: "foo/bar/"},
		{name: "empty", dir: "", expected: ""},
		{name: "separator only", dir: "/", expected: ""},
		{name: "whitespace", dir: "  site  ", expected: "site/"},
		{name: "backslashes", dir: "\\foo\\bar", expected: "foo/bar/"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Require().Equal(tc.expected, remotepath.NormalizePrefix(tc.dir))
		})
	}
}

func (s *RemotePathTestSuite) TestNormalizePrefixIdempotent() {
	for _, dir := range []string{"/foo/bar/", "foo/bar", "//foo/bar"} {
		once := remotepath.NormalizePrefix(dir)
		s.Require().Equal("foo/bar/", once)
		s.Require().Equal(once, remotepath.NormalizePrefix(once))
	}
}

func (s *RemotePathTestSuite) TestDestinationKey() {
	testCases := []struct {
		name     string
		prefix   string
		baseDir  string
		file     string
		expected string
		wantErr  error
	}{
		{
			name:     "prefixed key",
			prefix:   remotepath.NormalizePrefix("site"),
			baseDir:  "/proj",
			file:     "/proj/a.txt",
			expected: "site/a.txt",
		},
		{
			name:     "nested file",
			prefix:   remotepath.NormalizePrefix("/site/"),
			baseDir:  "/proj",
			file:     "/proj/assets/app.js",
			expected: "site/assets/app.js",
		},
		{
			name:     "no prefix",
			prefix:   remotepath.NormalizePrefix(""),
			baseDir:  "/proj",
			file:     "/proj/b.txt",
			expected: "b.txt",
		},
		{
			name:    "file outside base directory",
			prefix:  "site/",
			baseDir: "/proj",
			file:    "/elsewhere/c.txt",
			wantErr: remotepath.ErrRelativePath,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			key, err := remotepath.DestinationKey(tc.prefix, tc.baseDir, tc.file)
			if tc.wantErr != nil {
				s.Require().ErrorIs(err, tc.wantErr)
				return
			}
			s.Require().NoError(err)
			s.Require().Equal(tc.expected, key)
			s.Require().False(len(key) > 0 && key[0] == '/', "key must never retain a leading separator")
		})
	}
}
