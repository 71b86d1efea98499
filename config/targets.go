package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Known deploy target types.
const (
	TargetTypeS3Bucket  = "s3bucket"
	TargetTypeBlobStore = "blobstore"
	TargetTypeFTP       = "ftp"
	TargetTypeSFTP      = "sftp"
	TargetTypeZip       = "zip"
	TargetTypeScript    = "script"
	TargetTypeTest      = "test"
)

var knownTargetTypes = map[string]bool{
	TargetTypeS3Bucket:  true,
	TargetTypeBlobStore: true,
	TargetTypeFTP:       true,
	TargetTypeSFTP:      true,
	TargetTypeZip:       true,
	TargetTypeScript:    true,
	TargetTypeTest:      true,
}

// Target describes a single deploy destination. A target is immutable for
// the duration of a deployment batch.
type Target struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	// Dir is the remote directory prefix applied to every destination key.
	Dir string `yaml:"dir,omitempty"`

	// s3bucket fields.
	Bucket    string `yaml:"bucket,omitempty"`
	ACL       string `yaml:"acl,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`

	// blobstore fields.
	URL string `yaml:"url,omitempty"`

	// ftp / sftp fields.
	Host           string `yaml:"host,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	User           string `yaml:"user,omitempty"`
	Password       string `yaml:"password,omitempty"`
	PrivateKeyPath string `yaml:"private_key_path,omitempty"`

	// zip fields.
	Out string `yaml:"out,omitempty"`

	// script fields.
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
}

// Validate checks the fields every target shares regardless of type.
func (t *Target) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("target has no name")
	}

	if !knownTargetTypes[t.Type] {
		return fmt.Errorf("target %q: unknown type %q", t.Name, t.Type)
	}

	return nil
}

type targetsManifest struct {
	Targets []Target `yaml:"targets"`
}

// LoadTargets reads the targets manifest at path.
func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading targets manifest %q: %w", path, err)
	}

	var manifest targetsManifest
	if err = yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing targets manifest %q: %w", path, err)
	}

	for i := range manifest.Targets {
		if err = manifest.Targets[i].Validate(); err != nil {
			return nil, err
		}
	}

	return manifest.Targets, nil
}

// FindTarget returns the target with the given name from the supplied list.
func FindTarget(targets []Target, name string) (*Target, error) {
	for i := range targets {
		if targets[i].Name == name {
			return &targets[i], nil
		}
	}

	return nil, fmt.Errorf("no target named %q is configured", name)
}
