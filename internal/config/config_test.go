package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mls_syncer/internal/domain"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) write(content string) string {
	path := filepath.Join(s.T().TempDir(), "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (s *ConfigTestSuite) TestLoad_AppliesDefaults() {
	path := s.write(`
database:
  host: localhost
  port: 5432
sources:
  - id: mls-a
    enabled: true
    base_url: https://api.example-mls.com/odata
    credentials:
      api_key: secret
`)

	cfg, err := Load(path)
	s.Require().NoError(err)

	s.Equal(":8080", cfg.Server.Addr)
	s.Equal("info", cfg.LogLevel)
	s.Equal("mls_syncer", cfg.RabbitMQ.Exchange)
	s.Equal(30*time.Second, cfg.Media.DownloadTimeout)

	s.Require().Len(cfg.Sources, 1)
	src := cfg.Sources[0]
	s.Equal("hourly", src.Cadence)
	s.Equal([]string{"Active", "Pending", "Under Contract", "Sold"}, src.StatusFilter)
	s.Equal(200, src.FetchLimit)
	s.Equal(4, src.Workers)
}

func (s *ConfigTestSuite) TestLoad_NegativeWorkersFallBackToDefault() {
	path := s.write(`
sources:
  - id: mls-a
    enabled: true
    base_url: https://api.example-mls.com/odata
    workers: -1
    credentials:
      api_key: secret
`)

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal(4, cfg.Sources[0].Workers)
}

func (s *ConfigTestSuite) TestLoad_ExpandsEnvVars() {
	s.T().Setenv("TEST_MLS_KEY", "from-env")

	path := s.write(`
sources:
  - id: mls-a
    enabled: true
    base_url: https://api.example-mls.com/odata
    credentials:
      api_key: ${TEST_MLS_KEY}
`)

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal("from-env", cfg.Sources[0].Credentials.APIKey)
}

func (s *ConfigTestSuite) TestLoad_RejectsDuplicateSourceIDs() {
	path := s.write(`
sources:
  - id: mls-a
    base_url: https://one.example.com
  - id: mls-a
    base_url: https://two.example.com
`)

	_, err := Load(path)
	s.Error(err)
	s.Contains(err.Error(), "duplicate source id")
}

func (s *ConfigTestSuite) TestLoad_RejectsUnknownCadence() {
	path := s.write(`
sources:
  - id: mls-a
    base_url: https://api.example-mls.com
    cadence: fortnightly
`)

	_, err := Load(path)
	s.Error(err)
	s.Contains(err.Error(), "unknown cadence")
}

func (s *ConfigTestSuite) TestLoad_RequiresBaseURLForEnabledSource() {
	path := s.write(`
sources:
  - id: mls-a
    enabled: true
`)

	_, err := Load(path)
	s.Error(err)
	s.Contains(err.Error(), "base_url")
}

func (s *ConfigTestSuite) TestCredentials_ExactlyOneShape() {
	cases := []struct {
		name  string
		creds CredentialsConfig
		ok    bool
	}{
		{"api key", CredentialsConfig{APIKey: "k"}, true},
		{"basic", CredentialsConfig{BasicUser: "u", BasicPassword: "p"}, true},
		{"oauth", CredentialsConfig{OAuthClientID: "id", OAuthSecret: "s", OAuthTokenURL: "https://t"}, true},
		{"none", CredentialsConfig{}, false},
		{"mixed", CredentialsConfig{APIKey: "k", BasicUser: "u"}, false},
	}

	for _, tc := range cases {
		err := tc.creds.Validate()
		if tc.ok {
			s.NoError(err, tc.name)
			continue
		}
		var ce *domain.ConfigError
		s.ErrorAs(err, &ce, tc.name)
	}
}
