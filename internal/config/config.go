// Package config handles configuration loading for the bluem command.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax), so access tokens can be
// injected at runtime instead of being written to disk.
//
// # Configuration Sections
//
//   - server: webhook listener settings (address, path, TLS)
//   - webhook: certificates trusted to sign notifications, per environment
//   - storage: optional MongoDB history of received notifications
//   - log: level and output format
//   - bluem: the integration itself, see the pkg/config Input type
//
// # Example Configuration
//
//	server:
//	  addr: ":8080"
//	  webhookPath: /webhook
//	  tls:
//	    enabled: true
//	    certFile: /etc/ssl/server.crt
//	    keyFile: /etc/ssl/server.key
//
//	webhook:
//	  certificates:
//	    default: [/etc/bluem/webhook.pem]
//	    test: [/etc/bluem/webhook-test.pem]
//	  duplicateWindow: 24h
//
//	storage:
//	  mongodb:
//	    uri: ${MONGODB_URI}
//	    database: bluem
//
//	log:
//	  level: info
//
//	bluem:
//	  environment: test
//	  senderID: S1234
//	  brandID: ExampleBrand
//	  test_accessToken: ${BLUEM_TEST_TOKEN}
//
// See [Load] for loading configuration from a file.
package config

import (
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	bluemconfig "github.com/sirosfoundation/go-bluem/pkg/config"
	"github.com/sirosfoundation/go-bluem/pkg/security"
	"github.com/sirosfoundation/go-bluem/pkg/webhook"
)

// DefaultCertificates is the key of the certificate list trusted in every
// environment without its own list.
const DefaultCertificates = "default"

// Config is the root configuration structure
type Config struct {
	Server  ServerConfig      `yaml:"server"`
	Webhook WebhookConfig     `yaml:"webhook"`
	Storage StorageConfig     `yaml:"storage"`
	Log     LogConfig         `yaml:"log"`
	Bluem   bluemconfig.Input `yaml:"bluem"`
}

// ServerConfig holds webhook listener settings
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	WebhookPath     string        `yaml:"webhookPath"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	TLS             struct {
		Enabled  bool   `yaml:"enabled"`
		CertFile string `yaml:"certFile"`
		KeyFile  string `yaml:"keyFile"`
	} `yaml:"tls"`
}

// WebhookConfig holds notification verification settings
type WebhookConfig struct {
	// Certificates maps an environment name, or "default", to PEM files.
	Certificates map[string][]string `yaml:"certificates"`
	MaxBodyBytes int64               `yaml:"maxBodyBytes"`

	// DuplicateWindow is how long a delivered notification is remembered.
	// A negative value disables duplicate detection.
	DuplicateWindow time.Duration `yaml:"duplicateWindow"`
}

// StorageConfig holds the optional notification history backend
type StorageConfig struct {
	MongoDB struct {
		URI        string `yaml:"uri"`
		Database   string `yaml:"database"`
		Collection string `yaml:"collection"`
	} `yaml:"mongodb"`
}

// Enabled reports whether notifications should be stored.
func (s StorageConfig) Enabled() bool {
	return s.MongoDB.URI != ""
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse reads configuration from YAML data after expanding environment
// variables.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.WebhookPath == "" {
		c.Server.WebhookPath = "/webhook"
	}
	if !strings.HasPrefix(c.Server.WebhookPath, "/") {
		c.Server.WebhookPath = "/" + c.Server.WebhookPath
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Webhook.MaxBodyBytes == 0 {
		c.Webhook.MaxBodyBytes = webhook.DefaultMaxBodyBytes
	}
	if c.Storage.MongoDB.Database == "" {
		c.Storage.MongoDB.Database = "bluem"
	}
	if c.Storage.MongoDB.Collection == "" {
		c.Storage.MongoDB.Collection = "notifications"
	}
	if c.Webhook.DuplicateWindow == 0 {
		c.Webhook.DuplicateWindow = 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		return fmt.Errorf("server.tls.certFile and server.tls.keyFile are required when TLS is enabled")
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json', got '%s'", c.Log.Format)
	}

	for name := range c.Webhook.Certificates {
		if name == DefaultCertificates {
			continue
		}
		if _, err := bluemconfig.ParseEnvironment(name); err != nil {
			return fmt.Errorf("webhook.certificates: %w", err)
		}
	}

	return nil
}

// Integration validates the bluem section.
func (c *Config) Integration() (*bluemconfig.Config, error) {
	return bluemconfig.Build(c.Bluem)
}

// Logger returns a logger writing to w at the configured level and format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// TrustedKeys loads the webhook certificates. Expired certificates are
// rejected so a stale deployment fails at startup.
func (c *Config) TrustedKeys(now time.Time) (*webhook.StaticKeys, error) {
	load := func(paths []string) ([]*x509.Certificate, error) {
		certs := make([]*x509.Certificate, 0, len(paths))
		for _, p := range paths {
			cert, err := security.LoadCertificate(p)
			if err != nil {
				return nil, err
			}
			if err := security.CheckValidity(cert, now); err != nil {
				return nil, fmt.Errorf("%s: %w", p, err)
			}
			certs = append(certs, cert)
		}
		return certs, nil
	}

	fallback, err := load(c.Webhook.Certificates[DefaultCertificates])
	if err != nil {
		return nil, err
	}
	keys := webhook.NewStaticKeys(fallback...)
	for name, paths := range c.Webhook.Certificates {
		if name == DefaultCertificates {
			continue
		}
		certs, err := load(paths)
		if err != nil {
			return nil, err
		}
		keys = keys.With(bluemconfig.Environment(name), certs...)
	}
	return keys, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("log.level must be debug, info, warn or error, got '%s'", s)
	}
	return level, nil
}
