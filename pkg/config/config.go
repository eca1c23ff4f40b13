package config

import (
	"fmt"
	"os"
	"time"
)

// Config represents the main configuration for a registrar node
type Config struct {
	Node     NodeConfig     `yaml:"node"`
	Database DatabaseConfig `yaml:"database"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// NodeConfig contains node-specific configuration
type NodeConfig struct {
	ID      string `yaml:"id"`       // Node identifier, used in /v1/status
	DataDir string `yaml:"data_dir"` // Data directory for the ledger database
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	// Driver selects the storage backend: "sqlite3" (local file) or
	// "rqlite" (http DSN via the gorqlite database/sql driver).
	Driver string `yaml:"driver"`

	// DSN is the data source name. For sqlite3 this is a file path
	// (e.g. "~/.registrar/ledger.db"); for rqlite an http URL
	// (e.g. "http://localhost:4001").
	DSN string `yaml:"dsn"`

	// BusyTimeout applies to the sqlite3 driver only.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// GatewayConfig contains HTTP gateway configuration
type GatewayConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`     // Address to listen on (e.g., ":6001")
	RequestTimeout time.Duration `yaml:"request_timeout"` // Per-request timeout
	ChallengeTTL   time.Duration `yaml:"challenge_ttl"`   // Auth challenge nonce lifetime
	HTTPS          HTTPSConfig   `yaml:"https"`           // HTTPS/TLS configuration
}

// HTTPSConfig contains HTTPS/TLS configuration for the gateway
type HTTPSConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Enable HTTPS
	Domain    string `yaml:"domain"`     // Primary domain for the certificate
	AutoCert  bool   `yaml:"auto_cert"`  // Use Let's Encrypt for automatic certificates
	CertFile  string `yaml:"cert_file"`  // Path to certificate file (if not using auto_cert)
	KeyFile   string `yaml:"key_file"`   // Path to key file (if not using auto_cert)
	CacheDir  string `yaml:"cache_dir"`  // Directory for Let's Encrypt certificate cache
	HTTPPort  int    `yaml:"http_port"`  // HTTP port for ACME challenge (default: 80)
	HTTPSPort int    `yaml:"https_port"` // HTTPS port (default: 443)
	Email     string `yaml:"email"`      // Email for Let's Encrypt account
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	Colors     bool   `yaml:"colors"`      // Enable ANSI colors on stdout
	OutputFile string `yaml:"output_file"` // Empty for stdout
}

// DefaultConfig returns a config with sensible local-development defaults.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			DataDir: "./data",
		},
		Database: DatabaseConfig{
			Driver:      "sqlite3",
			DSN:         "./data/ledger.db",
			BusyTimeout: 5 * time.Second,
		},
		Gateway: GatewayConfig{
			ListenAddr:     ":6001",
			RequestTimeout: 30 * time.Second,
			ChallengeTTL:   5 * time.Minute,
			HTTPS: HTTPSConfig{
				HTTPPort:  80,
				HTTPSPort: 443,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Colors: true,
		},
	}
}

// LoadFromFile reads a YAML config file over the defaults.
// A missing path returns the defaults unchanged.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	if err := DecodeStrict(f, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
