package config

import (
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config should validate, got %v", errs)
	}
}

func TestValidateDatabase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Driver = "postgres"
	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected driver error")
	}
	if !strings.Contains(errs[0].Error(), "database.driver") {
		t.Errorf("unexpected error: %v", errs[0])
	}

	cfg = DefaultConfig()
	cfg.Database.Driver = "rqlite"
	cfg.Database.DSN = "/tmp/ledger.db"
	errs = cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected rqlite DSN error")
	}
}

func TestValidateGateway(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gateway.ListenAddr = "not-an-addr"
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Error("expected listen_addr error")
	}

	cfg = DefaultConfig()
	cfg.Gateway.ChallengeTTL = 0
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Error("expected challenge_ttl error")
	}

	cfg = DefaultConfig()
	cfg.Gateway.HTTPS.Enabled = true
	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected https errors")
	}
}

func TestValidateAggregatesAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Driver = ""
	cfg.Database.DSN = ""
	cfg.Gateway.ListenAddr = ""
	cfg.Logging.Level = "verbose"

	errs := cfg.Validate()
	if len(errs) < 4 {
		t.Errorf("expected at least 4 errors, got %d: %v", len(errs), errs)
	}
}

func TestDecodeStrictRejectsUnknownFields(t *testing.T) {
	yaml := "node:\n  id: test\nbogus: true\n"
	cfg := DefaultConfig()
	if err := DecodeStrict(strings.NewReader(yaml), cfg); err == nil {
		t.Error("expected unknown field error")
	}
}

func TestLoadFromFileMissingPathUsesDefaults(t *testing.T) {
	cfg, err := LoadFromFile("/nonexistent/registrar.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gateway.ListenAddr != ":6001" {
		t.Errorf("listen_addr = %q", cfg.Gateway.ListenAddr)
	}
}
