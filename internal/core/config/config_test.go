package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	p := writeConfig(t, `
jwt:
  secret: s3
db:
  driver: sqlite
  dsn: file:test.db
redis:
  addr: 127.0.0.1:6379
`)
	t.Setenv("APP_DB_DSN", "file:override.db")

	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DB.DSN != "file:override.db" {
		t.Errorf("dsn = %q, env override not applied", c.DB.DSN)
	}
	if c.DB.Driver != "sqlite" || c.Redis.Addr != "127.0.0.1:6379" {
		t.Errorf("file values lost: %+v %+v", c.DB, c.Redis)
	}
	if c.App.HTTP.Port != 8080 || c.App.Admin.Port != 8081 {
		t.Errorf("ports = %d/%d", c.App.HTTP.Port, c.App.Admin.Port)
	}
	if c.Redis.TTLSec != 30 || c.Limits.TimeoutSec != 10 || c.Limits.RPS != 200 {
		t.Errorf("defaults not applied: redis=%+v limits=%+v", c.Redis, c.Limits)
	}
	if c.JWT.Issuer != "pickfast" || c.JWT.AccessTokenTTLMin != 1440 {
		t.Errorf("jwt = %+v", c.JWT)
	}
	if c.Mail.Host != "" || c.Mail.Port != 465 || len(c.Mail.FeedbackTo) != 1 {
		t.Errorf("mail = %+v", c.Mail)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	p := writeConfig(t, "db:\n  driver: sqlite\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected error without jwt.secret")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
