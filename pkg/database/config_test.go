package database_test

import (
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/licita/pkg/database"
)

func TestFinalizeDefaults(t *testing.T) {
	var cfg database.Config
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	if cfg.Host != "localhost" || cfg.Port != 5432 || cfg.Name != "licita" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.ConnTimeoutDuration() != 5*time.Second {
		t.Errorf("conn timeout = %v, want 5s", cfg.ConnTimeoutDuration())
	}
}

func TestFinalizeEnv(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db")
	t.Setenv("TEST_DB_PORT", "6543")
	t.Setenv("TEST_DB_MAX_OPEN", "not-a-number")

	cfg := database.Config{Host: "from-file"}
	err := cfg.Finalize(&database.Env{Host: "TEST_DB_HOST", Port: "TEST_DB_PORT", MaxOpenConns: "TEST_DB_MAX_OPEN"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "db" || cfg.Port != 6543 {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.MaxOpenConns != 10 {
		t.Errorf("invalid int env should keep default, got %d", cfg.MaxOpenConns)
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  database.Config
		want string
	}{
		{"idle above open", database.Config{MaxOpenConns: 2, MaxIdleConns: 5}, "max_idle_conns"},
		{"bad lifetime", database.Config{ConnMaxLifetime: "soon"}, "conn_max_lifetime"},
		{"bad timeout", database.Config{ConnTimeout: "5 parsecs"}, "conn_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := database.Config{Host: "a", Port: 1, Password: "secret"}
	base.Merge(&database.Config{Host: "b", Name: "other"})

	if base.Host != "b" || base.Name != "other" {
		t.Errorf("overlay not applied: %+v", base)
	}
	if base.Port != 1 || base.Password != "secret" {
		t.Errorf("zero overlay fields overwrote base: %+v", base)
	}
}

func TestConnString(t *testing.T) {
	cfg := database.Config{User: "licita", Password: "p@ss", Host: "db", Port: 5432, Name: "licita", SSLMode: "disable"}
	got := cfg.ConnString()
	want := "postgres://licita:p%40ss@db:5432/licita?sslmode=disable"
	if got != want {
		t.Errorf("ConnString() = %q, want %q", got, want)
	}

	cfg.DSN = "postgres://elsewhere/db"
	if cfg.ConnString() != cfg.DSN {
		t.Errorf("DSN not used verbatim: %q", cfg.ConnString())
	}
}
