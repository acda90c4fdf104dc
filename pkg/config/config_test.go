package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	Addr    string        `split_words:"true" default:":8000"`
	Timeout time.Duration `split_words:"true" default:"5s"`
	Token   string        `split_words:"true" required:"true"`
}

type validatedConfig struct {
	MaxRounds int `split_words:"true" default:"0"`
}

func (c *validatedConfig) Validate() error {
	if c.MaxRounds <= 0 {
		return errors.New("max rounds must be > 0")
	}
	return nil
}

func TestNewBindsPrefixedEnvironment(t *testing.T) {
	t.Setenv("SAMPLE_TOKEN", "secret")
	t.Setenv("SAMPLE_TIMEOUT", "12s")

	conf, err := New[sampleConfig]("SAMPLE")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.Token != "secret" {
		t.Fatalf("Token = %q, want %q", conf.Token, "secret")
	}
	if conf.Timeout != 12*time.Second {
		t.Fatalf("Timeout = %v, want 12s", conf.Timeout)
	}
	if conf.Addr != ":8000" {
		t.Fatalf("Addr = %q, want default :8000", conf.Addr)
	}
}

func TestNewMissingRequired(t *testing.T) {
	t.Setenv("MISSING_TOKEN", "")
	os.Unsetenv("MISSING_TOKEN")

	if _, err := New[sampleConfig]("MISSING"); err == nil {
		t.Fatal("expected error for missing required variable")
	}
}

func TestNewRunsValidator(t *testing.T) {
	t.Setenv("LOOP_MAX_ROUNDS", "0")

	if _, err := New[validatedConfig]("LOOP"); err == nil {
		t.Fatal("expected validation error")
	}

	t.Setenv("LOOP_MAX_ROUNDS", "4")
	conf, err := New[validatedConfig]("LOOP")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.MaxRounds != 4 {
		t.Fatalf("MaxRounds = %d, want 4", conf.MaxRounds)
	}
}

func TestExportEnvironmentKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "EXPORT_TEST_NEW=from-file\nEXPORT_TEST_SET=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("EXPORT_TEST_SET", "from-env")
	t.Setenv("EXPORT_TEST_NEW", "")
	os.Unsetenv("EXPORT_TEST_NEW")

	if err := exportEnvironment(path); err != nil {
		t.Fatalf("exportEnvironment() error = %v", err)
	}
	if got := os.Getenv("EXPORT_TEST_NEW"); got != "from-file" {
		t.Fatalf("EXPORT_TEST_NEW = %q, want from-file", got)
	}
	if got := os.Getenv("EXPORT_TEST_SET"); got != "from-env" {
		t.Fatalf("EXPORT_TEST_SET = %q, want from-env", got)
	}
}

func TestExportEnvironmentIfExistsIgnoresMissingFile(t *testing.T) {
	t.Parallel()

	if err := exportEnvironmentIfExists(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("exportEnvironmentIfExists() error = %v", err)
	}
}
