package api

import (
	"errors"
	"strings"
	"time"
)

// Config is bound from SERVER_* variables.
type Config struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8000"`
	AllowOrigins    []string      `envconfig:"ALLOW_ORIGINS" split_words:"true" default:"*"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"180s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("SERVER_ADDR is required")
	}
	if c.ShutdownTimeout < 0 {
		return errors.New("SERVER_SHUTDOWN_TIMEOUT must be >= 0")
	}
	return nil
}
