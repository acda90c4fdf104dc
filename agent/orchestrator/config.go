package orchestrator

import (
	"errors"
	"time"
)

const (
	defaultMaxRounds     = 8
	defaultOracleTimeout = 60 * time.Second

	// DegradedAnswer is returned when a turn runs out of oracle rounds.
	DegradedAnswer = "I'm sorry, I was unable to complete your request. Please try again or contact the hospital front desk."
)

// Config is bound from AGENT_* variables. Preamble comes from the prompt set.
type Config struct {
	MaxRounds     int           `envconfig:"MAX_ROUNDS" split_words:"true" default:"8"`
	OracleTimeout time.Duration `envconfig:"ORACLE_TIMEOUT" split_words:"true" default:"60s"`
	MaxHistory    int           `envconfig:"MAX_HISTORY" split_words:"true" default:"0"`
	Preamble      string        `ignored:"true"`
}

func (c Config) Validate() error {
	if c.MaxRounds < 0 {
		return errors.New("AGENT_MAX_ROUNDS must be >= 0")
	}
	if c.OracleTimeout < 0 {
		return errors.New("AGENT_ORACLE_TIMEOUT must be >= 0")
	}
	if c.MaxHistory < 0 {
		return errors.New("AGENT_MAX_HISTORY must be >= 0")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.MaxRounds <= 0 {
		c.MaxRounds = defaultMaxRounds
	}
	if c.OracleTimeout <= 0 {
		c.OracleTimeout = defaultOracleTimeout
	}
	return c
}
