// Package stage detects the deployment environment fsmctl and the telemetry
// setup run in, from the RUNNING_ENV environment variable.
package stage

import (
	"errors"
	"flag"
	"fmt"
	"sync"

	"github.com/amp-labs/stateful/logger"
	"github.com/caarlos0/env/v11"
)

// Stage represents a deployment environment.
type Stage string

// ErrUnrecognizedStage is returned when RUNNING_ENV holds an invalid stage.
var ErrUnrecognizedStage = errors.New("unrecognized stage")

const (
	Unknown Stage = "unknown"
	Local   Stage = "local"
	Test    Stage = "test"
	Dev     Stage = "dev"
	Staging Stage = "staging"
	Prod    Stage = "prod"
)

// UnmarshalText implements encoding.TextUnmarshaler so env can parse it.
// Empty text leaves s unset.
func (s *Stage) UnmarshalText(text []byte) error {
	switch v := Stage(text); v {
	case "":
		return nil
	case Local, Test, Dev, Staging, Prod:
		*s = v

		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnrecognizedStage, text)
	}
}

type config struct {
	Stage Stage `env:"RUNNING_ENV"`
}

// Current returns the current running environment. It is determined once
// and cached.
func Current() Stage {
	return runningStage()
}

// IsLocal returns true if the current stage is Local.
func IsLocal() bool {
	return Current() == Local
}

// IsProd returns true if the current stage is Prod.
func IsProd() bool {
	return Current() == Prod
}

// IsTest returns true if the current stage is Test.
func IsTest() bool {
	return Current() == Test
}

var runningStage = sync.OnceValue(func() Stage { //nolint:gochecknoglobals
	value := Detect()

	if value != Unknown {
		logger.Get().Debug("Configured stage", "stage", value)
	}

	return value
})

// Detect reads the stage from RUNNING_ENV without caching. An unset or
// invalid value means Test inside a test binary and Unknown otherwise.
func Detect() Stage {
	fallback := Unknown

	// Test binaries register test.v.
	if flag.Lookup("test.v") != nil {
		fallback = Test
	}

	cfg, err := env.ParseAs[config]()
	if err != nil {
		logger.Get().Warn("Unknown stage", "error", err)

		return fallback
	}

	if cfg.Stage == "" {
		return fallback
	}

	return cfg.Stage
}
