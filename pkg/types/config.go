package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds backend selection and parameters for Backend.Attach.
type Config struct {
	Backend     string        `json:"backend" yaml:"backend" validate:"required,oneof=sqlite"`
	DataDir     string        `json:"data_dir" yaml:"data_dir"`
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout" validate:"gte=0"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultBusyTimeout is how long a writer waits for a competing write
// transaction before failing.
const DefaultBusyTimeout = 5 * time.Second

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrBusyTimeoutInvalid = errors.New("busy timeout must not be negative")
	ErrBackendDetached    = errors.New("backend is detached")
	ErrAlreadyAttached    = errors.New("backend is already attached")
)

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Backend":
			if fe.Tag() == "required" {
				return ErrBackendEmpty
			}
			return fmt.Errorf("%w: %q", ErrBackendUnknown, c.Backend)
		case "BusyTimeout":
			return ErrBusyTimeoutInvalid
		}
	}
	return err
}

// EffectiveBusyTimeout returns BusyTimeout, or DefaultBusyTimeout when unset.
func (c Config) EffectiveBusyTimeout() time.Duration {
	if c.BusyTimeout == 0 {
		return DefaultBusyTimeout
	}
	return c.BusyTimeout
}
