package environment

import (
	"fmt"
	"strings"
)

// Environment is one of the deployment stages a feature can be evaluated in.
// The set is closed: only the four predefined values are valid.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// All returns every valid environment in promotion order.
func All() []Environment {
	return []Environment{Development, Testing, Staging, Production}
}

// Valid reports whether e is one of the predefined environments.
func (e Environment) Valid() bool {
	switch e {
	case Development, Testing, Staging, Production:
		return true
	}
	return false
}

func (e Environment) String() string {
	return string(e)
}

// Rank returns the position of e in the usual promotion flow
// (development=0 ... production=3), or -1 for invalid values.
// The engine never enforces this order; it is informational.
func (e Environment) Rank() int {
	for i, env := range All() {
		if env == e {
			return i
		}
	}
	return -1
}

// Parse converts a string into an Environment. Matching is case-insensitive
// and accepts the common short aliases (dev, test, qa, stage, prod).
func Parse(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "development", "dev":
		return Development, nil
	case "testing", "test", "qa":
		return Testing, nil
	case "staging", "stage":
		return Staging, nil
	case "production", "prod":
		return Production, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, s)
}

// MustParse is like Parse but panics on unknown input.
func MustParse(s string) Environment {
	env, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return env
}

// UnmarshalText lets env, yaml and json decoders accept aliases.
func (e *Environment) UnmarshalText(text []byte) error {
	env, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = env
	return nil
}

func (e Environment) MarshalText() ([]byte, error) {
	return []byte(e), nil
}
