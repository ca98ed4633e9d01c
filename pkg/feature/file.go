package feature

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// definitions is the top-level shape of a feature definitions file:
//
//	features:
//	  - name: beta
//	    enabled: true
//	    attributes:
//	      AllowList: [u1, u2]
//	      Owner: growth
//	    rollout:
//	      percentage: 25
type definitions struct {
	Features []*Flag `yaml:"features"`
}

// Decode reads feature definitions from YAML and validates every flag.
func Decode(r io.Reader) ([]*Flag, error) {
	var defs definitions
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Join(ErrLoadingFile, err)
	}

	seen := make(map[string]struct{}, len(defs.Features))
	for i, flag := range defs.Features {
		if err := flag.Validate(); err != nil {
			return nil, errors.Join(ErrLoadingFile, fmt.Errorf("feature #%d: %w", i, err))
		}
		if _, dup := seen[flag.Name]; dup {
			return nil, errors.Join(ErrLoadingFile, fmt.Errorf("duplicate feature %q", flag.Name))
		}
		seen[flag.Name] = struct{}{}
	}
	return defs.Features, nil
}

// LoadFile reads feature definitions from a YAML file.
func LoadFile(path string) ([]*Flag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrLoadingFile, err)
	}
	defer f.Close()

	return Decode(f)
}
