// Package config reads routegen.yaml, the optional project file holding
// defaults for the routegen command. Command line flags override it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileName is the file Find looks for.
const FileName = "routegen.yaml"

// Config is the content of routegen.yaml.
type Config struct {
	// Patterns are the packages to generate for.
	Patterns []string `yaml:"patterns" validate:"dive,required"`

	// Workers bounds concurrent analysis. Zero means one per CPU.
	Workers int `yaml:"workers" validate:"gte=0"`

	// Output is the generated file name in each package.
	Output string `yaml:"output" validate:"omitempty,endswith=.go,excludesall=/\\"`

	// Tags are build tags used while loading packages.
	Tags []string `yaml:"tags" validate:"dive,required,excludesall=0x2C"`

	Log Log `yaml:"log"`
}

type Log struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates a config. Unknown keys are an error.
func Parse(r io.Reader) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid config: %w", describe(err))
	}
	return &c, nil
}

// Load reads the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Find loads FileName from dir or the closest parent holding one. It
// returns an empty config and "" when there is none.
func Find(dir string) (*Config, string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		c, err := Load(path)
		switch {
		case err == nil:
			return c, path, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return &Config{}, "", nil
		}
		dir = parent
	}
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed %s", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag())
	}
	return errors.New(strings.Join(msgs, "; "))
}
