// Package config loads service settings from the environment and YAML
// documents from disk.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/validator"
)

// Load fills cfg from `env` tags and then checks its `validate` tags.
//
//	type Config struct {
//	    Port     int    `env:"HTTP_PORT" envDefault:"8080" validate:"gte=1,lte=65535"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := validator.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadYAML decodes the YAML file at path into out. See DecodeYAML.
func LoadYAML(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := DecodeYAML(raw, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// DecodeYAML expands ${VAR} and ${VAR:-default} references from the
// environment, then decodes raw into out. Unknown keys are rejected so
// typos in hand-written files fail at load time. An empty document leaves
// out untouched.
func DecodeYAML(raw []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewBufferString(os.Expand(string(raw), lookupEnv)))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

func lookupEnv(ref string) string {
	name, fallback, hasDefault := strings.Cut(ref, ":-")
	if v, ok := os.LookupEnv(name); ok && (v != "" || !hasDefault) {
		return v
	}
	return fallback
}
