package config

import (
	"os"

	"github.com/naoina/toml"
	"github.com/pkg/errors"
)

// Load reads a TOML config file, starting from Defaults so any field the
// file omits keeps its default value.
func Load(path string) (Config, error) {
	cfg := Defaults

	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "opening config file %q", path)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "decoding config file %q", path)
	}
	return cfg, nil
}
