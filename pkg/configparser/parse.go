package configparser

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// LoadAndParseYaml loads filepath into the process environment (see
// LoadYamlFile) and then populates cfg from the environment using its
// `env`/`envDefault`-tagged fields.
func LoadAndParseYaml(filepath string, cfg any) error {
	if filepath != "" {
		if err := LoadYamlFile(filepath); err != nil {
			return fmt.Errorf("load yaml file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env into config: %w", err)
	}
	return nil
}
