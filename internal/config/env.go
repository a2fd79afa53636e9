package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
)

// parseEnv overlays environment variables onto cfg. Every string value is
// trimmed, list entries included, so MIGRATION_CRITICAL_PREFIXES="settings, teamRoster"
// yields two clean prefixes.
func parseEnv(cfg *StructuredConfig) error {
	opts := env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(""): func(v string) (any, error) {
				return strings.TrimSpace(v), nil
			},
		},
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("error getting env configs: %w", err)
	}
	return nil
}
