package config

import (
	"errors"
	"io/fs"
	"reflect"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/sessionkeeper/internal/timex"
)

// dotEnvFile is loaded if present; variables already set in the process
// environment win over it.
var dotEnvFile = ".env"

func parseEnv(cfg *Config) error {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return env.ParseWithOptions(cfg, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): func(v string) (interface{}, error) {
				return timex.ParseDuration(v)
			},
		},
	})
}
