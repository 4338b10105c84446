// Package cmd implements the configurator CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/iancoleman/strcase"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func envName(name string) string {
	return strcase.ToScreamingSnake(name)
}

func setupLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// viperWalk binds every flag to its screaming snake case environment
// variable, so the hook harness can configure the CLI without argv.
func viperWalk(flags *pflag.FlagSet) error {
	v := viper.New()
	var errs *multierror.Error
	flags.VisitAll(func(f *pflag.Flag) {
		if err := v.BindEnv(f.Name, envName(f.Name)); err != nil {
			errs = multierror.Append(errs, err)
			return
		}

		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			errs = multierror.Append(errs, flags.Set(f.Name, fmt.Sprintf("%v", val)))
		}
	})
	return errs.ErrorOrNil()
}
