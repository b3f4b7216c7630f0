package main

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MishaelXV/Diplom-project/pkg/responseformat"
)

// settings are the runtime options shared by every command.
type settings struct {
	LogLevel  string
	Format    responseformat.Format
	Workers   int
	Scenarios string
	Output    string
}

// flagKeys maps persistent flags onto settings keys.
var flagKeys = map[string]string{
	"log-level": "log.level",
	"format":    "output.format",
	"output":    "output.path",
	"workers":   "workers",
	"scenarios": "scenarios",
}

// loadSettings merges, lowest first: defaults, wellflow.yaml, WELLFLOW_*
// environment variables and explicitly set flags.
func loadSettings(root *cobra.Command) (*settings, error) {
	v := viper.New()
	flags := root.PersistentFlags()

	// Config file
	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("wellflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("WELLFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("output.format", string(responseformat.FormatText))
	v.SetDefault("output.path", "")
	v.SetDefault("workers", 0)
	v.SetDefault("scenarios", "")

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, eris.Wrapf(err, "bind flag %s", flag)
		}
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	format, err := responseformat.ParseFormat(v.GetString("output.format"))
	if err != nil {
		return nil, eris.Wrap(err, "config: output.format")
	}
	workers := v.GetInt("workers")
	if workers < 0 {
		return nil, eris.Errorf("config: workers must not be negative, got %d", workers)
	}

	return &settings{
		LogLevel:  v.GetString("log.level"),
		Format:    format,
		Workers:   workers,
		Scenarios: v.GetString("scenarios"),
		Output:    v.GetString("output.path"),
	}, nil
}
