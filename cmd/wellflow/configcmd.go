package main

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/MishaelXV/Diplom-project/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and convert scenario sources",
}

var configConvertCmd = &cobra.Command{
	Use:   "convert <scenarios.yaml> <store.db>",
	Short: "Copy every scenario of a YAML file into a SQLite store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return convertScenarios(args[0], args[1])
	},
}

// convertScenarios validates the YAML scenarios and saves them to the store,
// replacing scenarios of the same name.
func convertScenarios(yamlPath, dbPath string) error {
	scenarios, err := config.NewYAMLProvider(yamlPath).LoadScenarios()
	if err != nil {
		return err
	}

	store, err := config.NewSQLiteProvider(dbPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveScenarios(scenarios); err != nil {
		return eris.Wrapf(err, "save scenarios to %s", dbPath)
	}
	logger.Infof("converted %d scenarios from %s to %s", len(scenarios), yamlPath, dbPath)
	return nil
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scenarios of the configured source",
	RunE: func(cmd *cobra.Command, args []string) error {
		scenarios, err := loadScenarios(cfg.Scenarios, nil)
		if err != nil {
			return err
		}
		return writeResult(scenarios, scenarioTable(scenarios))
	},
}

type scenarioTable []config.ScenarioData

func (t scenarioTable) Header() []string {
	return []string{"name", "source", "segments", "n", "sigma", "method"}
}

func (t scenarioTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, s := range t {
		source := "synthetic"
		if s.Measurement != nil {
			source = s.Measurement.Path
		}
		rows[i] = []string{
			s.Name, source, strconv.Itoa(s.Boundaries.Len()), strconv.Itoa(s.N),
			strconv.FormatFloat(s.Sigma, 'g', -1, 64), s.Method,
		}
	}
	return rows
}

func init() {
	configCmd.AddCommand(configConvertCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}
