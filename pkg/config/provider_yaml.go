package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// YAMLProvider implements ScenarioProvider for YAML scenario files
type YAMLProvider struct {
	filename  string
	scenarios []ScenarioData
}

type yamlFile struct {
	Scenarios []ScenarioData `yaml:"scenarios"`
}

// NewYAMLProvider creates a new YAML scenario provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadScenarios reads the file, applies defaults and validates every
// scenario.
func (y *YAMLProvider) LoadScenarios() ([]ScenarioData, error) {
	content, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, eris.Wrapf(err, "read scenario file %s", y.filename)
	}

	var file yamlFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, eris.Wrapf(err, "parse scenario file %s", y.filename)
	}

	if err := prepare(file.Scenarios); err != nil {
		return nil, eris.Wrapf(err, "scenario file %s", y.filename)
	}

	y.scenarios = file.Scenarios
	return file.Scenarios, nil
}

// GetScenario returns the scenario called name
func (y *YAMLProvider) GetScenario(name string) (*ScenarioData, error) {
	if y.scenarios == nil {
		if _, err := y.LoadScenarios(); err != nil {
			return nil, err
		}
	}

	for i := range y.scenarios {
		if y.scenarios[i].Name == name {
			s := y.scenarios[i]
			return &s, nil
		}
	}
	return nil, eris.Wrapf(ErrScenarioNotFound, "scenario %q", name)
}

// IsReadOnly returns true; YAML files are edited by hand
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML files
func (y *YAMLProvider) Close() error {
	return nil
}
