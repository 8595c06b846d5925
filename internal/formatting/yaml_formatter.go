package formatting

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

type yamlFormatter struct {
	options Options
}

// Format goes through JSON first so that json struct tags name the keys.
func (f *yamlFormatter) Format(_ Table, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	_, err = f.options.Writer.Write(out)
	return err
}
