package formatting

import (
	"encoding/json"
	"fmt"
)

type jsonFormatter struct {
	options Options
}

func (f *jsonFormatter) Format(_ Table, data any) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(f.options.Writer, string(b))
	return err
}
