package display

import (
	"encoding/json"
	"fmt"

	"github.com/gauthierbraillon/ccconform/internal/conformance"
)

// FormatJSON renders the report as indented JSON for machine consumption.
func FormatJSON(report *conformance.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	return string(data) + "\n", nil
}
