package report

import (
	"encoding/json"

	"github.com/IvanShishkin/sigscan/pkg/models"
)

// renderJSON generates a JSON report
func renderJSON(results *models.ScanResults) ([]byte, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
