package report

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/IvanShishkin/sigscan/pkg/models"
)

var csvHeader = []string{"path", "status", "fingerprint", "size", "error"}

// renderCSV generates one row per verdict
func renderCSV(results *models.ScanResults) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, v := range results.Verdicts {
		row := []string{
			v.Path,
			v.Status(),
			v.Fingerprint,
			strconv.FormatInt(v.Size, 10),
			v.Error,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
