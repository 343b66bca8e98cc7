package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kidneysync/platform/pkg/common/logger"
	"github.com/kidneysync/platform/pkg/common/models"
	"github.com/kidneysync/platform/pkg/schema"
)

// Row is one labeled patient record as loaded from the dataset file.
// Fields holds raw cell values keyed by column name; blank cells are
// omitted so downstream imputation can tell missing from zero.
type Row struct {
	Fields models.RawRecord
	Label  float64
}

// Load reads the labeled dataset. Columns that are neither schema fields
// nor the label column are ignored. Rows whose label cannot be parsed are
// skipped with a warning.
func Load(path, labelColumn string, s schema.Schema) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReaderSize(file, 64*1024))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	labelIdx, ok := colIdx[strings.ToLower(labelColumn)]
	if !ok {
		return nil, fmt.Errorf("dataset missing label column %q", labelColumn)
	}

	fieldCols := make(map[string]int, len(s.Fields))
	for _, field := range s.Fields {
		if idx, ok := colIdx[field.Name]; ok {
			fieldCols[field.Name] = idx
		} else {
			logger.Log.WithField("field", field.Name).Warn("Dataset missing schema column")
		}
	}

	var rows []Row
	var skipped int
	for lineNum := 2; ; lineNum++ {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset line %d: %w", lineNum, err)
		}

		if labelIdx >= len(cells) {
			skipped++
			continue
		}
		label, ok := parseLabel(cells[labelIdx])
		if !ok {
			logger.Log.WithFields(map[string]interface{}{
				"line":  lineNum,
				"value": cells[labelIdx],
			}).Warn("Unparsable label, skipping row")
			skipped++
			continue
		}

		fields := models.RawRecord{}
		for name, idx := range fieldCols {
			if idx >= len(cells) {
				continue
			}
			if value := strings.TrimSpace(cells[idx]); value != "" && value != "?" {
				fields[name] = value
			}
		}
		rows = append(rows, Row{Fields: fields, Label: label})
	}

	logger.Log.WithFields(map[string]interface{}{
		"path":    path,
		"rows":    len(rows),
		"skipped": skipped,
	}).Info("Dataset loaded")

	return rows, nil
}

func parseLabel(raw string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "1.0", "ckd", "yes", "true":
		return 1, true
	case "0", "0.0", "notckd", "no", "false":
		return 0, true
	default:
		return 0, false
	}
}
