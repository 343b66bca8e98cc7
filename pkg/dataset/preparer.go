package dataset

import (
	"math"
	"strconv"

	"github.com/kidneysync/platform/pkg/common/logger"
	"github.com/kidneysync/platform/pkg/common/models"
	"github.com/kidneysync/platform/pkg/schema"
)

// TrainingTable is the fully numeric training set a classifier is fit
// against. Immutable once built.
type TrainingTable struct {
	FeatureNames []string
	Samples      [][]float64
	Labels       []float64
}

// ColumnStats reports what Prepare substituted for missing cells in one
// column, so operators can compare against the field's static default.
type ColumnStats struct {
	Field       string
	ImputedWith string
	Missing     int
}

// Prepare imputes missing values column-wise and encodes every row.
// Numeric columns take the mean of present raw values (computed before
// any encoding); categorical columns take the most frequent recognized
// value. Rows that still fail encoding afterwards are skipped.
func Prepare(rows []Row, s schema.Schema) (TrainingTable, []ColumnStats, error) {
	stats := make([]ColumnStats, 0, len(s.Fields))
	fill := make(map[string]string, len(s.Fields))

	for _, field := range s.Fields {
		var value string
		var missing int
		switch field.Kind {
		case schema.Numeric:
			value, missing = numericImputation(rows, field)
		case schema.Categorical:
			value, missing = categoricalImputation(rows, field)
		}
		fill[field.Name] = value
		stats = append(stats, ColumnStats{Field: field.Name, ImputedWith: value, Missing: missing})

		if field.Kind == schema.Numeric {
			warnDefaultDrift(field, value)
		}
	}

	table := TrainingTable{FeatureNames: s.Names()}
	var skipped int
	for _, row := range rows {
		complete := make(models.RawRecord, len(s.Fields))
		for _, field := range s.Fields {
			if v, ok := row.Fields[field.Name]; ok {
				complete[field.Name] = v
			} else {
				complete[field.Name] = fill[field.Name]
			}
		}

		encoded, err := schema.Encode(complete, s)
		if err != nil {
			skipped++
			continue
		}
		table.Samples = append(table.Samples, encoded.Values)
		table.Labels = append(table.Labels, row.Label)
	}

	if skipped > 0 {
		logger.Log.WithField("rows", skipped).Warn("Rows dropped during encoding")
	}

	return table, stats, nil
}

func numericImputation(rows []Row, field schema.FieldSpec) (string, int) {
	var sum float64
	var count, missing int
	for _, row := range rows {
		raw, ok := row.Fields[field.Name]
		if !ok {
			missing++
			continue
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			missing++
			continue
		}
		sum += parsed
		count++
	}
	if count == 0 {
		return field.Default, missing
	}
	return strconv.FormatFloat(sum/float64(count), 'f', -1, 64), missing
}

func categoricalImputation(rows []Row, field schema.FieldSpec) (string, int) {
	counts := make([]int, len(field.Categories))
	var missing int
	for _, row := range rows {
		raw, ok := row.Fields[field.Name]
		if !ok {
			missing++
			continue
		}
		code, ok := field.EncodeCategory(raw)
		if !ok {
			missing++
			continue
		}
		counts[code]++
	}

	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	if len(field.Categories) == 0 || counts[best] == 0 {
		return field.Default, missing
	}
	return field.Categories[best], missing
}

// The static field default and the dataset mean are two independent
// sources of "missing value": form-time gaps take the default, train-time
// gaps take the mean. They are not kept in sync automatically, so flag
// large divergence for operators.
func warnDefaultDrift(field schema.FieldSpec, imputed string) {
	def, err := strconv.ParseFloat(field.Default, 64)
	if err != nil {
		return
	}
	mean, err := strconv.ParseFloat(imputed, 64)
	if err != nil {
		return
	}
	span := field.Max - field.Min
	if span <= 0 {
		return
	}
	if math.Abs(mean-def)/span > 0.2 {
		logger.Log.WithFields(map[string]interface{}{
			"field":   field.Name,
			"default": field.Default,
			"mean":    imputed,
		}).Warn("Field default drifts from dataset mean")
	}
}
