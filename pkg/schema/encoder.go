package schema

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kidneysync/platform/pkg/common/models"
)

// EncodedRecord is a schema-complete, fully numeric record ready for
// classification. Names and Values share the schema's field order.
type EncodedRecord struct {
	Names  []string
	Values []float64
}

func (r EncodedRecord) Get(name string) (float64, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Values[i], true
		}
	}
	return 0, false
}

// Encode turns a possibly partial raw record into a total EncodedRecord.
// Absent fields take the field's declared default. Numeric values are
// re-validated against the declared range even though the UI enforces
// ranges at entry. Categorical lookup is case-insensitive.
func Encode(raw models.RawRecord, s Schema) (EncodedRecord, error) {
	record := EncodedRecord{
		Names:  s.Names(),
		Values: make([]float64, len(s.Fields)),
	}

	for i, field := range s.Fields {
		value, ok := raw[field.Name]
		if !ok || strings.TrimSpace(value) == "" {
			value = field.Default
		}

		encoded, err := encodeValue(field, value)
		if err != nil {
			return EncodedRecord{}, err
		}
		record.Values[i] = encoded
	}

	return record, nil
}

func encodeValue(field FieldSpec, value string) (float64, error) {
	switch field.Kind {
	case Numeric:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, ValidationError{Field: field.Name, Value: value, reason: errors.New("not a number")}
		}
		if parsed < field.Min || parsed > field.Max {
			return 0, ValidationError{Field: field.Name, Value: value, reason: errors.New("out of range")}
		}
		return parsed, nil
	case Categorical:
		code, ok := field.EncodeCategory(value)
		if !ok {
			return 0, UnknownCategoryError{Field: field.Name, Value: value}
		}
		return float64(code), nil
	default:
		return 0, ValidationError{Field: field.Name, Value: value, reason: errors.New("unknown field kind")}
	}
}

// Decode renders an encoded record back to human-readable raw values.
func Decode(record EncodedRecord, s Schema) (models.RawRecord, error) {
	if err := s.CheckCompatible(record.Names); err != nil {
		return nil, err
	}

	raw := make(models.RawRecord, len(s.Fields))
	for i, field := range s.Fields {
		value := record.Values[i]
		switch field.Kind {
		case Numeric:
			raw[field.Name] = strconv.FormatFloat(value, 'f', -1, 64)
		case Categorical:
			idx := int(value)
			if idx < 0 || idx >= len(field.Categories) {
				return nil, UnknownCategoryError{Field: field.Name, Value: strconv.Itoa(idx)}
			}
			raw[field.Name] = field.Categories[idx]
		}
	}
	return raw, nil
}
