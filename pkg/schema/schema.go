package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// FieldSpec declares one feature of the model's input contract. Categorical
// fields carry a hand-authored value table: the encoded integer is the
// value's position in Categories. The table is fixed in code, never derived
// from whatever values happen to appear in a data load, so train-time and
// inference-time encodings cannot drift apart.
type FieldSpec struct {
	Name       string
	Kind       Kind
	Min        float64
	Max        float64
	Categories []string
	Default    string
}

// EncodeCategory resolves a raw categorical value to its integer code,
// case-insensitively.
func (f FieldSpec) EncodeCategory(raw string) (int, bool) {
	trimmed := strings.TrimSpace(raw)
	for i, c := range f.Categories {
		if strings.EqualFold(c, trimmed) {
			return i, true
		}
	}
	return 0, false
}

// Schema is the fixed ordered list of fields a classifier is fit against.
// It must never be reordered once a model is fit: the model's input is a
// positional vector, and reordering silently corrupts predictions.
type Schema struct {
	Version string
	Fields  []FieldSpec
}

func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func (s Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Fingerprint hashes the schema version and ordered field names. Model
// artifacts record it so the serving layer can refuse artifacts fit
// against a different schema.
func (s Schema) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(s.Version))
	for _, f := range s.Fields {
		h.Write([]byte{0})
		h.Write([]byte(f.Name))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CheckCompatible verifies that featureNames matches the schema's field
// set and order exactly.
func (s Schema) CheckCompatible(featureNames []string) error {
	names := s.Names()
	if len(featureNames) != len(names) {
		return SchemaMismatchError{Want: names, Got: featureNames}
	}
	for i, name := range names {
		if featureNames[i] != name {
			return SchemaMismatchError{Want: names, Got: featureNames}
		}
	}
	return nil
}

// CKD returns the chronic kidney disease feature schema. Numeric bounds
// and defaults follow the intake form; categorical tables are fixed:
// normal=0/abnormal=1, notpresent=0/present=1.
func CKD() Schema {
	return Schema{
		Version: "v1",
		Fields: []FieldSpec{
			{Name: "age", Kind: Numeric, Min: 1, Max: 120, Default: "25"},
			{Name: "bp", Kind: Numeric, Min: 50, Max: 200, Default: "80"},
			{Name: "sg", Kind: Numeric, Min: 1.0, Max: 1.03, Default: "1.02"},
			{Name: "su", Kind: Numeric, Min: 0, Max: 5, Default: "0"},
			{Name: "bgr", Kind: Numeric, Min: 50, Max: 500, Default: "120"},
			{Name: "bu", Kind: Numeric, Min: 5, Max: 200, Default: "20"},
			{Name: "rbc", Kind: Categorical, Categories: []string{"normal", "abnormal"}, Default: "normal"},
			{Name: "pc", Kind: Categorical, Categories: []string{"normal", "abnormal"}, Default: "normal"},
			{Name: "pcc", Kind: Categorical, Categories: []string{"notpresent", "present"}, Default: "notpresent"},
			{Name: "ba", Kind: Categorical, Categories: []string{"notpresent", "present"}, Default: "notpresent"},
		},
	}
}
