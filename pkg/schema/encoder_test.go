package schema

import (
	"testing"

	"github.com/kidneysync/platform/pkg/common/models"
)

func TestEncodeFillsDefaults(t *testing.T) {
	s := CKD()
	record, err := Encode(models.RawRecord{}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(record.Values) != len(s.Fields) {
		t.Fatalf("expected %d values, got %d", len(s.Fields), len(record.Values))
	}
	for i, name := range s.Names() {
		if record.Names[i] != name {
			t.Fatalf("field order drifted at %d: want %s, got %s", i, name, record.Names[i])
		}
	}
	if age, _ := record.Get("age"); age != 25 {
		t.Fatalf("expected default age 25, got %v", age)
	}
	if sg, _ := record.Get("sg"); sg != 1.02 {
		t.Fatalf("expected default sg 1.02, got %v", sg)
	}
	if pcc, _ := record.Get("pcc"); pcc != 0 {
		t.Fatalf("expected default pcc 0 (notpresent), got %v", pcc)
	}
}

func TestEncodeDefaultsRoundTrip(t *testing.T) {
	s := CKD()

	fromDefaults := models.RawRecord{}
	for _, f := range s.Fields {
		fromDefaults[f.Name] = f.Default
	}

	explicit, err := Encode(fromDefaults, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	empty, err := Encode(models.RawRecord{}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range explicit.Values {
		if explicit.Values[i] != empty.Values[i] {
			t.Fatalf("default round-trip mismatch at %s: %v vs %v",
				explicit.Names[i], explicit.Values[i], empty.Values[i])
		}
	}
}

func TestEncodePartialRecord(t *testing.T) {
	s := CKD()
	record, err := Encode(models.RawRecord{"age": "45", "bp": "90", "rbc": "abnormal"}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if age, _ := record.Get("age"); age != 45 {
		t.Fatalf("expected age 45, got %v", age)
	}
	if bp, _ := record.Get("bp"); bp != 90 {
		t.Fatalf("expected bp 90, got %v", bp)
	}
	if rbc, _ := record.Get("rbc"); rbc != 1 {
		t.Fatalf("expected rbc 1 (abnormal), got %v", rbc)
	}
	if bgr, _ := record.Get("bgr"); bgr != 120 {
		t.Fatalf("expected default bgr 120, got %v", bgr)
	}
}

func TestEncodeCategoryCaseInsensitive(t *testing.T) {
	s := CKD()
	upper, err := Encode(models.RawRecord{"rbc": "Abnormal"}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lower, err := Encode(models.RawRecord{"rbc": "abnormal"}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, _ := upper.Get("rbc")
	l, _ := lower.Get("rbc")
	if u != l {
		t.Fatalf("mixed-case category encoded differently: %v vs %v", u, l)
	}
}

func TestEncodeNumericBounds(t *testing.T) {
	s := CKD()

	for _, value := range []string{"1", "120"} {
		if _, err := Encode(models.RawRecord{"age": value}, s); err != nil {
			t.Fatalf("boundary value %s rejected: %v", value, err)
		}
	}
	for _, value := range []string{"0", "121"} {
		_, err := Encode(models.RawRecord{"age": value}, s)
		if !IsValidationError(err) {
			t.Fatalf("out-of-range value %s: expected ValidationError, got %v", value, err)
		}
	}
}

func TestEncodeRejectsUnparsableNumeric(t *testing.T) {
	_, err := Encode(models.RawRecord{"bp": "high"}, CKD())
	if !IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestEncodeRejectsUnknownCategory(t *testing.T) {
	_, err := Encode(models.RawRecord{"rbc": "cloudy"}, CKD())
	if !IsUnknownCategoryError(err) {
		t.Fatalf("expected UnknownCategoryError, got %v", err)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	s := CKD()
	record, err := Encode(models.RawRecord{"age": "60", "rbc": "abnormal", "ba": "present"}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := Decode(record, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw["age"] != "60" {
		t.Fatalf("expected age 60, got %s", raw["age"])
	}
	if raw["rbc"] != "abnormal" {
		t.Fatalf("expected rbc abnormal, got %s", raw["rbc"])
	}
	if raw["pcc"] != "notpresent" {
		t.Fatalf("expected pcc notpresent, got %s", raw["pcc"])
	}
}

func TestCheckCompatibleDetectsDrift(t *testing.T) {
	s := CKD()
	if err := s.CheckCompatible(s.Names()); err != nil {
		t.Fatalf("identical names rejected: %v", err)
	}

	reordered := s.Names()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	if err := s.CheckCompatible(reordered); !IsSchemaMismatchError(err) {
		t.Fatalf("expected SchemaMismatchError for reordered fields, got %v", err)
	}

	if err := s.CheckCompatible(s.Names()[:5]); !IsSchemaMismatchError(err) {
		t.Fatalf("expected SchemaMismatchError for truncated fields, got %v", err)
	}
}
