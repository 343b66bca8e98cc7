package extract

import "testing"

func TestExtractKnownFields(t *testing.T) {
	extractor, err := NewExtractor(DefaultRules())
	if err != nil {
		t.Fatalf("failed to build extractor: %v", err)
	}

	text := "Age: 45, Blood Pressure: 90, Red Blood Cells: abnormal"
	fields := extractor.Extract(text)

	if fields["age"] != "45" {
		t.Fatalf("expected age 45, got %q", fields["age"])
	}
	if fields["bp"] != "90" {
		t.Fatalf("expected bp 90, got %q", fields["bp"])
	}
	if fields["rbc"] != "abnormal" {
		t.Fatalf("expected rbc abnormal, got %q", fields["rbc"])
	}
	if _, ok := fields["bgr"]; ok {
		t.Fatal("expected bgr to be absent")
	}
}

func TestExtractNoMatchesReturnsEmpty(t *testing.T) {
	extractor, err := NewExtractor(DefaultRules())
	if err != nil {
		t.Fatalf("failed to build extractor: %v", err)
	}

	for _, text := range []string{"", "lorem ipsum dolor sit amet", "(((]][%%"} {
		fields := extractor.Extract(text)
		if len(fields) != 0 {
			t.Fatalf("expected empty record for %q, got %v", text, fields)
		}
	}
}

func TestExtractCaseInsensitive(t *testing.T) {
	extractor, err := NewExtractor(DefaultRules())
	if err != nil {
		t.Fatalf("failed to build extractor: %v", err)
	}

	fields := extractor.Extract("BLOOD UREA: 38")
	if fields["bu"] != "38" {
		t.Fatalf("expected bu 38, got %q", fields["bu"])
	}
}

func TestExtractGlucoseVariants(t *testing.T) {
	extractor, err := NewExtractor(DefaultRules())
	if err != nil {
		t.Fatalf("failed to build extractor: %v", err)
	}

	short := extractor.Extract("Blood Glucose: 140")
	if short["bgr"] != "140" {
		t.Fatalf("expected bgr 140, got %q", short["bgr"])
	}

	long := extractor.Extract("Blood Glucose Random: 180")
	if long["bgr"] != "180" {
		t.Fatalf("expected bgr 180, got %q", long["bgr"])
	}
}

func TestExtractPusCellDoesNotClaimClumps(t *testing.T) {
	extractor, err := NewExtractor(DefaultRules())
	if err != nil {
		t.Fatalf("failed to build extractor: %v", err)
	}

	fields := extractor.Extract("Pus Cell: abnormal\nPus Cell Clumps: present")
	if fields["pc"] != "abnormal" {
		t.Fatalf("expected pc abnormal, got %q", fields["pc"])
	}
	if fields["pcc"] != "present" {
		t.Fatalf("expected pcc present, got %q", fields["pcc"])
	}
}

func TestExtractFirstOccurrenceWins(t *testing.T) {
	extractor, err := NewExtractor(DefaultRules())
	if err != nil {
		t.Fatalf("failed to build extractor: %v", err)
	}

	fields := extractor.Extract("Age: 30 ... Age: 99")
	if fields["age"] != "30" {
		t.Fatalf("expected first occurrence 30, got %q", fields["age"])
	}
}

func TestDisabledRulesSkipped(t *testing.T) {
	cfg := DefaultRules()
	for i := range cfg.Rules {
		if cfg.Rules[i].Field == "age" {
			cfg.Rules[i].Enabled = false
		}
	}

	extractor, err := NewExtractor(cfg)
	if err != nil {
		t.Fatalf("failed to build extractor: %v", err)
	}

	fields := extractor.Extract("Age: 45")
	if _, ok := fields["age"]; ok {
		t.Fatal("expected disabled rule to be skipped")
	}
}
