package terminology

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Concept describes a lab measurement or finding captured by a record
// field, with its display name and standard clinical codes.
type Concept struct {
	Display string `yaml:"display" json:"display"`
	SNOMED  string `yaml:"snomed" json:"snomed,omitempty"`
	LOINC   string `yaml:"loinc" json:"loinc,omitempty"`
	Unit    string `yaml:"unit" json:"unit,omitempty"`
}

type Catalog struct {
	Concepts map[string]Concept `yaml:"concepts" json:"concepts"`
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := ioutil.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Concepts) == 0 {
		return Catalog{}, fmt.Errorf("terminology catalog empty")
	}
	return cat, nil
}

func (c Catalog) Lookup(key string) (Concept, bool) {
	if c.Concepts == nil {
		return Concept{}, false
	}
	concept, ok := c.Concepts[strings.ToLower(key)]
	if ok {
		return concept, true
	}
	for k, v := range c.Concepts {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return Concept{}, false
}

// DefaultCatalog covers the kidney panel fields keyed by their record
// field names.
func DefaultCatalog() Catalog {
	return Catalog{Concepts: map[string]Concept{
		"age": {
			Display: "Age",
			LOINC:   "30525-0",
			Unit:    "years",
		},
		"bp": {
			Display: "Blood Pressure (Diastolic)",
			SNOMED:  "271650006",
			LOINC:   "8462-4",
			Unit:    "mm Hg",
		},
		"sg": {
			Display: "Urine Specific Gravity",
			SNOMED:  "27171005",
			LOINC:   "2965-2",
		},
		"su": {
			Display: "Urine Sugar",
			SNOMED:  "166922008",
			LOINC:   "5792-7",
		},
		"bgr": {
			Display: "Blood Glucose (Random)",
			SNOMED:  "271062007",
			LOINC:   "2339-0",
			Unit:    "mg/dL",
		},
		"bu": {
			Display: "Blood Urea",
			SNOMED:  "105011006",
			LOINC:   "3091-6",
			Unit:    "mg/dL",
		},
		"rbc": {
			Display: "Red Blood Cells (Urine)",
			SNOMED:  "252382008",
			LOINC:   "13945-1",
		},
		"pc": {
			Display: "Pus Cells (Urine)",
			SNOMED:  "167321001",
			LOINC:   "5821-4",
		},
		"pcc": {
			Display: "Pus Cell Clumps",
			SNOMED:  "167321001",
		},
		"ba": {
			Display: "Bacteria (Urine)",
			SNOMED:  "225250006",
			LOINC:   "25145-4",
		},
	}}
}
