package extract

import (
	"regexp"
	"sort"

	"github.com/kidneysync/platform/pkg/common/models"
)

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// Extractor parses free-form report text into a partial raw record. It is
// pure and stateless: safe to share across requests without coordination.
type Extractor struct {
	rules []compiledRule
}

func NewExtractor(cfg RulesConfig) (*Extractor, error) {
	var compiled []compiledRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(`(?i)` + rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}

	// Longer patterns first, so when two rules target the same field the
	// more specific one wins deterministically.
	sort.SliceStable(compiled, func(i, j int) bool {
		return len(compiled[i].rule.Pattern) > len(compiled[j].rule.Pattern)
	})

	return &Extractor{rules: compiled}, nil
}

// Extract searches text for each rule's first occurrence and returns the
// captured values keyed by field name. Fields with no match are omitted;
// unmatched or malformed text yields an empty record, never an error.
func (e *Extractor) Extract(text string) models.RawRecord {
	record := models.RawRecord{}
	if e == nil || text == "" {
		return record
	}

	for _, rule := range e.rules {
		if _, seen := record[rule.rule.Field]; seen {
			continue
		}
		match := rule.re.FindStringSubmatch(text)
		if len(match) > 1 {
			record[rule.rule.Field] = match[1]
		}
	}

	return record
}
