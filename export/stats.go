package export

import (
	"strings"
)

// fieldStats counts, per field path, the records in which the field holds a
// non-empty value.
type fieldStats struct {
	records int
	seen    map[string]bool
	present map[string]int
}

func newFieldStats() *fieldStats {
	return &fieldStats{
		seen:    make(map[string]bool),
		present: make(map[string]int),
	}
}

func (s *fieldStats) add(record map[string]any) {
	s.records++

	all, present := fieldStatus(record, "")
	for field := range all {
		s.seen[field] = true
	}
	for field := range present {
		s.present[field]++
	}
}

// fillRates returns the percentage of records in which each seen field was
// present and non-empty, rounded to two decimals.
func (s *fieldStats) fillRates() map[string]float64 {
	rates := make(map[string]float64, len(s.seen))
	for field := range s.seen {
		var rate float64
		if s.records > 0 {
			rate = float64(s.present[field]) / float64(s.records) * 100
		}
		rates[field] = roundTo2Decimals(rate)
	}

	return rates
}

// isEmptyValue reports whether v carries no information: nil, a blank
// string, or an empty list or object.
func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}

	return false
}

// fieldStatus collects the field paths of obj and the subset holding a
// non-empty value. Nested objects use dot notation; objects inside lists
// use "field[].child".
func fieldStatus(obj map[string]any, prefix string) (all, present map[string]bool) {
	all = make(map[string]bool)
	present = make(map[string]bool)

	merge := func(a, p map[string]bool) {
		for f := range a {
			all[f] = true
		}
		for f := range p {
			present[f] = true
		}
	}

	for key, value := range obj {
		field := key
		if prefix != "" {
			field = prefix + "." + key
		}

		all[field] = true
		if isEmptyValue(value) {
			continue
		}
		present[field] = true

		switch v := value.(type) {
		case map[string]any:
			merge(fieldStatus(v, field))
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					merge(fieldStatus(m, field+"[]"))
				}
			}
		}
	}

	return all, present
}

func roundTo2Decimals(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
