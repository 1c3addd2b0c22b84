package cohort

import (
	"regexp"
	"strings"
	"unicode"

	"her2lab/domain/core"
)

// DefaultSignalPreference is the ordered list of pathway signal columns to
// try. The phospho-HER2 RPPA value is preferred over the pY1248 variant.
var DefaultSignalPreference = []string{"pp_her2", "pp_her2_py1248"}

// HER2ColumnCandidates are the status column spellings seen across dataset
// exports, tried in order.
var HER2ColumnCandidates = []string{"her2_final_status", "her2_status", "her2_status_final"}

var (
	separatorRun = regexp.MustCompile(`[.\-\s]+`)
	camelBound   = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	underscoreRn = regexp.MustCompile(`_+`)
)

// naSentinels are the cell spellings ingested as missing, matching what
// dataframe exports conventionally write for absent values.
var naSentinels = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"#n/a": true,
	"nan":  true,
	"null": true,
	"none": true,
}

// IsMissingCell reports whether a raw cell should be treated as missing
func IsMissingCell(raw string) bool {
	return naSentinels[strings.ToLower(strings.TrimSpace(raw))]
}

// ToSnake converts a raw column header to snake_case: separator runs become
// underscores, camelCase boundaries split, everything lowercases.
func ToSnake(name string) string {
	s := separatorRun.ReplaceAllString(name, "_")
	s = camelBound.ReplaceAllString(s, "${1}_${2}")
	s = strings.ToLower(s)
	s = underscoreRn.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// ResolveSignalColumn picks the first preferred signal column present.
func ResolveSignalColumn(columns []string, preference []string) (core.ColumnKey, error) {
	if len(preference) == 0 {
		preference = DefaultSignalPreference
	}
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	for _, cand := range preference {
		if present[cand] {
			return core.ColumnKey(cand), nil
		}
	}
	return "", core.NewColumnMissingError(preference, columns)
}

// ResolveHER2Column picks the first known HER2 status column present.
func ResolveHER2Column(columns []string) (string, error) {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	for _, cand := range HER2ColumnCandidates {
		if present[cand] {
			return cand, nil
		}
	}
	return "", core.NewColumnMissingError(HER2ColumnCandidates, columns)
}

// NormalizeStatus standardizes a raw status label: trimmed, first letter
// upper, rest lower. "POSITIVE " becomes "Positive".
func NormalizeStatus(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// IsCanonicalStatus reports whether a normalized label is one of the two
// labels the cohort keeps.
func IsCanonicalStatus(s string) bool {
	return s == string(StatusPositive) || s == string(StatusNegative)
}

// positiveSpellings accepts the raw spellings that count as HER2-positive
// for the H indicator.
var positiveSpellings = map[string]bool{
	"positive": true,
	"pos":      true,
	"her2+":    true,
	"1":        true,
	"true":     true,
	"yes":      true,
	"high":     true,
}

// HER2Indicator maps a raw status label to the binary H column.
func HER2Indicator(raw string) int {
	if positiveSpellings[strings.ToLower(strings.TrimSpace(raw))] {
		return 1
	}
	return 0
}

// vitalMapping encodes vital status: 0=alive, 1=deceased. Only these
// spellings map; anything else is an unmapped value.
var vitalMapping = map[string]int{
	"dead":     VitalDeceased,
	"deceased": VitalDeceased,
	"1":        VitalDeceased,
	"alive":    VitalAlive,
	"0":        VitalAlive,
}

// EncodeVitalValue maps one raw vital status cell. The second return is
// false when the value has no known encoding.
func EncodeVitalValue(raw string) (int, bool) {
	v, ok := vitalMapping[strings.ToLower(strings.TrimSpace(raw))]
	return v, ok
}

// EncodeVitalColumn encodes a whole column. Missing cells become
// VitalUnknown; any other unmapped value fails with the first few offending
// row indexes.
func EncodeVitalColumn(values []string) ([]int, error) {
	encoded := make([]int, len(values))
	var badRows []int
	for i, raw := range values {
		if IsMissingCell(raw) {
			encoded[i] = VitalUnknown
			continue
		}
		v, ok := EncodeVitalValue(raw)
		if !ok {
			badRows = append(badRows, i)
			continue
		}
		encoded[i] = v
	}
	if len(badRows) > 0 {
		return nil, core.NewUnmappedValueError("vital_status", badRows)
	}
	return encoded, nil
}

// NormalizeDrugName lowercases and trims a drug name for matching.
func NormalizeDrugName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ClipViability clamps a viability measurement into the plausible assay
// range [0, 200].
func ClipViability(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 200 {
		return 200
	}
	return v
}
