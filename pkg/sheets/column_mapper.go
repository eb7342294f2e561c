package sheets

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sheetpulse/internal/entity"
)

// MissingColumnError is raised for a required mapping whose source column
// cannot be located, or whose header name resolves ambiguously.
type MissingColumnError struct {
	SystemField string
	SheetColumn string
	Reason      string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q for field %q not found: %s", e.SheetColumn, e.SystemField, e.Reason)
}

var columnLetterPattern = regexp.MustCompile(`^[A-Z]+$`)

func isColumnLetter(s string) bool {
	return columnLetterPattern.MatchString(s)
}

// ColumnLetterToIndex converts a spreadsheet column letter (A, B, ..., Z, AA, ...)
// to a 0-based index.
func ColumnLetterToIndex(letter string) int {
	letter = strings.ToUpper(letter)
	result := 0
	for _, ch := range letter {
		result = result*26 + int(ch-'A'+1)
	}
	return result - 1
}

type ColumnMapper struct{}

func NewColumnMapper() *ColumnMapper {
	return &ColumnMapper{}
}

// ColumnIndex resolves a mapping's sheet_column to a 0-based index. A letter
// reference is resolved directly; a header-name reference is looked up in the
// header row and must match exactly one header, or it is ambiguous.
func (m *ColumnMapper) ColumnIndex(sheetColumn string, headers []string) (int, error) {
	if isColumnLetter(sheetColumn) {
		return ColumnLetterToIndex(sheetColumn), nil
	}

	matchIndex := -1
	matchCount := 0
	for i, h := range headers {
		if h == sheetColumn {
			matchCount++
			if matchIndex == -1 {
				matchIndex = i
			}
		}
	}
	if matchCount == 0 {
		return -1, nil
	}
	if matchCount > 1 {
		return -1, fmt.Errorf("header %q matches %d columns ambiguously", sheetColumn, matchCount)
	}
	return matchIndex, nil
}

// ConvertType coerces a raw cell string to the declared data type. On any
// coercion failure it returns the original string rather than failing the
// sync — per the spec, a bad cell never aborts the whole run.
func (m *ColumnMapper) ConvertType(value, dataType string) interface{} {
	if value == "" {
		return value
	}

	switch dataType {
	case "string":
		return value
	case "number":
		cleaned := strings.ReplaceAll(value, ",", ".")
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return value
		}
		return f
	case "integer":
		cleaned := strings.ReplaceAll(value, ",", ".")
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return value
		}
		return int64(f)
	case "date":
		for _, layout := range []string{
			"2006-01-02",
			"02/01/2006",
			"01/02/2006",
			"2006/01/02",
			"02-01-2006",
			"01-02-2006",
		} {
			if t, err := time.Parse(layout, value); err == nil {
				return t
			}
		}
		return value
	default:
		return value
	}
}

// MapRow applies every mapping to a single row, producing the system-field
// document. A missing required column (including an ambiguous header match)
// fails the whole sync; a missing optional column is skipped.
func (m *ColumnMapper) MapRow(row, headers []string, mappings []entity.ColumnMapping) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(mappings))

	for _, mapping := range mappings {
		colIndex, err := m.ColumnIndex(mapping.SheetColumn, headers)
		if err != nil {
			if mapping.Required {
				return nil, &MissingColumnError{SystemField: mapping.SystemField, SheetColumn: mapping.SheetColumn, Reason: err.Error()}
			}
			continue
		}
		if colIndex < 0 {
			if mapping.Required {
				return nil, &MissingColumnError{SystemField: mapping.SystemField, SheetColumn: mapping.SheetColumn, Reason: "column not found"}
			}
			continue
		}

		var value string
		if colIndex < len(row) {
			value = row[colIndex]
		}
		result[mapping.SystemField] = m.ConvertType(value, mapping.DataType)
	}

	return result, nil
}

// GetRawData builds a header-name-keyed view of the row for audit/debug storage.
func (m *ColumnMapper) GetRawData(row, headers []string) map[string]string {
	raw := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(row) {
			raw[h] = row[i]
		} else {
			raw[h] = ""
		}
	}
	return raw
}

// ValidateRequiredColumns fails fast, before any row processing, if a
// required mapping cannot be resolved against the header row.
func (m *ColumnMapper) ValidateRequiredColumns(headers []string, mappings []entity.ColumnMapping) error {
	for _, mapping := range mappings {
		if !mapping.Required {
			continue
		}
		colIndex, err := m.ColumnIndex(mapping.SheetColumn, headers)
		if err != nil {
			return &MissingColumnError{SystemField: mapping.SystemField, SheetColumn: mapping.SheetColumn, Reason: err.Error()}
		}
		if colIndex < 0 {
			return &MissingColumnError{SystemField: mapping.SystemField, SheetColumn: mapping.SheetColumn, Reason: "column not found"}
		}
	}
	return nil
}
