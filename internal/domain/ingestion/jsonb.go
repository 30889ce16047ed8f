package ingestion

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// FieldMap implements GORM Scanner/Valuer for JSONB storage of raw field
// and provenance maps
type FieldMap map[string]string

// Value implements driver.Valuer
func (m FieldMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *FieldMap) Scan(value interface{}) error {
	if value == nil {
		*m = FieldMap{}
		return nil
	}
	bytes, err := jsonbBytes(value, "FieldMap")
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		*m = FieldMap{}
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// StringList implements GORM Scanner/Valuer for JSONB storage of warning
// and error lists
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	bytes, err := jsonbBytes(value, "StringList")
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// ReviewCandidateList implements GORM Scanner/Valuer for JSONB storage of
// resolution candidates on records awaiting review
type ReviewCandidateList []ReviewCandidate

// Value implements driver.Valuer
func (l ReviewCandidateList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *ReviewCandidateList) Scan(value interface{}) error {
	if value == nil {
		*l = ReviewCandidateList{}
		return nil
	}
	bytes, err := jsonbBytes(value, "ReviewCandidateList")
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		*l = ReviewCandidateList{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// ErrorKindCounts implements GORM Scanner/Valuer for the per-kind error
// counts in a run summary
type ErrorKindCounts map[ErrorKind]int

// Value implements driver.Valuer
func (c ErrorKindCounts) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner
func (c *ErrorKindCounts) Scan(value interface{}) error {
	if value == nil {
		*c = ErrorKindCounts{}
		return nil
	}
	bytes, err := jsonbBytes(value, "ErrorKindCounts")
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		*c = ErrorKindCounts{}
		return nil
	}
	return json.Unmarshal(bytes, c)
}

func jsonbBytes(value interface{}, typeName string) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("failed to scan " + typeName + ": unsupported type")
	}
}
