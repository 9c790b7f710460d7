package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Gender of a person.
type Gender string

const (
	GenderMale    Gender = "MALE"
	GenderFemale  Gender = "FEMALE"
	GenderUnknown Gender = "UNKNOWN"
)

// Opposite returns the inferred partner gender. Unknown stays unknown.
func (g Gender) Opposite() Gender {
	switch g {
	case GenderMale:
		return GenderFemale
	case GenderFemale:
		return GenderMale
	default:
		return GenderUnknown
	}
}

// EventType classifies a dated occurrence.
type EventType string

const (
	EventBirth     EventType = "BIRTH"
	EventDeath     EventType = "DEATH"
	EventMarriage  EventType = "MARRIAGE"
	EventResidence EventType = "RESIDENCE"
	EventOther     EventType = "OTHER"
)

// EventRole is the part a person plays in an event.
type EventRole string

const (
	RoleSubject EventRole = "SUBJECT"
	RoleSpouse  EventRole = "SPOUSE"
	RoleChild   EventRole = "CHILD"
)

// ParentType qualifies a parent-child edge.
type ParentType string

const (
	ParentBiological ParentType = "BIOLOGICAL"
	ParentStep       ParentType = "STEP"
	ParentAdoptive   ParentType = "ADOPTIVE"
	ParentUnknown    ParentType = "UNKNOWN"
)

// PartnershipType qualifies a partnership edge.
type PartnershipType string

const (
	PartnershipMarriage PartnershipType = "MARRIAGE"
	PartnershipPartner  PartnershipType = "PARTNER"
	PartnershipUnknown  PartnershipType = "UNKNOWN"
)

// RunStatus is the life-cycle state of an import run.
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// Severity of an import issue.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// IssueCode is the closed taxonomy of validation findings.
type IssueCode string

const (
	IssueMissingDOB          IssueCode = "MISSING_DOB"
	IssueDeathYearOnly       IssueCode = "DEATH_YEAR_ONLY"
	IssueMissingGender       IssueCode = "MISSING_GENDER"
	IssueFutureBirth         IssueCode = "FUTURE_BIRTH"
	IssueFutureDeath         IssueCode = "FUTURE_DEATH"
	IssueDeathBeforeBirth    IssueCode = "DEATH_BEFORE_BIRTH"
	IssueImplausibleLifespan IssueCode = "IMPLAUSIBLE_LIFESPAN"
	IssueParentAfterChild    IssueCode = "PARENT_AFTER_CHILD"
	IssuePossibleDuplicate   IssueCode = "POSSIBLE_DUPLICATE"
	IssueParentTypeConflict  IssueCode = "PARENT_TYPE_CONFLICT"
)

// StringArray stores a slice of strings as JSON.
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return errors.New("failed to scan StringArray")
	}

	return json.Unmarshal(bytes, s)
}

// JSONMap stores free-form structured data (summaries, issue metadata) as JSON.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return errors.New("failed to scan JSONMap")
	}

	return json.Unmarshal(bytes, m)
}

// RawJSON keeps an already-encoded JSON document byte for byte.
type RawJSON []byte

func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return string(r), nil
}

func (r *RawJSON) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return errors.New("failed to scan RawJSON")
	}

	*r = append((*r)[:0], bytes...)
	return nil
}

// MarshalJSON emits the stored document unchanged.
func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported column type")
	}
}
