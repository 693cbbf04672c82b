package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DistributionMode tells whether tickets are routed automatically.
type DistributionMode string

const (
	DistributionManual    DistributionMode = "MANUAL"
	DistributionAutomatic DistributionMode = "AUTOMATIC"
)

// Valid reports whether the mode is known.
func (m DistributionMode) Valid() bool {
	return m == DistributionManual || m == DistributionAutomatic
}

// Priority is ordered from lowest to highest.
type Priority int

const (
	PriorityLowest Priority = iota + 1
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityHighest
)

var priorityNames = map[Priority]string{
	PriorityLowest:  "LOWEST",
	PriorityLow:     "LOW",
	PriorityMedium:  "MEDIUM",
	PriorityHigh:    "HIGH",
	PriorityHighest: "HIGHEST",
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// Valid reports whether the priority is one of the five levels.
func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

// MarshalText encodes the priority by name.
func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown priority %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a priority name.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePriority converts a case-insensitive name into a Priority.
func ParsePriority(name string) (Priority, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for p, n := range priorityNames {
		if n == upper {
			return p, nil
		}
	}
	return 0, &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown value %q", name)}
}

// MaxEstimatedMinutes is 180 days.
const MaxEstimatedMinutes = 259200

// Activity is a requestable task template owned by a resolver department.
type Activity struct {
	ID                 int64
	Name               string
	Description        string
	Active             bool
	ResolverDepartment string
	Distribution       DistributionMode
	Priority           Priority
	EstimatedMinutes   uint32
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ActivityFields carries the editable business fields of an activity.
type ActivityFields struct {
	Name               string
	Description        string
	Active             bool
	ResolverDepartment string
	Distribution       DistributionMode
	Priority           Priority
	EstimatedMinutes   uint32
}

// NewActivity validates every field and builds an activity.
func NewActivity(fields ActivityFields) (*Activity, error) {
	a := &Activity{}
	if err := a.Edit(fields); err != nil {
		return nil, err
	}
	return a, nil
}

// Edit replaces the business fields. Nothing changes when validation fails.
func (a *Activity) Edit(fields ActivityFields) error {
	if err := validateActivityFields(fields); err != nil {
		return err
	}
	a.Name = fields.Name
	a.Description = fields.Description
	a.Active = fields.Active
	a.ResolverDepartment = fields.ResolverDepartment
	a.Distribution = fields.Distribution
	a.Priority = fields.Priority
	a.EstimatedMinutes = fields.EstimatedMinutes
	return nil
}

// Fields returns the editable fields of the activity.
func (a *Activity) Fields() ActivityFields {
	return ActivityFields{
		Name:               a.Name,
		Description:        a.Description,
		Active:             a.Active,
		ResolverDepartment: a.ResolverDepartment,
		Distribution:       a.Distribution,
		Priority:           a.Priority,
		EstimatedMinutes:   a.EstimatedMinutes,
	}
}

// Snapshot captures the fields a ticket keeps from its activity.
func (a *Activity) Snapshot() ActivitySnapshot {
	return ActivitySnapshot{
		ID:                 a.ID,
		Name:               a.Name,
		ResolverDepartment: a.ResolverDepartment,
		Distribution:       a.Distribution,
		Priority:           a.Priority,
		EstimatedMinutes:   a.EstimatedMinutes,
	}
}

func validateActivityFields(f ActivityFields) error {
	if err := checkText("name", f.Name, 5, 50); err != nil {
		return err
	}
	if err := checkText("description", f.Description, 5, 500); err != nil {
		return err
	}
	if strings.TrimSpace(f.ResolverDepartment) == "" {
		return &ValidationError{Field: "resolver_department", Reason: "must be provided"}
	}
	if !f.Distribution.Valid() {
		return &ValidationError{Field: "distribution", Reason: fmt.Sprintf("unknown value %q", f.Distribution)}
	}
	if !f.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown value %d", int(f.Priority))}
	}
	if f.EstimatedMinutes == 0 {
		return &ValidationError{Field: "estimated_minutes", Reason: "must be greater than 0"}
	}
	if f.EstimatedMinutes > MaxEstimatedMinutes {
		return &ValidationError{Field: "estimated_minutes", Reason: "must not exceed 259200 minutes (180 days)"}
	}
	return nil
}

func checkText(field, value string, min, max int) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "must not be empty or blank"}
	}
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must contain between %d and %d characters", min, max)}
	}
	return nil
}
