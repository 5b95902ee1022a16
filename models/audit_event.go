package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Lifecycle event kinds recorded automatically for tracked entities.
// Manual events may use any other tag.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// DefaultLogName is used when neither a log name nor an event kind was given
const DefaultLogName = "default"

// AuditEvent is an append-only audit trail entry
type AuditEvent struct {
	ID          int64      `json:"id" db:"id"`
	LogName     string     `json:"log_name" db:"log_name"`
	Description string     `json:"description" db:"description"`
	SubjectType *string    `json:"subject_type,omitempty" db:"subject_type"`
	SubjectID   *string    `json:"subject_id,omitempty" db:"subject_id"`
	Event       string     `json:"event" db:"event"`
	CauserType  *string    `json:"causer_type,omitempty" db:"causer_type"`
	CauserID    *string    `json:"causer_id,omitempty" db:"causer_id"`
	Properties  Properties `json:"properties" db:"properties"` // JSONB
	BatchUUID   *string    `json:"batch_uuid,omitempty" db:"batch_uuid"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the AuditEvent model
func (AuditEvent) TableName() string {
	return "audit_events"
}

// HasSubject reports whether the event is about a domain entity
func (e *AuditEvent) HasSubject() bool {
	return e.SubjectType != nil && e.SubjectID != nil
}

// Attributes returns the attribute snapshot stored under properties.attributes
func (e *AuditEvent) Attributes() map[string]any {
	attrs, _ := e.Properties["attributes"].(map[string]any)
	return attrs
}

// Clone returns a deep copy that shares no pointers or maps with e
func (e *AuditEvent) Clone() *AuditEvent {
	c := *e
	c.SubjectType = cloneString(e.SubjectType)
	c.SubjectID = cloneString(e.SubjectID)
	c.CauserType = cloneString(e.CauserType)
	c.CauserID = cloneString(e.CauserID)
	c.BatchUUID = cloneString(e.BatchUUID)
	c.Properties = e.Properties.Clone()
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Causer identifies the principal credited with an event
type Causer struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Properties is the structured bag attached to an audit event.
// It is stored as a JSON object.
type Properties map[string]any

// Clone returns a deep copy of the bag. Nested objects and arrays are
// copied too, other values are shared.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Properties:
		return t.Clone()
	case map[string]any:
		return map[string]any(Properties(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Value implements driver.Valuer
func (p Properties) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]any(p))
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit properties: %w", err)
	}
	// lib/pq sends []byte as bytea, which jsonb rejects
	return string(data), nil
}

// Scan implements sql.Scanner
func (p *Properties) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = Properties{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported audit properties type %T", src)
	}

	decoded := Properties{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			return fmt.Errorf("failed to decode audit properties: %w", err)
		}
	}
	*p = decoded
	return nil
}

// AuditFilter holds the optional, AND-combined filters of an audit query.
// Nil fields do not constrain the result.
type AuditFilter struct {
	LogName     *string
	Event       *string
	SubjectType *string
	SubjectID   *string
	CauserID    *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// IsEmpty reports whether no filter is set
func (f AuditFilter) IsEmpty() bool {
	return f.LogName == nil && f.Event == nil && f.SubjectType == nil && f.SubjectID == nil &&
		f.CauserID == nil && f.CreatedFrom == nil && f.CreatedTo == nil
}

// Matches reports whether an event satisfies every set filter
func (f AuditFilter) Matches(e *AuditEvent) bool {
	if f.LogName != nil && e.LogName != *f.LogName {
		return false
	}
	if f.Event != nil && e.Event != *f.Event {
		return false
	}
	if f.SubjectType != nil && (e.SubjectType == nil || *e.SubjectType != *f.SubjectType) {
		return false
	}
	if f.SubjectID != nil && (e.SubjectID == nil || *e.SubjectID != *f.SubjectID) {
		return false
	}
	if f.CauserID != nil && (e.CauserID == nil || *e.CauserID != *f.CauserID) {
		return false
	}
	if f.CreatedFrom != nil && e.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && e.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

// PageRequest selects a 1-based page of results
type PageRequest struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// Offset returns the number of rows to skip, saturating at math.MaxInt
func (p PageRequest) Offset() int {
	if p.Page < 1 || p.Size <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Size
}

// AuditPage is one page of audit events
type AuditPage struct {
	Items      []*AuditEvent `json:"items"`
	Page       int           `json:"page"`
	Size       int           `json:"size"`
	Total      int           `json:"total"`
	TotalPages int           `json:"total_pages"`
}

// NewAuditPage builds a page and computes the page count
func NewAuditPage(items []*AuditEvent, req PageRequest, total int) *AuditPage {
	if items == nil {
		items = []*AuditEvent{}
	}
	pages := 0
	if req.Size > 0 {
		pages = (total + req.Size - 1) / req.Size
	}
	return &AuditPage{
		Items:      items,
		Page:       req.Page,
		Size:       req.Size,
		Total:      total,
		TotalPages: pages,
	}
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
