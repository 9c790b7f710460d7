package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Event is a dated occurrence. The date is stored redundantly so partial
// knowledge (year only, free text) survives.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID          int64      `bun:"id,pk,autoincrement" json:"id"`
	Type        EventType  `bun:"type,notnull" json:"type"`
	DateExact   *time.Time `bun:"date_exact" json:"date_exact,omitempty"`
	Year        *int       `bun:"year" json:"year,omitempty"`
	Month       *int       `bun:"month" json:"month,omitempty"`
	Day         *int       `bun:"day" json:"day,omitempty"`
	DateText    *string    `bun:"date_text" json:"date_text,omitempty"`
	IsApprox    bool       `bun:"is_approx,notnull" json:"is_approx"`
	Place       *string    `bun:"place" json:"place,omitempty"`
	Description *string    `bun:"description" json:"description,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	People []*PersonEvent `bun:"rel:has-many,join:id=event_id" json:"people,omitempty"`
}

// BeforeUpdate updates the timestamp on modifications.
func (e *Event) BeforeUpdate(ctx context.Context, query *bun.UpdateQuery) error {
	e.UpdatedAt = time.Now()
	return nil
}

// HasDate reports whether the event carries an exact date or at least a year.
func (e *Event) HasDate() bool {
	return e.DateExact != nil || e.Year != nil
}

// IsYearOnly reports whether only the year is known.
func (e *Event) IsYearOnly() bool {
	return e.DateExact == nil && e.Year != nil && e.Month == nil
}

// PersonEvent links a person to an event under a role.
type PersonEvent struct {
	bun.BaseModel `bun:"table:person_events,alias:pe"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	PersonID  int64     `bun:"person_id,notnull,unique:person_event_role" json:"person_id"`
	EventID   int64     `bun:"event_id,notnull,unique:person_event_role" json:"event_id"`
	Role      EventRole `bun:"role,notnull,unique:person_event_role" json:"role"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Person *Person `bun:"rel:belongs-to,join:person_id=id" json:"-"`
	Event  *Event  `bun:"rel:belongs-to,join:event_id=id" json:"event,omitempty"`
}
