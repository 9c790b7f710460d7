package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ParentChild is a directed edge from parent to child. The pair is unique.
type ParentChild struct {
	bun.BaseModel `bun:"table:parent_child,alias:pc"`

	ID        int64      `bun:"id,pk,autoincrement" json:"id"`
	ParentID  int64      `bun:"parent_id,notnull,unique:parent_child_pair" json:"parent_id"`
	ChildID   int64      `bun:"child_id,notnull,unique:parent_child_pair" json:"child_id"`
	Type      ParentType `bun:"type,notnull,default:'UNKNOWN'" json:"type"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Parent *Person `bun:"rel:belongs-to,join:parent_id=id" json:"-"`
	Child  *Person `bun:"rel:belongs-to,join:child_id=id" json:"-"`
}

// Partnership is an undirected edge stored with the lower person id first.
type Partnership struct {
	bun.BaseModel `bun:"table:partnerships,alias:ps"`

	ID              int64           `bun:"id,pk,autoincrement" json:"id"`
	PersonAID       int64           `bun:"person_a_id,notnull,unique:partnership_pair" json:"person_a_id"`
	PersonBID       int64           `bun:"person_b_id,notnull,unique:partnership_pair" json:"person_b_id"`
	Type            PartnershipType `bun:"type,notnull,default:'UNKNOWN'" json:"type"`
	MarriageEventID *int64          `bun:"marriage_event_id" json:"marriage_event_id,omitempty"`
	Notes           *string         `bun:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Normalize orders the pair so that PersonAID < PersonBID.
func (p *Partnership) Normalize() {
	if p.PersonAID > p.PersonBID {
		p.PersonAID, p.PersonBID = p.PersonBID, p.PersonAID
	}
}

// IsSelf reports a malformed edge pointing at the same person twice.
func (p *Partnership) IsSelf() bool {
	return p.PersonAID == p.PersonBID
}

// Contact holds reachability details; at most one per person.
type Contact struct {
	bun.BaseModel `bun:"table:contacts,alias:ct"`

	ID        int64       `bun:"id,pk,autoincrement" json:"id"`
	PersonID  int64       `bun:"person_id,notnull,unique" json:"person_id"`
	Emails    StringArray `bun:"emails,type:json,notnull" json:"emails"`
	Phones    StringArray `bun:"phones,type:json,notnull" json:"phones"`
	Addresses StringArray `bun:"addresses,type:json,notnull" json:"addresses"`
	Notes     *string     `bun:"notes" json:"notes,omitempty"`
	CreatedAt time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time   `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// IsEmpty reports whether the contact carries no information at all.
func (c *Contact) IsEmpty() bool {
	return len(c.Emails) == 0 && len(c.Phones) == 0 && len(c.Addresses) == 0 && c.Notes == nil
}
