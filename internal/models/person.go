package models

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// Person is one individual, real or placeholder, identified by a stable external key.
type Person struct {
	bun.BaseModel `bun:"table:people,alias:p"`

	ID                   int64     `bun:"id,pk,autoincrement" json:"id"`
	PrimaryExternalKey   string    `bun:"primary_external_key,unique,notnull" json:"primary_external_key"`
	Surname              *string   `bun:"surname" json:"surname,omitempty"`
	GivenName1           *string   `bun:"given_name1" json:"given_name1,omitempty"`
	GivenName2           *string   `bun:"given_name2" json:"given_name2,omitempty"`
	GivenName3           *string   `bun:"given_name3" json:"given_name3,omitempty"`
	KnownAs              *string   `bun:"known_as" json:"known_as,omitempty"`
	PreferredName        *string   `bun:"preferred_name" json:"preferred_name,omitempty"`
	DisplayName          string    `bun:"display_name,notnull" json:"display_name"`
	Gender               Gender    `bun:"gender,notnull,default:'UNKNOWN'" json:"gender"`
	IsPlaceholder        bool      `bun:"is_placeholder,notnull" json:"is_placeholder"`
	Biography            *string   `bun:"biography" json:"biography,omitempty"`
	Occupation           *string   `bun:"occupation" json:"occupation,omitempty"`
	Notes                *string   `bun:"notes" json:"notes,omitempty"`
	Residency            *string   `bun:"residency" json:"residency,omitempty"`
	Generation           *int      `bun:"generation" json:"generation,omitempty"`
	DescendantGeneration *int      `bun:"descendant_generation" json:"descendant_generation,omitempty"`
	CreatedAt            time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt            time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Events   []*PersonEvent `bun:"rel:has-many,join:id=person_id" json:"events,omitempty"`
	Contact  *Contact       `bun:"rel:has-one,join:id=person_id" json:"contact,omitempty"`
	Children []*ParentChild `bun:"rel:has-many,join:id=parent_id" json:"children,omitempty"`
	Parents  []*ParentChild `bun:"rel:has-many,join:id=child_id" json:"parents,omitempty"`
}

// BeforeUpdate updates the timestamp on modifications.
func (p *Person) BeforeUpdate(ctx context.Context, query *bun.UpdateQuery) error {
	p.UpdatedAt = time.Now()
	return nil
}

// Validate checks that required person fields are present.
func (p *Person) Validate() error {
	if p.PrimaryExternalKey == "" {
		return errors.New("external key is required")
	}
	if p.DisplayName == "" {
		return errors.New("display name is required")
	}
	switch p.Gender {
	case GenderMale, GenderFemale, GenderUnknown:
	default:
		return errors.New("gender must be MALE, FEMALE or UNKNOWN")
	}
	return nil
}

// FirstName returns the first given name, or "" when none is known.
func (p *Person) FirstName() string {
	if p.GivenName1 == nil {
		return ""
	}
	return *p.GivenName1
}

// HasKnownGender reports whether gender resolved to male or female.
func (p *Person) HasKnownGender() bool {
	return p.Gender == GenderMale || p.Gender == GenderFemale
}
