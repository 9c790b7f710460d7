package repositories

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/loyd0/LoydFam-sub000/internal/models"
)

// personColumns are the columns rewritten when an existing person is updated.
var personColumns = []string{
	"surname", "given_name1", "given_name2", "given_name3", "known_as", "preferred_name",
	"display_name", "gender", "is_placeholder", "biography", "occupation", "notes",
	"residency", "generation", "descendant_generation", "updated_at",
}

// PeopleByKeys returns stored people indexed by external key.
func PeopleByKeys(ctx context.Context, db bun.IDB, keys []string) (map[string]*models.Person, error) {
	out := make(map[string]*models.Person, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var people []*models.Person
	err := db.NewSelect().
		Model(&people).
		Where("primary_external_key IN (?)", bun.In(keys)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range people {
		out[p.PrimaryExternalKey] = p
	}
	return out, nil
}

// InsertPeople bulk-inserts people that do not exist yet.
func InsertPeople(ctx context.Context, db bun.IDB, people []*models.Person) error {
	if len(people) == 0 {
		return nil
	}
	_, err := db.NewInsert().Model(&people).Returning("id").Exec(ctx)
	return err
}

// UpdatePerson rewrites the mutable columns of a stored person.
func UpdatePerson(ctx context.Context, db bun.IDB, p *models.Person) error {
	_, err := db.NewUpdate().
		Model(p).
		Column(personColumns...).
		WherePK().
		Exec(ctx)
	return err
}

// GetPersonByKey fetches a person with events, contact and edges.
func GetPersonByKey(ctx context.Context, db bun.IDB, key string) (*models.Person, error) {
	p := new(models.Person)
	err := db.NewSelect().
		Model(p).
		Relation("Events").
		Relation("Events.Event").
		Relation("Contact").
		Relation("Children").
		Relation("Parents").
		Where("p.primary_external_key = ?", key).
		Scan(ctx)
	return p, err
}

// PeopleFilter narrows ListPeople.
type PeopleFilter struct {
	IncludePlaceholders bool
	Limit               int
	Offset              int
}

// ListPeople returns people ordered by display name with their role-tagged events.
func ListPeople(ctx context.Context, db bun.IDB, f PeopleFilter) ([]*models.Person, error) {
	var people []*models.Person
	q := db.NewSelect().
		Model(&people).
		Relation("Events").
		Relation("Events.Event").
		OrderExpr("p.display_name ASC").
		OrderExpr("p.id ASC")
	if !f.IncludePlaceholders {
		q = q.Where("p.is_placeholder = ?", false)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	err := q.Scan(ctx)
	return people, err
}
