package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/loyd0/LoydFam-sub000/internal/models"
)

// FindPersonEvent returns the event a person holds under a role and type,
// or nil when there is none.
func FindPersonEvent(ctx context.Context, db bun.IDB, personID int64, role models.EventRole, t models.EventType) (*models.Event, error) {
	e := new(models.Event)
	err := db.NewSelect().
		Model(e).
		Join("JOIN person_events AS pe ON pe.event_id = e.id").
		Where("pe.person_id = ?", personID).
		Where("pe.role = ?", role).
		Where("e.type = ?", t).
		OrderExpr("e.id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// InsertEvent creates an event.
func InsertEvent(ctx context.Context, db bun.IDB, e *models.Event) error {
	_, err := db.NewInsert().Model(e).Returning("id").Exec(ctx)
	return err
}

// UpdateEvent rewrites the date, place and description of an event in place.
func UpdateEvent(ctx context.Context, db bun.IDB, e *models.Event) error {
	_, err := db.NewUpdate().
		Model(e).
		Column("date_exact", "year", "month", "day", "date_text", "is_approx", "place", "description", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

// LinkPersonEvent records a person's role in an event once.
func LinkPersonEvent(ctx context.Context, db bun.IDB, link *models.PersonEvent) error {
	_, err := db.NewInsert().
		Model(link).
		On("CONFLICT (person_id, event_id, role) DO NOTHING").
		Exec(ctx)
	return err
}

// ListPersonEvents returns a person's event links with the events attached.
func ListPersonEvents(ctx context.Context, db bun.IDB, personID int64) ([]*models.PersonEvent, error) {
	var links []*models.PersonEvent
	err := db.NewSelect().
		Model(&links).
		Relation("Event").
		Where("pe.person_id = ?", personID).
		OrderExpr("pe.id ASC").
		Scan(ctx)
	return links, err
}
