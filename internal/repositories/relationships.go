package repositories

import (
	"context"
	"errors"

	"github.com/uptrace/bun"

	"github.com/loyd0/LoydFam-sub000/internal/models"
)

// ErrSelfEdge rejects an edge whose two ends are the same person.
var ErrSelfEdge = errors.New("edge connects a person to themselves")

// UpsertParentChild stores the edge once. A stored edge keeps its type.
func UpsertParentChild(ctx context.Context, db bun.IDB, edge *models.ParentChild) error {
	if edge.ParentID == edge.ChildID {
		return ErrSelfEdge
	}
	_, err := db.NewInsert().
		Model(edge).
		On("CONFLICT (parent_id, child_id) DO NOTHING").
		Exec(ctx)
	return err
}

// UpsertPartnership stores the edge under its ordered pair. A repeated pair
// keeps its stored type, notes and marriage event wherever the new values
// are blank.
func UpsertPartnership(ctx context.Context, db bun.IDB, p *models.Partnership) error {
	p.Normalize()
	if p.IsSelf() {
		return ErrSelfEdge
	}
	if p.Type == "" {
		p.Type = models.PartnershipUnknown
	}
	_, err := db.NewInsert().
		Model(p).
		On("CONFLICT (person_a_id, person_b_id) DO UPDATE").
		Set("type = CASE WHEN EXCLUDED.type = ? THEN ?TableAlias.type ELSE EXCLUDED.type END", models.PartnershipUnknown).
		Set("marriage_event_id = COALESCE(EXCLUDED.marriage_event_id, ?TableAlias.marriage_event_id)").
		Set("notes = COALESCE(EXCLUDED.notes, ?TableAlias.notes)").
		Set("updated_at = CURRENT_TIMESTAMP").
		Exec(ctx)
	return err
}

// UpsertContact replaces the person's contact wholesale.
func UpsertContact(ctx context.Context, db bun.IDB, c *models.Contact) error {
	if c.Emails == nil {
		c.Emails = models.StringArray{}
	}
	if c.Phones == nil {
		c.Phones = models.StringArray{}
	}
	if c.Addresses == nil {
		c.Addresses = models.StringArray{}
	}
	_, err := db.NewInsert().
		Model(c).
		On("CONFLICT (person_id) DO UPDATE").
		Set("emails = EXCLUDED.emails").
		Set("phones = EXCLUDED.phones").
		Set("addresses = EXCLUDED.addresses").
		Set("notes = EXCLUDED.notes").
		Set("updated_at = CURRENT_TIMESTAMP").
		Exec(ctx)
	return err
}

// ListParentChild returns every parent-child edge.
func ListParentChild(ctx context.Context, db bun.IDB) ([]*models.ParentChild, error) {
	var edges []*models.ParentChild
	err := db.NewSelect().Model(&edges).OrderExpr("pc.id ASC").Scan(ctx)
	return edges, err
}

// ListPartnerships returns every partnership edge.
func ListPartnerships(ctx context.Context, db bun.IDB) ([]*models.Partnership, error) {
	var partnerships []*models.Partnership
	err := db.NewSelect().Model(&partnerships).OrderExpr("ps.id ASC").Scan(ctx)
	return partnerships, err
}
