package upsert

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/loyd0/LoydFam-sub000/internal/canonical"
	"github.com/loyd0/LoydFam-sub000/internal/metrics"
	"github.com/loyd0/LoydFam-sub000/internal/models"
	"github.com/loyd0/LoydFam-sub000/internal/repositories"
)

// IDMap resolves external keys to stored person ids.
type IDMap map[string]int64

// Stats counts what the orchestrator wrote.
type Stats struct {
	PeopleCreated int `json:"people_created"`
	PeopleUpdated int `json:"people_updated"`
	EventsCreated int `json:"events_created"`
	EventsUpdated int `json:"events_updated"`
	ParentChild   int `json:"parent_child"`
	Partnerships  int `json:"partnerships"`
	Contacts      int `json:"contacts"`
	Skipped       int `json:"skipped"`
	Unresolved    int `json:"unresolved"`
	Batches       int `json:"batches"`
}

// People returns the number of people created or updated.
func (s Stats) People() int { return s.PeopleCreated + s.PeopleUpdated }

// Events returns the number of events created or updated.
func (s Stats) Events() int { return s.EventsCreated + s.EventsUpdated }

// Result is the outcome of one Upsert call.
type Result struct {
	IDs   IDMap
	Stats Stats
}

// Orchestrator writes canonical candidates in dependency order: people,
// then events, then edges and contacts.
type Orchestrator struct {
	batcher *Batcher
	log     *zap.Logger
}

// New creates an orchestrator.
func New(db *bun.DB, opts Options) *Orchestrator {
	opts.applyDefaults()
	return &Orchestrator{batcher: NewBatcher(db, opts), log: opts.Logger}
}

// Upsert makes the store match res. A returned error is fatal for the run;
// the partial Result still reports what was committed.
func (o *Orchestrator) Upsert(ctx context.Context, res *canonical.Result) (*Result, error) {
	out := &Result{IDs: make(IDMap, len(res.People))}

	if err := o.upsertPeople(ctx, res.People, out); err != nil {
		return out, err
	}
	eventIDs, err := o.upsertEvents(ctx, res.Events, out)
	if err != nil {
		return out, err
	}
	if err := o.upsertParentChild(ctx, res.ParentChild, out); err != nil {
		return out, err
	}
	if err := o.upsertPartnerships(ctx, res.Partnerships, eventIDs, out); err != nil {
		return out, err
	}
	if err := o.upsertContacts(ctx, res.Contacts, out); err != nil {
		return out, err
	}

	o.log.Info("upsert finished",
		zap.Int("people", out.Stats.People()),
		zap.Int("events", out.Stats.Events()),
		zap.Int("parent_child", out.Stats.ParentChild),
		zap.Int("partnerships", out.Stats.Partnerships),
		zap.Int("contacts", out.Stats.Contacts),
		zap.Int("skipped", out.Stats.Skipped),
		zap.Int("batches", out.Stats.Batches))
	return out, nil
}

func (o *Orchestrator) upsertPeople(ctx context.Context, people []*canonical.Person, out *Result) error {
	n, err := o.batcher.Run(ctx, "people", len(people), func(ctx context.Context, tx bun.Tx, lo, hi int) (func(), error) {
		chunk := people[lo:hi]
		keys := make([]string, len(chunk))
		for i, c := range chunk {
			keys[i] = c.ExternalKey
		}

		existing, err := repositories.PeopleByKeys(ctx, tx, keys)
		if err != nil {
			return nil, fmt.Errorf("load people: %w", err)
		}

		ids := make(IDMap, len(chunk))
		var inserts []*models.Person
		for _, c := range chunk {
			p, ok := existing[c.ExternalKey]
			if !ok {
				inserts = append(inserts, newPerson(c))
				continue
			}
			mergePerson(p, c)
			if err := repositories.UpdatePerson(ctx, tx, p); err != nil {
				return nil, fmt.Errorf("update person %s: %w", c.ExternalKey, err)
			}
			ids[p.PrimaryExternalKey] = p.ID
		}
		if err := repositories.InsertPeople(ctx, tx, inserts); err != nil {
			return nil, fmt.Errorf("insert people: %w", err)
		}
		for _, p := range inserts {
			ids[p.PrimaryExternalKey] = p.ID
		}

		updated := len(chunk) - len(inserts)
		created := len(inserts)
		return func() {
			for k, id := range ids {
				out.IDs[k] = id
			}
			out.Stats.PeopleCreated += created
			out.Stats.PeopleUpdated += updated
		}, nil
	})
	out.Stats.Batches += n
	return err
}

type eventRef struct {
	personKey string
	eventType models.EventType
}

func (o *Orchestrator) upsertEvents(ctx context.Context, events []*canonical.Event, out *Result) (map[eventRef]int64, error) {
	eventIDs := make(map[eventRef]int64, len(events))

	n, err := o.batcher.Run(ctx, "events", len(events), func(ctx context.Context, tx bun.Tx, lo, hi int) (func(), error) {
		ids := make(map[eventRef]int64, hi-lo)
		created, updated, skipped, unresolved := 0, 0, 0, 0

		for _, c := range events[lo:hi] {
			personID, ok := out.IDs[c.PersonKey]
			if !ok {
				unresolved++
				continue
			}

			var isNew bool
			var eventID int64
			err := isolate(ctx, tx, func(ctx context.Context, tx bun.Tx) error {
				var err error
				eventID, isNew, err = o.upsertEvent(ctx, tx, personID, c, out.IDs)
				return err
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				skipped++
				o.skip("events", c.PersonKey, err)
				continue
			}

			ids[eventRef{personKey: c.PersonKey, eventType: c.Type}] = eventID
			if isNew {
				created++
			} else {
				updated++
			}
		}

		return func() {
			for k, id := range ids {
				eventIDs[k] = id
			}
			out.Stats.EventsCreated += created
			out.Stats.EventsUpdated += updated
			out.Stats.Skipped += skipped
			out.Stats.Unresolved += unresolved
		}, nil
	})
	out.Stats.Batches += n
	return eventIDs, err
}

// upsertEvent finds the event the person holds under (role, type) and
// updates it, or creates and links a new one. Not safe against concurrent
// writers touching the same person.
func (o *Orchestrator) upsertEvent(ctx context.Context, tx bun.Tx, personID int64, c *canonical.Event, ids IDMap) (int64, bool, error) {
	existing, err := repositories.FindPersonEvent(ctx, tx, personID, c.Role, c.Type)
	if err != nil {
		return 0, false, err
	}

	isNew := existing == nil
	if isNew {
		e := newEvent(c)
		if err := repositories.InsertEvent(ctx, tx, e); err != nil {
			return 0, false, err
		}
		link := &models.PersonEvent{PersonID: personID, EventID: e.ID, Role: c.Role}
		if err := repositories.LinkPersonEvent(ctx, tx, link); err != nil {
			return 0, false, err
		}
		existing = e
	} else {
		applyEvent(existing, c)
		if err := repositories.UpdateEvent(ctx, tx, existing); err != nil {
			return 0, false, err
		}
	}

	for _, p := range c.Participants {
		pid, ok := ids[p.PersonKey]
		if !ok {
			continue
		}
		link := &models.PersonEvent{PersonID: pid, EventID: existing.ID, Role: p.Role}
		if err := repositories.LinkPersonEvent(ctx, tx, link); err != nil {
			return 0, false, err
		}
	}
	return existing.ID, isNew, nil
}

func (o *Orchestrator) upsertParentChild(ctx context.Context, edges []*canonical.ParentChild, out *Result) error {
	n, err := o.batcher.Run(ctx, "parent_child", len(edges), func(ctx context.Context, tx bun.Tx, lo, hi int) (func(), error) {
		written, skipped, unresolved := 0, 0, 0
		for _, c := range edges[lo:hi] {
			parentID, okParent := out.IDs[c.ParentKey]
			childID, okChild := out.IDs[c.ChildKey]
			if !okParent || !okChild {
				unresolved++
				continue
			}

			edge := &models.ParentChild{ParentID: parentID, ChildID: childID, Type: c.Type}
			err := isolate(ctx, tx, func(ctx context.Context, tx bun.Tx) error {
				return repositories.UpsertParentChild(ctx, tx, edge)
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				skipped++
				o.skip("parent_child", c.ChildKey, err)
				continue
			}
			written++
		}
		return func() {
			out.Stats.ParentChild += written
			out.Stats.Skipped += skipped
			out.Stats.Unresolved += unresolved
		}, nil
	})
	out.Stats.Batches += n
	return err
}

func (o *Orchestrator) upsertPartnerships(ctx context.Context, partnerships []*canonical.Partnership, eventIDs map[eventRef]int64, out *Result) error {
	n, err := o.batcher.Run(ctx, "partnerships", len(partnerships), func(ctx context.Context, tx bun.Tx, lo, hi int) (func(), error) {
		written, skipped, unresolved := 0, 0, 0
		for _, c := range partnerships[lo:hi] {
			a, okA := out.IDs[c.PersonKeyA]
			b, okB := out.IDs[c.PersonKeyB]
			if !okA || !okB {
				unresolved++
				continue
			}

			p := &models.Partnership{PersonAID: a, PersonBID: b, Type: c.Type, Notes: c.Notes}
			if p.Type == "" {
				p.Type = models.PartnershipUnknown
			}
			if c.MarriageEventOwner != "" {
				if id, ok := eventIDs[eventRef{personKey: c.MarriageEventOwner, eventType: models.EventMarriage}]; ok {
					p.MarriageEventID = &id
				}
			}

			err := isolate(ctx, tx, func(ctx context.Context, tx bun.Tx) error {
				return repositories.UpsertPartnership(ctx, tx, p)
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				skipped++
				o.skip("partnerships", c.PersonKeyA, err)
				continue
			}
			written++
		}
		return func() {
			out.Stats.Partnerships += written
			out.Stats.Skipped += skipped
			out.Stats.Unresolved += unresolved
		}, nil
	})
	out.Stats.Batches += n
	return err
}

func (o *Orchestrator) upsertContacts(ctx context.Context, contacts []*canonical.Contact, out *Result) error {
	n, err := o.batcher.Run(ctx, "contacts", len(contacts), func(ctx context.Context, tx bun.Tx, lo, hi int) (func(), error) {
		written, skipped, unresolved := 0, 0, 0
		for _, c := range contacts[lo:hi] {
			personID, ok := out.IDs[c.PersonKey]
			if !ok {
				unresolved++
				continue
			}

			contact := newContact(personID, c)
			err := isolate(ctx, tx, func(ctx context.Context, tx bun.Tx) error {
				return repositories.UpsertContact(ctx, tx, contact)
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				skipped++
				o.skip("contacts", c.PersonKey, err)
				continue
			}
			written++
		}
		return func() {
			out.Stats.Contacts += written
			out.Stats.Skipped += skipped
			out.Stats.Unresolved += unresolved
		}, nil
	})
	out.Stats.Batches += n
	return err
}

func (o *Orchestrator) skip(entity, key string, err error) {
	metrics.ItemsSkipped.WithLabelValues(entity).Inc()
	o.log.Warn("skipping item",
		zap.String("entity", entity),
		zap.String("key", key),
		zap.Error(err))
}
