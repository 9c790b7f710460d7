package upsert

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/loyd0/LoydFam-sub000/internal/canonical"
	"github.com/loyd0/LoydFam-sub000/internal/models"
	"github.com/loyd0/LoydFam-sub000/internal/ratelimit"
	"github.com/loyd0/LoydFam-sub000/internal/repositories"
	"github.com/loyd0/LoydFam-sub000/internal/testutil"
)

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func candidatePeople(n int) *canonical.Result {
	res := canonical.NewResult()
	for i := 1; i <= n; i++ {
		res.AddPerson(&canonical.Person{
			ExternalKey: fmt.Sprintf("FAM:%d", i),
			DisplayName: fmt.Sprintf("Person %d", i),
			Gender:      models.GenderUnknown,
		})
	}
	return res
}

func TestBatchBoundaries(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	o := New(db, Options{BatchSize: 100})
	out, err := o.Upsert(ctx, candidatePeople(250))
	require.NoError(t, err)

	assert.Equal(t, 250, out.Stats.PeopleCreated)
	assert.Equal(t, 0, out.Stats.PeopleUpdated)
	assert.Equal(t, 3, out.Stats.Batches)
	assert.Len(t, out.IDs, 250)
	assert.Equal(t, 250, testutil.Count(t, db, (*models.Person)(nil)))

	seen := make(map[int64]bool, len(out.IDs))
	for _, id := range out.IDs {
		require.NotZero(t, id)
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}

	again, err := o.Upsert(ctx, candidatePeople(250))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Stats.PeopleCreated)
	assert.Equal(t, 250, again.Stats.PeopleUpdated)
	assert.Equal(t, out.IDs, again.IDs)
	assert.Equal(t, 250, testutil.Count(t, db, (*models.Person)(nil)))
}

func TestBatcherChunks(t *testing.T) {
	db := testutil.NewDB(t)
	b := NewBatcher(db, Options{BatchSize: 4})

	var spans [][2]int
	n, err := b.Run(context.Background(), "test", 10, func(ctx context.Context, tx bun.Tx, lo, hi int) (func(), error) {
		return func() { spans = append(spans, [2]int{lo, hi}) }, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, b.Batches(10))
	assert.Equal(t, [][2]int{{0, 4}, {4, 8}, {8, 10}}, spans)

	n, err = b.Run(context.Background(), "test", 0, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBatchFailureKeepsCommittedChunks(t *testing.T) {
	db := testutil.NewDB(t)
	b := NewBatcher(db, Options{BatchSize: 2})
	boom := errors.New("boom")

	n, err := b.Run(context.Background(), "people", 6, func(ctx context.Context, tx bun.Tx, lo, hi int) (func(), error) {
		if lo == 4 {
			return nil, boom
		}
		for i := lo; i < hi; i++ {
			p := &models.Person{PrimaryExternalKey: fmt.Sprintf("FAM:%d", i), DisplayName: "x", Gender: models.GenderUnknown}
			if err := repositories.InsertPeople(ctx, tx, []*models.Person{p}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	require.Error(t, err)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, ErrBatchFailed)
	assert.ErrorIs(t, err, boom)

	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 3, be.Batch)
	assert.Equal(t, 4, be.Offset)
	assert.Equal(t, 4, testutil.Count(t, db, (*models.Person)(nil)))
}

func TestBatchRetryRecoversRolledBackChunk(t *testing.T) {
	db := testutil.NewDB(t)
	limiter := ratelimit.NewLimiter(ratelimit.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	b := NewBatcher(db, Options{BatchSize: 2, Limiter: limiter})

	attempts := 0
	n, err := b.Run(context.Background(), "people", 2, func(ctx context.Context, tx bun.Tx, lo, hi int) (func(), error) {
		attempts++
		p := &models.Person{PrimaryExternalKey: "FAM:1", DisplayName: "x", Gender: models.GenderUnknown}
		if err := repositories.InsertPeople(ctx, tx, []*models.Person{p}); err != nil {
			return nil, err
		}
		if attempts == 1 {
			return nil, errors.New("database is locked")
		}
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, testutil.Count(t, db, (*models.Person)(nil)))
}

func TestCancelledContextFailsBatch(t *testing.T) {
	db := testutil.NewDB(t)
	o := New(db, Options{BatchSize: 10, TxTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Upsert(ctx, candidatePeople(3))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBatchFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, testutil.Count(t, db, (*models.Person)(nil)))
}

func TestIsolateRollsBackOnlyTheFailingItem(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	insert := func(key string) func(ctx context.Context, tx bun.Tx) error {
		return func(ctx context.Context, tx bun.Tx) error {
			p := &models.Person{PrimaryExternalKey: key, DisplayName: key, Gender: models.GenderUnknown}
			return repositories.InsertPeople(ctx, tx, []*models.Person{p})
		}
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		require.NoError(t, isolate(ctx, tx, insert("FAM:1")))
		assert.Error(t, isolate(ctx, tx, insert("FAM:1")), "duplicate key must fail")
		require.NoError(t, isolate(ctx, tx, insert("FAM:2")))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, testutil.Count(t, db, (*models.Person)(nil)))
}

func TestUpsertGraph(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	build := func(bio *string) *canonical.Result {
		res := canonical.NewResult()
		res.AddPerson(&canonical.Person{ExternalKey: "FAM:1", DisplayName: "Arthur", Gender: models.GenderMale, Biography: bio})
		res.AddPerson(&canonical.Person{ExternalKey: "FAM:2", DisplayName: "Mary", Gender: models.GenderFemale})
		res.AddPerson(&canonical.Person{ExternalKey: "FAM:3", DisplayName: "Ivy", Gender: models.GenderFemale})
		res.AddEvent(&canonical.Event{PersonKey: "FAM:1", Type: models.EventBirth, Date: canonical.ParseDate(1842.0)})
		res.AddEvent(&canonical.Event{
			PersonKey:    "FAM:1",
			Type:         models.EventMarriage,
			Date:         canonical.ParseDate("1870"),
			Participants: []canonical.Participant{{PersonKey: "FAM:2", Role: models.RoleSpouse}},
		})
		res.AddParentChild(&canonical.ParentChild{ParentKey: "FAM:1", ChildKey: "FAM:3", Type: models.ParentBiological}, "test")
		res.AddParentChild(&canonical.ParentChild{ParentKey: "FAM:404", ChildKey: "FAM:3", Type: models.ParentBiological}, "test")
		res.AddPartnership(&canonical.Partnership{PersonKeyA: "FAM:2", PersonKeyB: "FAM:1", Type: models.PartnershipMarriage, MarriageEventOwner: "FAM:1"})
		res.SetContact(&canonical.Contact{PersonKey: "FAM:3", Emails: []string{"ivy@example.com"}})
		return res
	}

	o := New(db, Options{BatchSize: 2})
	first, err := o.Upsert(ctx, build(strPtr("Sailor")))
	require.NoError(t, err)
	assert.Equal(t, 2, first.Stats.EventsCreated)
	assert.Equal(t, 1, first.Stats.ParentChild)
	assert.Equal(t, 1, first.Stats.Unresolved)
	assert.Equal(t, 1, first.Stats.Partnerships)
	assert.Equal(t, 1, first.Stats.Contacts)

	second, err := o.Upsert(ctx, build(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Stats.EventsCreated)
	assert.Equal(t, 2, second.Stats.EventsUpdated)

	assert.Equal(t, 3, testutil.Count(t, db, (*models.Person)(nil)))
	assert.Equal(t, 2, testutil.Count(t, db, (*models.Event)(nil)))
	assert.Equal(t, 3, testutil.Count(t, db, (*models.PersonEvent)(nil)))
	assert.Equal(t, 1, testutil.Count(t, db, (*models.ParentChild)(nil)))
	assert.Equal(t, 1, testutil.Count(t, db, (*models.Partnership)(nil)))
	assert.Equal(t, 1, testutil.Count(t, db, (*models.Contact)(nil)))

	arthur, err := repositories.GetPersonByKey(ctx, db, "FAM:1")
	require.NoError(t, err)
	require.NotNil(t, arthur.Biography, "a blank candidate field must not clear stored data")
	assert.Equal(t, "Sailor", *arthur.Biography)

	partnerships, err := repositories.ListPartnerships(ctx, db)
	require.NoError(t, err)
	require.Len(t, partnerships, 1)
	ps := partnerships[0]
	assert.Less(t, ps.PersonAID, ps.PersonBID)
	require.NotNil(t, ps.MarriageEventID)

	links, err := repositories.ListPersonEvents(ctx, db, first.IDs["FAM:2"])
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, models.RoleSpouse, links[0].Role)
	assert.Equal(t, *ps.MarriageEventID, links[0].EventID)
}

func TestUpsertEventKeepsStoredDateWhenCandidateHasNone(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	o := New(db, Options{})

	dated := canonical.NewResult()
	dated.AddPerson(&canonical.Person{ExternalKey: "FAM:1", DisplayName: "A", Gender: models.GenderUnknown})
	dated.AddEvent(&canonical.Event{PersonKey: "FAM:1", Type: models.EventResidence, Date: canonical.ParseDate(1921.0)})
	_, err := o.Upsert(ctx, dated)
	require.NoError(t, err)

	undated := canonical.NewResult()
	undated.AddPerson(&canonical.Person{ExternalKey: "FAM:1", DisplayName: "A", Gender: models.GenderUnknown, Generation: intPtr(2)})
	undated.AddEvent(&canonical.Event{PersonKey: "FAM:1", Type: models.EventResidence, Place: strPtr("Bath")})
	out, err := o.Upsert(ctx, undated)
	require.NoError(t, err)

	e, err := repositories.FindPersonEvent(ctx, db, out.IDs["FAM:1"], models.RoleSubject, models.EventResidence)
	require.NoError(t, err)
	require.NotNil(t, e)
	require.NotNil(t, e.Year)
	assert.Equal(t, 1921, *e.Year)
	require.NotNil(t, e.Place)
	assert.Equal(t, "Bath", *e.Place)
}

func TestEventChunksCountEventsNotStatements(t *testing.T) {
	db := testutil.NewDB(t)

	res := candidatePeople(2)
	for _, key := range []string{"FAM:1", "FAM:2"} {
		res.AddEvent(&canonical.Event{PersonKey: key, Type: models.EventBirth, Date: canonical.ParseDate(1842.0)})
		res.AddEvent(&canonical.Event{PersonKey: key, Type: models.EventDeath, Date: canonical.ParseDate(1910.0)})
	}

	// Each event writes the event row and its person link, yet a chunk of two
	// still holds two events.
	out, err := New(db, Options{BatchSize: 2}).Upsert(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Stats.EventsCreated)
	assert.Equal(t, 1+2, out.Stats.Batches)
	assert.Equal(t, 4, testutil.Count(t, db, (*models.PersonEvent)(nil)))
}
