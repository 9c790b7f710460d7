package canonical

import (
	"sort"

	"github.com/loyd0/LoydFam-sub000/internal/models"
)

// Person is a candidate person resolved by external key.
type Person struct {
	ExternalKey          string
	NaturalID            string
	Surname              *string
	GivenName1           *string
	GivenName2           *string
	GivenName3           *string
	KnownAs              *string
	PreferredName        *string
	DisplayName          string
	Gender               models.Gender
	IsPlaceholder        bool
	Biography            *string
	Occupation           *string
	Notes                *string
	Residency            *string
	Generation           *int
	DescendantGeneration *int

	displaySynthesized bool
}

// Participant is an additional person linked to an event under a role.
type Participant struct {
	PersonKey string
	Role      models.EventRole
}

// Event is a candidate event owned by PersonKey in the subject role.
type Event struct {
	PersonKey    string
	Type         models.EventType
	Role         models.EventRole
	Date         ParsedDate
	Place        *string
	Description  *string
	Participants []Participant
}

// ParentChild is a candidate directed edge.
type ParentChild struct {
	ParentKey string
	ChildKey  string
	Type      models.ParentType
}

// Partnership is a candidate undirected edge between two people.
type Partnership struct {
	PersonKeyA string
	PersonKeyB string
	Type       models.PartnershipType
	// MarriageEventOwner is the person key whose MARRIAGE event belongs to this partnership.
	MarriageEventOwner string
	Notes              *string
}

// Contact is a candidate contact record, replaced wholesale per person.
type Contact struct {
	PersonKey string
	Emails    []string
	Phones    []string
	Addresses []string
	Notes     *string
}

// TypeConflict records two sheets disagreeing on a parent-child edge type.
type TypeConflict struct {
	ParentKey string
	ChildKey  string
	Kept      models.ParentType
	Rejected  models.ParentType
	Sheet     string
}

// Stats counts what extraction did with each row.
type Stats struct {
	SheetsMapped  []string
	SheetsSkipped []string
	RowsMapped    int
	RowsSkipped   int
}

type eventKey struct {
	personKey string
	eventType models.EventType
}

type pairKey struct {
	a, b string
}

func newPairKey(x, y string) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// Result accumulates candidate entities across sheets. Lookups are keyed by
// identity so later sheets enrich what earlier sheets created.
type Result struct {
	People        []*Person
	Events        []*Event
	ParentChild   []*ParentChild
	Partnerships  []*Partnership
	Contacts      []*Contact
	TypeConflicts []TypeConflict
	Stats         Stats

	people           map[string]*Person
	events           map[eventKey]*Event
	edges            map[pairKey]*ParentChild
	partnerships     map[pairKey]*Partnership
	partnersByPerson map[string][]*Partnership
	contacts         map[string]*Contact
}

// NewResult returns an empty accumulator.
func NewResult() *Result {
	return &Result{
		people:           make(map[string]*Person),
		events:           make(map[eventKey]*Event),
		edges:            make(map[pairKey]*ParentChild),
		partnerships:     make(map[pairKey]*Partnership),
		partnersByPerson: make(map[string][]*Partnership),
		contacts:         make(map[string]*Contact),
	}
}

// Person returns the candidate for an external key.
func (r *Result) Person(key string) (*Person, bool) {
	p, ok := r.people[key]
	return p, ok
}

// Event returns the candidate event for (person, type).
func (r *Result) Event(personKey string, t models.EventType) (*Event, bool) {
	e, ok := r.events[eventKey{personKey: personKey, eventType: t}]
	return e, ok
}

// Partnership returns the edge between two people in either order.
func (r *Result) Partnership(x, y string) (*Partnership, bool) {
	p, ok := r.partnerships[newPairKey(x, y)]
	return p, ok
}

// PartnershipsOf returns every edge touching a person.
func (r *Result) PartnershipsOf(key string) []*Partnership {
	return r.partnersByPerson[key]
}

// Contact returns the contact candidate for a person.
func (r *Result) Contact(key string) (*Contact, bool) {
	c, ok := r.contacts[key]
	return c, ok
}

// AddPerson creates the person on first sight of its key; afterwards the
// candidate only fills fields that are still blank.
func (r *Result) AddPerson(c *Person) *Person {
	existing, ok := r.people[c.ExternalKey]
	if !ok {
		r.people[c.ExternalKey] = c
		r.People = append(r.People, c)
		return c
	}
	existing.enrich(c)
	return existing
}

func (p *Person) enrich(c *Person) {
	fill(&p.Surname, c.Surname)
	fill(&p.GivenName1, c.GivenName1)
	fill(&p.GivenName2, c.GivenName2)
	fill(&p.GivenName3, c.GivenName3)
	fill(&p.KnownAs, c.KnownAs)
	fill(&p.PreferredName, c.PreferredName)
	fill(&p.Biography, c.Biography)
	fill(&p.Occupation, c.Occupation)
	fill(&p.Notes, c.Notes)
	fill(&p.Residency, c.Residency)
	fillInt(&p.Generation, c.Generation)
	fillInt(&p.DescendantGeneration, c.DescendantGeneration)

	if p.Gender == "" || p.Gender == models.GenderUnknown {
		if c.Gender == models.GenderMale || c.Gender == models.GenderFemale {
			p.Gender = c.Gender
		}
	}
	if c.DisplayName != "" && (p.DisplayName == "" || (p.displaySynthesized && !c.displaySynthesized)) {
		p.DisplayName = c.DisplayName
		p.displaySynthesized = c.displaySynthesized
	}
	if p.NaturalID == "" {
		p.NaturalID = c.NaturalID
	}
}

// AddEvent stores the event under (person, type). It reports whether the
// event is new; an existing event only gains date parts, place and
// description it was missing.
func (r *Result) AddEvent(e *Event) (*Event, bool) {
	if e.Role == "" {
		e.Role = models.RoleSubject
	}
	k := eventKey{personKey: e.PersonKey, eventType: e.Type}
	existing, ok := r.events[k]
	if !ok {
		r.events[k] = e
		r.Events = append(r.Events, e)
		return e, true
	}
	if existing.Date.IsZero() && !e.Date.IsZero() {
		existing.Date = e.Date
	}
	fill(&existing.Place, e.Place)
	fill(&existing.Description, e.Description)
	for _, p := range e.Participants {
		existing.addParticipant(p)
	}
	return existing, false
}

func (e *Event) addParticipant(p Participant) {
	for _, q := range e.Participants {
		if q == p {
			return
		}
	}
	e.Participants = append(e.Participants, p)
}

// AddParentChild stores the edge once per (parent, child). The first type
// seen is kept; a later, different specific type is recorded as a conflict.
func (r *Result) AddParentChild(e *ParentChild, sheet string) {
	if e.ParentKey == "" || e.ChildKey == "" || e.ParentKey == e.ChildKey {
		return
	}
	k := pairKey{a: e.ParentKey, b: e.ChildKey}
	existing, ok := r.edges[k]
	if !ok {
		r.edges[k] = e
		r.ParentChild = append(r.ParentChild, e)
		return
	}
	if existing.Type != e.Type && existing.Type != models.ParentUnknown && e.Type != models.ParentUnknown {
		r.TypeConflicts = append(r.TypeConflicts, TypeConflict{
			ParentKey: e.ParentKey,
			ChildKey:  e.ChildKey,
			Kept:      existing.Type,
			Rejected:  e.Type,
			Sheet:     sheet,
		})
	}
}

// AddPartnership stores the edge once per unordered pair. A repeated pair
// only fills blank notes and marriage-event links.
func (r *Result) AddPartnership(p *Partnership) *Partnership {
	if p.PersonKeyA == "" || p.PersonKeyB == "" || p.PersonKeyA == p.PersonKeyB {
		return nil
	}
	k := newPairKey(p.PersonKeyA, p.PersonKeyB)
	existing, ok := r.partnerships[k]
	if !ok {
		r.partnerships[k] = p
		r.Partnerships = append(r.Partnerships, p)
		r.partnersByPerson[p.PersonKeyA] = append(r.partnersByPerson[p.PersonKeyA], p)
		r.partnersByPerson[p.PersonKeyB] = append(r.partnersByPerson[p.PersonKeyB], p)
		return p
	}
	fill(&existing.Notes, p.Notes)
	if existing.MarriageEventOwner == "" {
		existing.MarriageEventOwner = p.MarriageEventOwner
	}
	if existing.Type == models.PartnershipUnknown && p.Type != "" {
		existing.Type = p.Type
	}
	return existing
}

// SetContact replaces the person's contact wholesale.
func (r *Result) SetContact(c *Contact) {
	if existing, ok := r.contacts[c.PersonKey]; ok {
		*existing = *c
		return
	}
	r.contacts[c.PersonKey] = c
	r.Contacts = append(r.Contacts, c)
}

// BirthYear returns the resolved birth year of a person, if any.
func (r *Result) BirthYear(key string) (int, bool) {
	return r.eventYear(key, models.EventBirth)
}

// DeathYear returns the resolved death year of a person, if any.
func (r *Result) DeathYear(key string) (int, bool) {
	return r.eventYear(key, models.EventDeath)
}

func (r *Result) eventYear(key string, t models.EventType) (int, bool) {
	e, ok := r.Event(key, t)
	if !ok || e.Date.Year == nil {
		return 0, false
	}
	return *e.Date.Year, true
}

// dedupe rebuilds the slices keeping the first entity per identity.
func (r *Result) dedupe() {
	people := r.People[:0]
	seenPeople := make(map[string]bool, len(r.People))
	for _, p := range r.People {
		if seenPeople[p.ExternalKey] {
			continue
		}
		seenPeople[p.ExternalKey] = true
		people = append(people, p)
	}
	r.People = people

	events := r.Events[:0]
	seenEvents := make(map[eventKey]bool, len(r.Events))
	for _, e := range r.Events {
		k := eventKey{personKey: e.PersonKey, eventType: e.Type}
		if seenEvents[k] {
			continue
		}
		seenEvents[k] = true
		events = append(events, e)
	}
	r.Events = events

	edges := r.ParentChild[:0]
	seenEdges := make(map[pairKey]bool, len(r.ParentChild))
	for _, e := range r.ParentChild {
		k := pairKey{a: e.ParentKey, b: e.ChildKey}
		if seenEdges[k] {
			continue
		}
		seenEdges[k] = true
		edges = append(edges, e)
	}
	r.ParentChild = edges

	partnerships := r.Partnerships[:0]
	seenPairs := make(map[pairKey]bool, len(r.Partnerships))
	for _, p := range r.Partnerships {
		k := newPairKey(p.PersonKeyA, p.PersonKeyB)
		if seenPairs[k] {
			continue
		}
		seenPairs[k] = true
		partnerships = append(partnerships, p)
	}
	r.Partnerships = partnerships

	sort.Strings(r.Stats.SheetsSkipped)
}

func fill(dst **string, src *string) {
	if *dst == nil && src != nil && *src != "" {
		v := *src
		*dst = &v
	}
}

func fillInt(dst **int, src *int) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}
