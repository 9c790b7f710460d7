package canonical

import (
	"strings"

	"github.com/loyd0/LoydFam-sub000/internal/models"
	"github.com/loyd0/LoydFam-sub000/internal/workbook"
)

// deathYearArtifact is the value spreadsheet templates put in an empty
// death-year column.
const deathYearArtifact = 1900

type sheetMapper struct {
	name    string
	aliases []string
	mapRow  func(c *mapContext, row workbook.Row) error
}

// sheetMappers lists the recognized sheets from most to least authoritative.
var sheetMappers = []sheetMapper{
	{name: "Family Tree", aliases: []string{"FamilyTree", "People"}, mapRow: mapFamilyTreeRow},
	{name: "Marriages", mapRow: mapMarriageRow},
	{name: "Descendants", mapRow: mapDescendantRow},
	{name: "Biographies", aliases: []string{"Biography"}, mapRow: mapBiographyRow},
	{name: "Residences", aliases: []string{"Residence"}, mapRow: mapResidenceRow},
	{name: "Contacts", aliases: []string{"Contact Details"}, mapRow: mapContactRow},
}

// SheetNames returns the recognized sheet names in priority order.
func SheetNames() []string {
	names := make([]string, 0, len(sheetMappers))
	for _, m := range sheetMappers {
		names = append(names, m.name)
	}
	return names
}

func rowID(row workbook.Row) string {
	return NaturalID(row.First("ID", "Person ID"))
}

// personFromRow reads whatever name columns a row carries.
func personFromRow(c *mapContext, row workbook.Row, id string) *Person {
	full := row.String("Name")
	first := row.String("First Name")
	surname := row.String("Surname")
	var middle []string
	if m := row.String("Middle Names"); m != "" {
		middle = strings.Fields(m)
	}

	if first == "" && full != "" {
		given, sur := SplitFullName(full)
		first = given[0]
		if len(middle) == 0 {
			middle = given[1:]
		}
		if surname == "" {
			surname = sur
		}
	}

	p := &Person{
		ExternalKey:   c.key(id),
		NaturalID:     id,
		Surname:       optional(surname),
		GivenName1:    optional(first),
		KnownAs:       optional(row.String("Known As")),
		PreferredName: optional(row.String("Preferred Name")),
	}
	if len(middle) > 0 {
		p.GivenName2 = optional(middle[0])
	}
	if len(middle) > 1 {
		p.GivenName3 = optional(strings.Join(middle[1:], " "))
	}

	explicit := firstNonBlank(row.String("Gender"), row.String("Sex"))
	p.Gender = ResolveGender(explicit, firstNonBlank(first, row.String("Known As")), c.lookup)

	if full != "" {
		p.DisplayName = full
	} else {
		p.DisplayName = DisplayName(firstNonBlank(first, row.String("Known As")), id, nil, nil)
		p.displaySynthesized = true
	}
	return p
}

func mapFamilyTreeRow(c *mapContext, row workbook.Row) error {
	id := rowID(row)
	if id == "" {
		return errMissingID
	}
	key := c.key(id)

	birth := combineDates(ParseDate(row.First("Date of Birth", "DOB")), ParseDate(row.First("Birth Year")))

	deathDate := ParseDate(row.First("Date of Death", "DOD"))
	deathYear := ParseDate(row.First("Death Year"))
	if deathYear.Year != nil && *deathYear.Year == deathYearArtifact && !deathDate.HasYear() {
		deathYear = ParsedDate{}
	}
	death := combineDates(deathDate, deathYear)

	p := personFromRow(c, row, id)
	p.Generation = optionalInt(row.First("Generation"))
	if p.displaySynthesized {
		p.DisplayName = DisplayName(firstNonBlank(row.String("First Name"), row.String("Known As")), id, birth.Year, death.Year)
	}
	c.res.AddPerson(p)

	if place := optional(row.String("Place of Birth")); !birth.IsZero() || place != nil {
		c.res.AddEvent(&Event{PersonKey: key, Type: models.EventBirth, Date: birth, Place: place})
	}
	if place := optional(row.String("Place of Death")); !death.IsZero() || place != nil {
		c.res.AddEvent(&Event{PersonKey: key, Type: models.EventDeath, Date: death, Place: place})
	}

	for _, col := range []string{"Father ID", "Mother ID"} {
		if parent := NaturalID(row.First(col)); parent != "" {
			c.res.AddParentChild(&ParentChild{
				ParentKey: c.key(parent),
				ChildKey:  key,
				Type:      models.ParentBiological,
			}, c.sheet)
		}
	}
	return nil
}

func mapMarriageRow(c *mapContext, row workbook.Row) error {
	id := rowID(row)
	if id == "" {
		return errMissingID
	}
	owner := c.res.AddPerson(personFromRow(c, row, id)).ExternalKey

	spouseID := NaturalID(row.First("Spouse ID", "Partner ID"))
	if spouseID == "" {
		return errMissingLink
	}
	spouse := c.key(spouseID)
	c.res.AddPerson(&Person{
		ExternalKey:        spouse,
		NaturalID:          spouseID,
		DisplayName:        DisplayName("", spouseID, nil, nil),
		Gender:             models.GenderUnknown,
		displaySynthesized: true,
	})

	candidate := &Partnership{
		PersonKeyA: owner,
		PersonKeyB: spouse,
		Type:       parsePartnershipType(row.String("Type")),
		Notes:      optional(row.String("Notes")),
	}

	// The same marriage listed from the spouse's side adds no second event.
	if existing, ok := c.res.Partnership(owner, spouse); ok && existing.MarriageEventOwner != "" {
		c.res.AddPartnership(candidate)
		return nil
	}

	date := ParseDate(row.First("Marriage Date", "Date"))
	place := optional(row.String("Place"))
	if !date.IsZero() || place != nil {
		// Events are identified by (person, type), so a second marriage of the
		// same person cannot own its own event.
		if prior, ok := c.res.Event(owner, models.EventMarriage); !ok || hasParticipant(prior, spouse) {
			c.res.AddEvent(&Event{
				PersonKey:    owner,
				Type:         models.EventMarriage,
				Date:         date,
				Place:        place,
				Participants: []Participant{{PersonKey: spouse, Role: models.RoleSpouse}},
			})
			candidate.MarriageEventOwner = owner
		}
	}

	c.res.AddPartnership(candidate)
	return nil
}

func hasParticipant(e *Event, key string) bool {
	for _, p := range e.Participants {
		if p.PersonKey == key {
			return true
		}
	}
	return false
}

func mapDescendantRow(c *mapContext, row workbook.Row) error {
	id := rowID(row)
	if id == "" {
		return errMissingID
	}
	p := personFromRow(c, row, id)
	p.DescendantGeneration = optionalInt(row.First("Generation"))
	child := c.res.AddPerson(p).ExternalKey

	parentID := NaturalID(row.First("Parent ID"))
	if parentID == "" {
		return errMissingLink
	}
	c.res.AddParentChild(&ParentChild{
		ParentKey: c.key(parentID),
		ChildKey:  child,
		Type:      parseParentType(row.String("Relationship")),
	}, c.sheet)
	return nil
}

func mapBiographyRow(c *mapContext, row workbook.Row) error {
	id := rowID(row)
	if id == "" {
		return errMissingID
	}
	p := personFromRow(c, row, id)
	p.Biography = optional(row.String("Biography"))
	p.Occupation = optional(row.String("Occupation"))
	p.Notes = optional(row.String("Notes"))
	owner := c.res.AddPerson(p)

	marriedTo := firstNonBlank(row.String("Married To"), row.String("Spouse"))
	if marriedTo == "" {
		return nil
	}

	// "Married To" sometimes holds the id of a person already on the roster.
	if other, ok := c.res.Person(c.key(NaturalID(marriedTo))); ok && !other.IsPlaceholder && other.ExternalKey != owner.ExternalKey {
		c.res.AddPartnership(&Partnership{
			PersonKeyA: owner.ExternalKey,
			PersonKeyB: other.ExternalKey,
			Type:       models.PartnershipMarriage,
		})
		return nil
	}

	if existing := c.res.PartnershipsOf(owner.ExternalKey); len(existing) > 0 {
		note := "Married to " + marriedTo
		fill(&existing[0].Notes, &note)
		return nil
	}

	given, surname := SplitFullName(marriedTo)
	placeholder := &Person{
		ExternalKey:   PlaceholderKey(owner.ExternalKey),
		Surname:       optional(surname),
		DisplayName:   marriedTo,
		Gender:        owner.Gender.Opposite(),
		IsPlaceholder: true,
	}
	if len(given) > 0 {
		placeholder.GivenName1 = optional(given[0])
	}
	c.res.AddPerson(placeholder)
	c.res.AddPartnership(&Partnership{
		PersonKeyA: owner.ExternalKey,
		PersonKeyB: placeholder.ExternalKey,
		Type:       models.PartnershipMarriage,
	})
	return nil
}

func mapResidenceRow(c *mapContext, row workbook.Row) error {
	id := rowID(row)
	if id == "" {
		return errMissingID
	}
	residence := optional(firstNonBlank(row.String("Residence"), row.String("Address")))
	p := personFromRow(c, row, id)
	p.Residency = residence
	key := c.res.AddPerson(p).ExternalKey

	from := ParseDate(row.First("From", "Year"))
	if residence != nil || !from.IsZero() {
		c.res.AddEvent(&Event{PersonKey: key, Type: models.EventResidence, Date: from, Place: residence})
	}
	return nil
}

func mapContactRow(c *mapContext, row workbook.Row) error {
	id := rowID(row)
	if id == "" {
		return errMissingID
	}
	key := c.res.AddPerson(personFromRow(c, row, id)).ExternalKey

	contact := &Contact{
		PersonKey: key,
		Emails:    splitList(firstNonBlank(row.String("Email"), row.String("Emails"))),
		Phones:    splitList(firstNonBlank(row.String("Phone"), row.String("Phones"))),
		Addresses: splitAddresses(row.String("Address")),
		Notes:     optional(row.String("Notes")),
	}
	if len(contact.Emails) == 0 && len(contact.Phones) == 0 && len(contact.Addresses) == 0 && contact.Notes == nil {
		return nil
	}
	c.res.SetContact(contact)
	return nil
}

func parseParentType(v string) models.ParentType {
	s := strings.ToLower(strings.TrimSpace(v))
	switch {
	case s == "":
		return models.ParentUnknown
	case strings.Contains(s, "step"):
		return models.ParentStep
	case strings.Contains(s, "adopt"):
		return models.ParentAdoptive
	case strings.Contains(s, "bio"), strings.Contains(s, "natural"), strings.Contains(s, "birth"):
		return models.ParentBiological
	default:
		return models.ParentUnknown
	}
}

func parsePartnershipType(v string) models.PartnershipType {
	s := strings.ToLower(strings.TrimSpace(v))
	switch {
	case s == "", strings.Contains(s, "marri"), strings.Contains(s, "wed"):
		return models.PartnershipMarriage
	case strings.Contains(s, "partner"), strings.Contains(s, "cohabit"):
		return models.PartnershipPartner
	default:
		return models.PartnershipUnknown
	}
}
