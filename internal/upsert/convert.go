package upsert

import (
	"github.com/loyd0/LoydFam-sub000/internal/canonical"
	"github.com/loyd0/LoydFam-sub000/internal/models"
)

func newPerson(c *canonical.Person) *models.Person {
	p := &models.Person{PrimaryExternalKey: c.ExternalKey}
	mergePerson(p, c)
	return p
}

// mergePerson copies candidate values onto a stored person. Blank candidate
// fields leave the stored value alone.
func mergePerson(p *models.Person, c *canonical.Person) {
	set(&p.Surname, c.Surname)
	set(&p.GivenName1, c.GivenName1)
	set(&p.GivenName2, c.GivenName2)
	set(&p.GivenName3, c.GivenName3)
	set(&p.KnownAs, c.KnownAs)
	set(&p.PreferredName, c.PreferredName)
	set(&p.Biography, c.Biography)
	set(&p.Occupation, c.Occupation)
	set(&p.Notes, c.Notes)
	set(&p.Residency, c.Residency)
	setInt(&p.Generation, c.Generation)
	setInt(&p.DescendantGeneration, c.DescendantGeneration)

	if c.DisplayName != "" {
		p.DisplayName = c.DisplayName
	}
	if c.Gender == models.GenderMale || c.Gender == models.GenderFemale || p.Gender == "" {
		p.Gender = c.Gender
	}
	if p.Gender == "" {
		p.Gender = models.GenderUnknown
	}
	p.IsPlaceholder = c.IsPlaceholder
}

func newEvent(c *canonical.Event) *models.Event {
	e := &models.Event{Type: c.Type}
	applyEvent(e, c)
	return e
}

// applyEvent updates date fields in place. A candidate without any date
// keeps the stored one.
func applyEvent(e *models.Event, c *canonical.Event) {
	if !c.Date.IsZero() {
		e.DateExact = c.Date.Exact
		e.Year = c.Date.Year
		e.Month = c.Date.Month
		e.Day = c.Date.Day
		e.DateText = c.Date.Text
		e.IsApprox = c.Date.Approx
	}
	set(&e.Place, c.Place)
	set(&e.Description, c.Description)
}

func newContact(personID int64, c *canonical.Contact) *models.Contact {
	return &models.Contact{
		PersonID:  personID,
		Emails:    models.StringArray(c.Emails),
		Phones:    models.StringArray(c.Phones),
		Addresses: models.StringArray(c.Addresses),
		Notes:     c.Notes,
	}
}

func set(dst **string, src *string) {
	if src != nil && *src != "" {
		v := *src
		*dst = &v
	}
}

func setInt(dst **int, src *int) {
	if src != nil {
		v := *src
		*dst = &v
	}
}
