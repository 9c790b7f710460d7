package models

import "testing"

func strPtr(s string) *string { return &s }

func TestPersonValidate(t *testing.T) {
	valid := &Person{
		PrimaryExternalKey: "FAM:12",
		GivenName1:         strPtr("Arthur"),
		DisplayName:        "Arthur Loyd",
		Gender:             GenderMale,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid person, got error: %v", err)
	}

	invalid := &Person{}
	if err := invalid.Validate(); err == nil {
		t.Fatalf("expected error for invalid person")
	}

	badGender := &Person{PrimaryExternalKey: "FAM:1", DisplayName: "X", Gender: "OTHER"}
	if err := badGender.Validate(); err == nil {
		t.Fatalf("expected error for unrecognised gender")
	}
}

func TestPersonHelpers(t *testing.T) {
	p := &Person{Gender: GenderUnknown}
	if p.HasKnownGender() {
		t.Fatalf("expected unknown gender")
	}
	if p.FirstName() != "" {
		t.Fatalf("expected empty first name")
	}
	p.GivenName1 = strPtr("Mary")
	if p.FirstName() != "Mary" {
		t.Fatalf("unexpected first name: %s", p.FirstName())
	}
}

func TestGenderOpposite(t *testing.T) {
	if GenderMale.Opposite() != GenderFemale {
		t.Fatalf("expected female")
	}
	if GenderFemale.Opposite() != GenderMale {
		t.Fatalf("expected male")
	}
	if GenderUnknown.Opposite() != GenderUnknown {
		t.Fatalf("expected unknown to stay unknown")
	}
}

func TestEventDateHelpers(t *testing.T) {
	e := &Event{}
	if e.HasDate() {
		t.Fatalf("expected no date")
	}
	year := 1842
	e.Year = &year
	if !e.HasDate() || !e.IsYearOnly() {
		t.Fatalf("expected year-only date")
	}
	month := 3
	e.Month = &month
	if e.IsYearOnly() {
		t.Fatalf("expected month to make the date more precise than year-only")
	}
}

func TestPartnershipNormalize(t *testing.T) {
	p := &Partnership{PersonAID: 9, PersonBID: 3}
	p.Normalize()
	if p.PersonAID != 3 || p.PersonBID != 9 {
		t.Fatalf("expected ordered pair, got (%d,%d)", p.PersonAID, p.PersonBID)
	}
	if p.IsSelf() {
		t.Fatalf("expected distinct people")
	}
}

func TestStringArrayRoundTrip(t *testing.T) {
	v, err := StringArray{"a@example.com"}.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var out StringArray
	if err := out.Scan(v); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(out) != 1 || out[0] != "a@example.com" {
		t.Fatalf("unexpected scan result: %v", out)
	}

	var empty StringArray
	if err := empty.Scan(nil); err != nil || len(empty) != 0 {
		t.Fatalf("expected empty array from NULL")
	}
}

func TestContactIsEmpty(t *testing.T) {
	c := &Contact{}
	if !c.IsEmpty() {
		t.Fatalf("expected empty contact")
	}
	c.Phones = StringArray{"0123"}
	if c.IsEmpty() {
		t.Fatalf("expected non-empty contact")
	}
}
