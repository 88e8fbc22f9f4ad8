package document

import (
	"errors"
	"testing"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/valueset"
)

func TestNewDecedentExtensions(t *testing.T) {
	d, err := NewDecedent(&DecedentOptions{
		Name:     "Joe Q Decedent",
		SSN:      "111223333",
		Gender:   "Male",
		BirthSex: ptr(valueset.BirthSexMale),
		Race: []RaceOptions{
			{Code: "2106-3", Text: "White"},
			{Type: "detailed", Code: "1586-7", Text: "Shoshone"},
		},
	})
	if err != nil {
		t.Fatalf("NewDecedent: %v", err)
	}

	if d.Gender != "male" {
		t.Errorf("gender = %q", d.Gender)
	}
	if got := d.GetSSN(); got != "111223333" {
		t.Errorf("ssn = %q", got)
	}
	if got := d.Name[0].Given; len(got) != 2 || got[0] != "Joe" || got[1] != "Q" {
		t.Errorf("given = %v", got)
	}

	race := d.FindExtension(r4.ExtensionUSCoreRace)
	if race == nil {
		t.Fatal("race extension missing")
	}
	if len(race.Extension) != 3 {
		t.Fatalf("expected 2 codings and text, got %d sub-extensions", len(race.Extension))
	}
	if race.Extension[0].URL != "ombCategory" || race.Extension[0].ValueCoding.Code != "2106-3" {
		t.Errorf("first race entry = %+v", race.Extension[0])
	}
	if race.Extension[1].URL != "detailed" {
		t.Errorf("second race category = %q", race.Extension[1].URL)
	}
	if race.Extension[2].URL != "text" || race.Extension[2].ValueString != "White Shoshone" {
		t.Errorf("race text = %+v", race.Extension[2])
	}
	if sex := d.FindExtension(r4.ExtensionUSCoreBirthSex); sex == nil || sex.ValueCode != "M" {
		t.Errorf("birth sex = %+v", sex)
	}
	if d.FindExtension(r4.ExtensionUSCoreEthnicity) != nil {
		t.Error("ethnicity extension present without an ethnicity")
	}
	if d.FindExtension(r4.ExtensionBirthPlace) != nil {
		t.Error("birthplace extension present without a birthplace")
	}
	if len(d.Address) != 0 {
		t.Errorf("address present without fields: %v", d.Address)
	}
}

func TestNewDecedentRejectsBadValues(t *testing.T) {
	tests := map[string]*DecedentOptions{
		"gender":        {Gender: "robot"},
		"race category": {Race: []RaceOptions{{Type: "broad", Code: "2106-3"}}},
		"race code":     {Race: []RaceOptions{{Text: "White"}}},
		"marital":       {MaritalStatus: ptr(valueset.MaritalStatus(42))},
	}
	for name, opts := range tests {
		_, err := NewDecedent(opts)
		var codeErr *valueset.UnrecognizedCodeError
		if !errors.As(err, &codeErr) {
			t.Errorf("%s: expected unrecognized code error, got %v", name, err)
		}
	}
}

func TestNewPractitionerQualification(t *testing.T) {
	p, err := NewPractitioner(ProfileCertifier, &PractitionerOptions{
		Name:          "Dr. Bob Certifier",
		Qualification: &QualificationOptions{Identifier: "MA-77", Code: &valueset.Concept{Code: "MD"}},
	})
	if err != nil {
		t.Fatalf("NewPractitioner: %v", err)
	}
	q := p.Qualification[0]
	if q.Code.Coding[0].System != r4.SystemDegree || q.Code.Coding[0].Code != "MD" {
		t.Errorf("qualification code = %+v", q.Code)
	}
	if q.Identifier[0].Value != "MA-77" {
		t.Errorf("qualification identifier = %+v", q.Identifier)
	}

	_, err = NewPractitioner(ProfileCertifier, &PractitionerOptions{
		Qualification: &QualificationOptions{Code: &valueset.Concept{Display: "Doctor"}},
	})
	if err == nil {
		t.Error("expected error for a qualification without a code")
	}
}

func TestNewDecedentAgeUnits(t *testing.T) {
	o, err := NewDecedentAge(&AgeOptions{Value: 3})
	if err != nil {
		t.Fatalf("NewDecedentAge: %v", err)
	}
	if o.ValueQuantity.Code != "a" || o.ValueQuantity.Unit != "years" || o.ValueQuantity.System != r4.SystemUCUM {
		t.Errorf("quantity = %+v", o.ValueQuantity)
	}

	o, err = NewDecedentAge(&AgeOptions{Value: 6, Unit: "mo"})
	if err != nil || o.ValueQuantity.Unit != "months" {
		t.Errorf("months: %+v, %v", o, err)
	}

	if _, err := NewDecedentAge(&AgeOptions{Value: 3, Unit: "fortnights"}); err == nil {
		t.Error("expected error for an unknown unit")
	}
}

func TestNewInjuryIncidentComponents(t *testing.T) {
	o, err := NewInjuryIncident(&InjuryIncidentOptions{
		Text:                         " Fell from ladder ",
		PlaceOfInjury:                "",
		TransportationEventIndicator: ptr(valueset.Yes),
	}, nil)
	if err != nil {
		t.Fatalf("NewInjuryIncident: %v", err)
	}
	if o.ValueString != "Fell from ladder" {
		t.Errorf("value = %q", o.ValueString)
	}
	if o.EffectiveDateTime != "" {
		t.Errorf("effective = %q", o.EffectiveDateTime)
	}
	if len(o.Component) != 1 {
		t.Fatalf("expected only the transportation component, got %d", len(o.Component))
	}
	if c := o.Component[0]; c.Code.Code() != "69448-9" || c.ValueCodeableConcept.Code() != "Y" {
		t.Errorf("component = %+v", c)
	}
}

func TestNewLocationDefaults(t *testing.T) {
	l := NewLocation(ProfileDeathLocation, &LocationOptions{
		Name:         "Example Hospital",
		Type:         &valueset.Concept{Code: "HOSP", Display: "Hospital"},
		PhysicalType: &valueset.Concept{},
	})
	if l.Type[0].Coding[0].System != r4.SystemRoleCode {
		t.Errorf("type system = %q", l.Type[0].Coding[0].System)
	}
	if l.PhysicalType != nil {
		t.Errorf("empty physical type emitted: %+v", l.PhysicalType)
	}
	if l.Address != nil {
		t.Errorf("empty address emitted: %+v", l.Address)
	}
}

func TestBlankConditionHasNoCode(t *testing.T) {
	c := NewCauseOfDeathCondition(CauseOfDeathConditionOptions{Text: "   ", Interval: "2 days"})
	if c.Code != nil {
		t.Errorf("code = %+v", c.Code)
	}
	if c.OnsetString != "2 days" {
		t.Errorf("onset = %q", c.OnsetString)
	}
}

func TestWiringRequiresAllocatedEntry(t *testing.T) {
	cert := NewDeathCertificate(nil, "")
	if err := cert.AddDecedentReference(nil); !errors.Is(err, ErrMissingLinkage) {
		t.Errorf("nil entry: got %v", err)
	}
	if err := cert.AddSectionEntry(&Entry{}); !errors.Is(err, ErrMissingLinkage) {
		t.Errorf("unallocated entry: got %v", err)
	}
}
