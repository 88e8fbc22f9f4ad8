package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/valueset"
)

var fixedNow = time.Date(2019, time.June, 1, 14, 30, 0, 0, time.UTC)

func newTestAssembler() *Assembler {
	return NewAssembler(Config{
		IDs:      &SequentialGenerator{},
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	}, nil)
}

func assemble(t *testing.T, opts *Options) *r4.Bundle {
	t.Helper()
	bundle, err := newTestAssembler().Assemble(opts)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return bundle
}

func ptr[T any](v T) *T { return &v }

// fullOptions sets every option the assembler understands.
func fullOptions() *Options {
	home := &r4.Address{Line: []string{"1 Main St"}, City: "Bedford", District: "Middlesex", State: "MA", PostalCode: "01730", Country: "US"}
	return &Options{
		Identifier:       "bundle-1",
		DeathCertificate: &DeathCertificateOptions{Identifier: "321"},
		Decedent: &DecedentOptions{
			Name:          "Joe Decedent",
			SSN:           "111223333",
			Gender:        "male",
			BirthDate:     "1940-02-19",
			BirthSex:      ptr(valueset.BirthSexMale),
			BirthPlace:    &r4.Address{City: "Roanoke", State: "VA", Country: "US"},
			MaritalStatus: ptr(valueset.MaritalMarried),
			Race: []RaceOptions{
				{Type: "ombCategory", Code: "2106-3", Text: "White"},
				{Type: "detailed", Code: "1586-7", Text: "Shoshone"},
			},
			Ethnicity: &RaceOptions{Code: "2186-5", Text: "Non"},
			Address:   home,
		},
		Father:                       &RelatedPersonOptions{Name: "Frank Decedent"},
		Mother:                       &RelatedPersonOptions{Name: "Martha Decedent"},
		Spouse:                       &RelatedPersonOptions{Name: "Sally Decedent"},
		DecedentAge:                  &AgeOptions{Value: 79, Unit: "a"},
		DecedentPregnancy:            ptr(valueset.NotPregnantWithinPastYear),
		DecedentTransportationRole:   ptr(valueset.Passenger),
		TobaccoUseContributedToDeath: ptr(valueset.TobaccoNo),
		DecedentEducationLevel:       ptr(valueset.EducationBachelor),
		DecedentEmploymentHistory: &EmploymentHistoryOptions{
			MilitaryService: ptr(valueset.No),
			UsualIndustry:   &valueset.Concept{Code: "7280", Display: "Accounting"},
			UsualOccupation: &valueset.Concept{Code: "0800", Display: "Accountant"},
		},
		BirthRecordIdentifier: &BirthRecordIdentifierOptions{CertificateNumber: "242123", BirthYear: "1940", BirthState: "VA"},
		Certifier: &PractitionerOptions{
			Name:       "Bob Certifier",
			Identifier: "1234567890",
			Address:    &r4.Address{Line: []string{"9 Clinic Rd"}, City: "Boston", State: "MA", PostalCode: "02110"},
			Qualification: &QualificationOptions{
				Identifier: "MA-77",
				Code:       &valueset.Concept{Code: "MD", Display: "Doctor of Medicine"},
			},
		},
		DeathCertification: &DeathCertificationOptions{PerformedDate: "2019-05-30", PerformedTime: "16:45"},
		MannerOfDeath:      ptr(valueset.MannerAccident),
		AutopsyPerformed:   &AutopsyPerformedOptions{Performed: valueset.Yes, AutopsyAvailable: ptr(valueset.Yes)},
		ExaminerContacted:  &ExaminerContactedOptions{Value: false},
		FuneralHome:        &OrganizationOptions{Name: "Rosewood Funeral Home", Identifier: "FH-9", Address: &r4.Address{City: "Lexington", State: "MA"}},
		Mortician:          &PractitionerOptions{Name: "Mort Mortician", Identifier: "M-3"},
		InterestedParty: &InterestedPartyOptions{
			Identifier:  "IP-1",
			TypeCode:    "govt",
			TypeDisplay: "Government",
			Name:        "State Registrar",
			Address:     &r4.Address{City: "Worcester", State: "MA"},
		},
		DeathPronouncementPerformer: &PractitionerOptions{Name: "Paula Pronouncer", Identifier: "P-8"},
		CauseOfDeathConditions: []CauseOfDeathConditionOptions{
			{Text: "Rupture of myocardium", Interval: "Minutes"},
			{Text: "Acute myocardial infarction", Interval: "6 days"},
			{Text: "Coronary artery thrombosis", Interval: "5 years"},
		},
		ConditionContributingToDeath: &ConditionOptions{Text: "Diabetes"},
		DeathLocation: &LocationOptions{
			Name:         "Example Hospital",
			Description:  "Inpatient ward",
			Address:      &r4.Address{Line: []string{"5 Hospital Way"}, City: "Boston", State: "MA"},
			Type:         &valueset.Concept{Code: "HOSP", Display: "Hospital"},
			PhysicalType: &valueset.Concept{Code: "wa", Display: "Ward"},
		},
		DeathDate: &DeathDateOptions{
			EffectiveDate: "2019-05-29", EffectiveTime: "23:10",
			PronouncedDate: "2019-05-30", PronouncedTime: "00:05",
			Method: ptr(MethodEstimated),
		},
		InjuryIncident: &InjuryIncidentOptions{
			Text:                         "Fell from ladder",
			EffectiveDate:                "2019-05-20",
			EffectiveTime:                "10:00",
			PlaceOfInjury:                "Home",
			WorkInjuryIndicator:          ptr(valueset.No),
			TransportationEventIndicator: ptr(valueset.No),
		},
		InjuryLocation:            &LocationOptions{Description: "Back yard", Address: &r4.Address{City: "Concord", State: "MA", PostalCode: "01742"}},
		DecedentDispositionMethod: ptr(valueset.DispositionCremation),
		DispositionLocation:       &LocationOptions{Name: "Evergreen Crematory", Address: &r4.Address{City: "Acton", State: "MA"}},
	}
}

func toMap(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func profileOf(res r4.Resource) string {
	meta := res.Base().Meta
	if meta == nil || len(meta.Profile) == 0 {
		return ""
	}
	return meta.Profile[0]
}

func entriesWithProfile(b *r4.Bundle, profile string) []r4.BundleEntry {
	var out []r4.BundleEntry
	for _, e := range b.Entry {
		if profileOf(e.Resource) == profile {
			out = append(out, e)
		}
	}
	return out
}

func onlyEntry(t *testing.T, b *r4.Bundle, profile string) r4.BundleEntry {
	t.Helper()
	entries := entriesWithProfile(b, profile)
	if len(entries) != 1 {
		t.Fatalf("expected one %s entry, got %d", strings.TrimPrefix(profile, profileBase), len(entries))
	}
	return entries[0]
}

func TestAssembleMinimalExample(t *testing.T) {
	bundle := assemble(t, &Options{
		Decedent:               &DecedentOptions{Name: "Joe Decedent"},
		Certifier:              &PractitionerOptions{Name: "Bob Certifier"},
		DeathCertificate:       &DeathCertificateOptions{Identifier: "321"},
		CauseOfDeathConditions: []CauseOfDeathConditionOptions{{Text: "Example Cause Of Death 1", Interval: "1 week"}},
	})

	doc := toMap(t, bundle)
	entries := doc["entry"].([]interface{})
	first := entries[0].(map[string]interface{})["resource"].(map[string]interface{})
	if first["resourceType"] != "Composition" {
		t.Fatalf("expected Composition first, got %v", first["resourceType"])
	}
	if id := first["identifier"].(map[string]interface{})["value"]; id != "321" {
		t.Errorf("certificate identifier = %v", id)
	}

	decedent := toMap(t, onlyEntry(t, bundle, ProfileDecedent).Resource)
	name := decedent["name"].([]interface{})[0].(map[string]interface{})
	given := name["given"].([]interface{})
	if len(given) != 1 || given[0] != "Joe" || name["family"] != "Decedent" {
		t.Errorf("unexpected decedent name: %v", name)
	}

	condition := toMap(t, onlyEntry(t, bundle, ProfileCauseOfDeathCondition).Resource)
	if text := condition["code"].(map[string]interface{})["text"]; text != "Example Cause Of Death 1" {
		t.Errorf("condition code.text = %v", text)
	}
	if condition["onsetString"] != "1 week" {
		t.Errorf("condition onsetString = %v", condition["onsetString"])
	}
}

func TestAssembleMannerOfDeathExample(t *testing.T) {
	var opts Options
	raw := `{"decedent": {"name": "Joe Decedent"}, "mannerOfDeath": {"code": "7878000", "text": "Accident"}}`
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		t.Fatalf("decode options: %v", err)
	}
	bundle := assemble(t, &opts)

	obs := toMap(t, onlyEntry(t, bundle, ProfileMannerOfDeath).Resource)
	if obs["resourceType"] != "Observation" {
		t.Fatalf("expected Observation, got %v", obs["resourceType"])
	}
	code := obs["code"].(map[string]interface{})["coding"].([]interface{})[0].(map[string]interface{})
	if code["code"] != "69449-7" {
		t.Errorf("code.coding[0].code = %v", code["code"])
	}
	value := obs["valueCodeableConcept"].(map[string]interface{})["coding"].([]interface{})[0].(map[string]interface{})
	if value["code"] != "7878000" || value["system"] != r4.SystemSNOMED {
		t.Errorf("unexpected manner value coding: %v", value)
	}
}

func TestAssembleDocumentShape(t *testing.T) {
	bundle := assemble(t, fullOptions())

	if bundle.Type != r4.BundleTypeDocument {
		t.Errorf("bundle type = %q", bundle.Type)
	}
	if bundle.Meta == nil || len(bundle.Meta.Profile) != 1 || bundle.Meta.Profile[0] != ProfileDeathCertificateDocument {
		t.Errorf("bundle profile = %v", bundle.Meta)
	}
	if bundle.Identifier == nil || bundle.Identifier.Value != "bundle-1" {
		t.Errorf("bundle identifier = %v", bundle.Identifier)
	}
	if bundle.Timestamp != "2019-06-01T14:30:00Z" {
		t.Errorf("bundle timestamp = %q", bundle.Timestamp)
	}
	if bundle.Entry[0].FullURL != "urn:uuid:00000000-0000-4000-8000-000000000001" {
		t.Errorf("first fullUrl = %q", bundle.Entry[0].FullURL)
	}

	seen := make(map[string]bool)
	for _, e := range bundle.Entry {
		if !strings.HasPrefix(e.FullURL, "urn:uuid:") {
			t.Errorf("fullUrl %q is not a urn:uuid", e.FullURL)
		}
		if seen[e.FullURL] {
			t.Errorf("duplicate fullUrl %q", e.FullURL)
		}
		seen[e.FullURL] = true
		if e.FullURL != "urn:uuid:"+e.Resource.Base().ID {
			t.Errorf("fullUrl %q does not carry resource id %q", e.FullURL, e.Resource.Base().ID)
		}
	}

	cert := bundle.Entry[0].Resource.(*DeathCertificate)
	certifier := onlyEntry(t, bundle, ProfileCertifier)
	if cert.Subject == nil || cert.Subject.Reference != onlyEntry(t, bundle, ProfileDecedent).FullURL {
		t.Errorf("certificate subject = %v", cert.Subject)
	}
	if len(cert.Attester) != 1 || cert.Attester[0].Mode != "legal" || cert.Attester[0].Party.Reference != certifier.FullURL {
		t.Errorf("certificate attester = %+v", cert.Attester)
	}
	if len(cert.Event) != 1 || cert.Event[0].Detail[0].Reference != onlyEntry(t, bundle, ProfileDeathCertification).FullURL {
		t.Errorf("certificate event = %+v", cert.Event)
	}
	if cert.Date != "2019-06-01T14:30:00Z" {
		t.Errorf("certificate date = %q", cert.Date)
	}
}

func TestAssembleReferenceIntegrity(t *testing.T) {
	for name, opts := range map[string]*Options{
		"full":    fullOptions(),
		"minimal": {Decedent: &DecedentOptions{Name: "Joe Decedent"}},
		"empty":   {},
	} {
		t.Run(name, func(t *testing.T) {
			bundle := assemble(t, opts)
			dangling, err := bundle.CheckReferences()
			if err != nil {
				t.Fatalf("check references: %v", err)
			}
			if len(dangling) != 0 {
				t.Errorf("dangling references: %v", dangling)
			}
		})
	}
}

func TestAssembleSectionIndex(t *testing.T) {
	bundle := assemble(t, fullOptions())
	cert := bundle.Entry[0].Resource.(*DeathCertificate)

	indexed := make(map[string]bool)
	for _, ref := range cert.Section[0].Entry {
		indexed[ref.Reference] = true
	}
	for _, e := range bundle.Entry[1:] {
		want := profileOf(e.Resource) != ProfileCauseOfDeathPathway
		if indexed[e.FullURL] != want {
			t.Errorf("%s indexed = %v, want %v", profileOf(e.Resource), indexed[e.FullURL], want)
		}
	}
	if indexed[bundle.Entry[0].FullURL] {
		t.Error("certificate indexes itself")
	}
	if len(cert.Section[0].Entry) != len(bundle.Entry)-2 {
		t.Errorf("section has %d entries, bundle has %d", len(cert.Section[0].Entry), len(bundle.Entry))
	}
}

func TestAssembleOmitsAbsentOptions(t *testing.T) {
	bundle := assemble(t, &Options{Decedent: &DecedentOptions{Name: "Joe Decedent"}})

	// Certificate, decedent, certifier, certification and pathway.
	if len(bundle.Entry) != 5 {
		var profiles []string
		for _, e := range bundle.Entry {
			profiles = append(profiles, profileOf(e.Resource))
		}
		t.Fatalf("expected 5 entries, got %v", profiles)
	}
	for _, profile := range []string{
		ProfileDecedentFather, ProfileDecedentMother, ProfileDecedentSpouse,
		ProfileDecedentAge, ProfileDecedentPregnancy, ProfileDecedentTransportationRole,
		ProfileTobaccoUseContributedToDeath, ProfileDecedentEducationLevel,
		ProfileDecedentEmploymentHistory, ProfileBirthRecordIdentifier,
		ProfileMannerOfDeath, ProfileAutopsyPerformedIndicator, ProfileExaminerContacted,
		ProfileFuneralHome, ProfileFuneralHomeDirector, ProfileMortician,
		ProfileInterestedParty, ProfileDeathPronouncementPerformer,
		ProfileCauseOfDeathCondition, ProfileConditionContributingToDeath,
		ProfileDeathLocation, ProfileDeathDate, ProfileInjuryIncident,
		ProfileInjuryLocation, ProfileDecedentDispositionMethod, ProfileDispositionLocation,
	} {
		if n := len(entriesWithProfile(bundle, profile)); n != 0 {
			t.Errorf("%s present %d times without its option", strings.TrimPrefix(profile, profileBase), n)
		}
	}
	if got := len(bundle.ResourcesOfType("Observation")); got != 0 {
		t.Errorf("expected no observations, got %d", got)
	}
}

func TestAssembleOmitsSingleOption(t *testing.T) {
	opts := fullOptions()
	opts.MannerOfDeath = nil
	bundle := assemble(t, opts)

	if n := len(entriesWithProfile(bundle, ProfileMannerOfDeath)); n != 0 {
		t.Errorf("manner of death present without its option")
	}
	if n := len(entriesWithProfile(bundle, ProfileAutopsyPerformedIndicator)); n != 1 {
		t.Errorf("autopsy indicator count = %d", n)
	}
}

func TestAssembleCauseOfDeathPathwayOrder(t *testing.T) {
	bundle := assemble(t, fullOptions())

	conditions := entriesWithProfile(bundle, ProfileCauseOfDeathCondition)
	if len(conditions) != 3 {
		t.Fatalf("expected 3 conditions, got %d", len(conditions))
	}
	pathway := onlyEntry(t, bundle, ProfileCauseOfDeathPathway).Resource.(*CauseOfDeathPathway)
	if len(pathway.Entry) != 3 {
		t.Fatalf("pathway has %d entries", len(pathway.Entry))
	}
	for i, c := range conditions {
		if pathway.Entry[i].Item.Reference != c.FullURL {
			t.Errorf("pathway entry %d = %q, want %q", i, pathway.Entry[i].Item.Reference, c.FullURL)
		}
		text := c.Resource.(*Condition).Code.Text
		if text != fullOptions().CauseOfDeathConditions[i].Text {
			t.Errorf("condition %d text = %q", i, text)
		}
	}
	if pathway.Source == nil || pathway.Source.Reference != onlyEntry(t, bundle, ProfileCertifier).FullURL {
		t.Errorf("pathway source = %v", pathway.Source)
	}
}

func TestAssembleObservationWiring(t *testing.T) {
	bundle := assemble(t, fullOptions())
	decedent := onlyEntry(t, bundle, ProfileDecedent).FullURL
	certifier := onlyEntry(t, bundle, ProfileCertifier).FullURL
	pronouncer := onlyEntry(t, bundle, ProfileDeathPronouncementPerformer).FullURL
	mortician := onlyEntry(t, bundle, ProfileMortician).FullURL

	tests := []struct {
		profile   string
		performer string
		location  string
	}{
		{ProfileMannerOfDeath, certifier, ""},
		{ProfileAutopsyPerformedIndicator, certifier, ""},
		{ProfileExaminerContacted, certifier, ""},
		{ProfileTobaccoUseContributedToDeath, certifier, ""},
		{ProfileDecedentAge, "", ""},
		{ProfileDeathDate, pronouncer, onlyEntry(t, bundle, ProfileDeathLocation).FullURL},
		{ProfileInjuryIncident, "", onlyEntry(t, bundle, ProfileInjuryLocation).FullURL},
		{ProfileDecedentDispositionMethod, mortician, onlyEntry(t, bundle, ProfileDispositionLocation).FullURL},
	}
	for _, tt := range tests {
		name := strings.TrimPrefix(tt.profile, profileBase)
		o := onlyEntry(t, bundle, tt.profile).Resource.(*Observation)
		if o.Subject == nil || o.Subject.Reference != decedent {
			t.Errorf("%s subject = %v", name, o.Subject)
		}
		switch {
		case tt.performer == "" && len(o.Performer) != 0:
			t.Errorf("%s has unexpected performer %v", name, o.Performer)
		case tt.performer != "" && (len(o.Performer) != 1 || o.Performer[0].Reference != tt.performer):
			t.Errorf("%s performer = %v, want %s", name, o.Performer, tt.performer)
		}
		ext := o.FindExtension(ExtensionObservationLocation)
		switch {
		case tt.location == "" && ext != nil:
			t.Errorf("%s has unexpected location", name)
		case tt.location != "" && (ext == nil || ext.ValueReference.Reference != tt.location):
			t.Errorf("%s location = %v, want %s", name, ext, tt.location)
		}
	}
}

func TestAssembleDeathDateFallsBackToCertifier(t *testing.T) {
	opts := fullOptions()
	opts.DeathPronouncementPerformer = nil
	bundle := assemble(t, opts)

	o := onlyEntry(t, bundle, ProfileDeathDate).Resource.(*Observation)
	if len(o.Performer) != 1 || o.Performer[0].Reference != onlyEntry(t, bundle, ProfileCertifier).FullURL {
		t.Errorf("death date performer = %v", o.Performer)
	}
	if o.ValueDateTime != "2019-05-29T23:10:00Z" || o.EffectiveDateTime != o.ValueDateTime {
		t.Errorf("death date value = %q effective = %q", o.ValueDateTime, o.EffectiveDateTime)
	}
}

func TestAssembleFuneralHomeDirector(t *testing.T) {
	bundle := assemble(t, fullOptions())
	director := onlyEntry(t, bundle, ProfileFuneralHomeDirector).Resource.(*FuneralHomeDirector)
	if director.Practitioner.Reference != onlyEntry(t, bundle, ProfileMortician).FullURL {
		t.Errorf("director practitioner = %v", director.Practitioner)
	}
	if director.Organization.Reference != onlyEntry(t, bundle, ProfileFuneralHome).FullURL {
		t.Errorf("director organization = %v", director.Organization)
	}

	opts := fullOptions()
	opts.FuneralHome = nil
	bundle = assemble(t, opts)
	if n := len(entriesWithProfile(bundle, ProfileFuneralHomeDirector)); n != 0 {
		t.Errorf("director built without a funeral home")
	}
}

func TestAssembleFailsOnUnrecognizedCode(t *testing.T) {
	opts := fullOptions()
	opts.MannerOfDeath = ptr(valueset.MannerOfDeath(99))

	bundle, err := newTestAssembler().Assemble(opts)
	if err == nil {
		t.Fatal("expected error")
	}
	if bundle != nil {
		t.Error("expected no bundle on failure")
	}
	var buildErr *BuildError
	if !errors.As(err, &buildErr) || buildErr.Resource != "MannerOfDeath" {
		t.Errorf("expected MannerOfDeath build error, got %v", err)
	}
	var codeErr *valueset.UnrecognizedCodeError
	if !errors.As(err, &codeErr) {
		t.Errorf("expected unrecognized code error, got %v", err)
	}
}

func TestAssembleFailsOnBadDate(t *testing.T) {
	opts := fullOptions()
	opts.DeathDate.EffectiveTime = "quarter past"

	_, err := newTestAssembler().Assemble(opts)
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

// dateKeys hold values that are reformatted on the way into the bundle.
var dateKeys = map[string]bool{
	"performedDate": true, "performedTime": true,
	"effectiveDate": true, "effectiveTime": true,
	"pronouncedDate": true, "pronouncedTime": true,
}

// scalar is one option value expected in the bundle. Names may appear whole
// or as their whitespace-separated tokens.
type scalar struct {
	value  string
	tokens []string
}

// optionScalars lists every scalar in an options tree. A coded value
// ({"code", "text"}) contributes its code only.
func optionScalars(key string, node interface{}, out *[]scalar) {
	switch v := node.(type) {
	case map[string]interface{}:
		if code, ok := v["code"]; ok {
			if _, ok := v["text"]; ok && len(v) == 2 {
				*out = append(*out, scalar{value: fmt.Sprint(code)})
				return
			}
		}
		for k, child := range v {
			if dateKeys[k] {
				continue
			}
			optionScalars(k, child, out)
		}
	case []interface{}:
		for _, child := range v {
			optionScalars(key, child, out)
		}
	default:
		s := scalar{value: fmt.Sprint(v)}
		if key == "name" {
			s.tokens = strings.Fields(s.value)
		}
		*out = append(*out, s)
	}
}

func bundleScalars(node interface{}, out map[string]bool) {
	switch v := node.(type) {
	case map[string]interface{}:
		for _, child := range v {
			bundleScalars(child, out)
		}
	case []interface{}:
		for _, child := range v {
			bundleScalars(child, out)
		}
	default:
		out[fmt.Sprint(v)] = true
	}
}

func TestAssembleRoundTripCompleteness(t *testing.T) {
	opts := fullOptions()
	bundle := assemble(t, opts)

	found := make(map[string]bool)
	bundleScalars(toMap(t, bundle), found)

	var want []scalar
	optionScalars("", toMap(t, opts), &want)
	if len(want) < 50 {
		t.Fatalf("fixture yielded only %d scalars", len(want))
	}
	for _, s := range want {
		if found[s.value] || (len(s.tokens) > 0 && allFound(s.tokens, found)) {
			continue
		}
		t.Errorf("option value %q missing from bundle", s.value)
	}
}

func allFound(tokens []string, found map[string]bool) bool {
	for _, tok := range tokens {
		if !found[tok] {
			return false
		}
	}
	return true
}
