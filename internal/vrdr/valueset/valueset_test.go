package valueset

import (
	"errors"
	"testing"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
)

func TestMannerOfDeathTranslation(t *testing.T) {
	tests := []struct {
		text string
		want Concept
	}{
		{"Natural", Concept{r4.SystemSNOMED, "38605008", "Natural"}},
		{"Accident", Concept{r4.SystemSNOMED, "7878000", "Accident"}},
		{"Suicide", Concept{r4.SystemSNOMED, "44301001", "Suicide"}},
		{"Homicide", Concept{r4.SystemSNOMED, "27935005", "Homicide"}},
		{"Pending Investigation", Concept{r4.SystemSNOMED, "185973002", "Pending Investigation"}},
		{"Could not be determined", Concept{r4.SystemSNOMED, "65037004", "Could not be determined"}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v, err := ParseMannerOfDeath(tt.text)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got, err := v.Concept()
			if err != nil {
				t.Fatalf("concept: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}

			byCode, err := MannerOfDeathFromCode(tt.want.Code)
			if err != nil || byCode != v {
				t.Errorf("from code = %v, %v; want %v", byCode, err, v)
			}
		})
	}
}

func TestPregnancyAndTransportationCodes(t *testing.T) {
	pregnancy := map[string]string{
		"Not pregnant within past year":                             "PHC1260",
		"Pregnant at time of death":                                 "PHC1261",
		"Not pregnant, but pregnant within 42 days of death":        "PHC1262",
		"Not pregnant, but pregnant 43 days to 1 year before death": "PHC1263",
		"Unknown if pregnant within the past year":                  "PHC1264",
	}
	for text, code := range pregnancy {
		v, err := ParsePregnancyStatus(text)
		if err != nil {
			t.Fatalf("parse %q: %v", text, err)
		}
		c, _ := v.Concept()
		if c.Code != code || c.Display != text || c.System != r4.SystemPHINQuestions {
			t.Errorf("%q -> %+v, want code %s", text, c, code)
		}
	}

	roles := map[string]string{
		"Vehicle driver": "236320001",
		"Passenger":      "257500003",
		"Pedestrian":     "257518000",
		"Other":          "OTH",
	}
	for text, code := range roles {
		v, err := ParseTransportationRole(text)
		if err != nil {
			t.Fatalf("parse %q: %v", text, err)
		}
		c, _ := v.Concept()
		if c.Code != code {
			t.Errorf("%q -> %s, want %s", text, c.Code, code)
		}
	}
}

func TestYesNo(t *testing.T) {
	yes, err := ParseYesNo(" yes ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c, _ := yes.Concept()
	if c.Code != "Y" || c.Display != "Yes" || c.System != r4.SystemYesNo {
		t.Errorf("yes -> %+v", c)
	}

	b, err := ParseYesNoBoolean("No")
	if err != nil || b {
		t.Errorf("ParseYesNoBoolean(No) = %v, %v", b, err)
	}
	if _, err := ParseYesNoBoolean("Unknown"); err == nil {
		t.Error("expected Unknown to be rejected as a boolean")
	}
}

func TestUnrecognizedValues(t *testing.T) {
	_, err := ParseMannerOfDeath("Old age")
	var uerr *UnrecognizedCodeError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnrecognizedCodeError, got %v", err)
	}
	if uerr.ValueSet != "MannerOfDeathVS" || uerr.Value != "Old age" {
		t.Errorf("unexpected error fields: %+v", uerr)
	}

	if _, err := MannerOfDeath(0).Concept(); !errors.As(err, &uerr) {
		t.Errorf("zero value should not translate, got %v", err)
	}
	if _, err := TobaccoUse(42).Concept(); !errors.As(err, &uerr) {
		t.Errorf("out of range value should not translate, got %v", err)
	}
	if _, err := PregnancyStatusFromCode("PHC9999"); !errors.As(err, &uerr) {
		t.Errorf("unknown code should not translate, got %v", err)
	}
}

func TestAliases(t *testing.T) {
	v, err := ParsePlaceOfDeathType("Decedent's home")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c, _ := v.Concept(); c.Code != "PTRES" {
		t.Errorf("decedent's home -> %s, want PTRES", c.Code)
	}
}

func TestCatalog(t *testing.T) {
	sets := Catalog()
	if len(sets) != 10 {
		t.Fatalf("expected 10 value sets, got %d", len(sets))
	}

	byName := make(map[string]*r4.ValueSet)
	for _, vs := range sets {
		byName[vs.Name] = vs
		if vs.ResourceType != "ValueSet" || vs.Status != "active" {
			t.Errorf("%s: unexpected header %+v", vs.Name, vs.DomainResource)
		}
		if vs.URL != CanonicalBase+vs.Name {
			t.Errorf("%s: url = %s", vs.Name, vs.URL)
		}
	}

	manner := byName["MannerOfDeathVS"]
	if manner == nil {
		t.Fatal("manner of death value set missing")
	}
	if len(manner.Compose.Include) != 1 || len(manner.Compose.Include[0].Concept) != 6 {
		t.Errorf("manner of death compose = %+v", manner.Compose)
	}

	role := byName["TransportationRoleVS"]
	if len(role.Compose.Include) != 2 {
		t.Errorf("transportation role should include SNOMED and NullFlavor, got %+v", role.Compose.Include)
	}

	bundle := CatalogBundle()
	if bundle.Type != "collection" || len(bundle.Entry) != len(sets) {
		t.Errorf("catalog bundle type=%s entries=%d", bundle.Type, len(bundle.Entry))
	}
}
