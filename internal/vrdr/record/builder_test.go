package record

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/document"
)

func testBuilder() *Builder {
	a := document.NewAssembler(document.Config{
		IDs:      &document.SequentialGenerator{},
		Location: eastern,
		Now:      func() time.Time { return time.Date(2019, time.January, 2, 15, 4, 0, 0, time.UTC) },
	}, nil)
	return NewBuilder(testMapper(), a)
}

func TestBuilderBuild(t *testing.T) {
	rec := &Record{
		ActualDeathDate:   "2019-01-01",
		ActualDeathTime:   "11:15",
		CertifierName:     "Bob Certifier",
		MannerOfDeath:     "Natural",
		PlaceOfDeathName:  "Example Hospital",
		PlaceOfDeathState: "MA",
		Cod1Text:          "Rupture of myocardium",
	}
	built, err := testBuilder().Build(rec, loadPatient(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if built.Bundle.Type != r4.BundleTypeDocument {
		t.Errorf("type = %s", built.Bundle.Type)
	}
	if built.Fingerprint == "" {
		t.Error("no fingerprint")
	}
	want, _ := Fingerprint(rec, loadPatient(t))
	if built.Fingerprint != want {
		t.Errorf("fingerprint = %s, want %s", built.Fingerprint, want)
	}
}

func TestBuilderPropagatesFieldErrors(t *testing.T) {
	_, err := testBuilder().Build(&Record{ActualDeathDate: "01/01/2019"}, nil)
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "actualDeathDate" {
		t.Fatalf("err = %v", err)
	}
}

func TestDanglingReferencesError(t *testing.T) {
	err := &DanglingReferencesError{References: []r4.DanglingReference{
		{Path: "entry[0].resource.subject", Reference: "urn:uuid:missing"},
	}}
	if !strings.Contains(err.Error(), "urn:uuid:missing") {
		t.Errorf("Error() = %q", err.Error())
	}
}
