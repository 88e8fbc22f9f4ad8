package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildWritesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json")
	if _, err := run(t, "build",
		"--record", "../../test/fixtures/record.json",
		"--patient", "../../test/fixtures/patient.json",
		"--timezone", "America/New_York",
		"--out", path); err != nil {
		t.Fatalf("build: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	dangling, err := r4.CheckReferences(data)
	if err != nil || len(dangling) > 0 {
		t.Fatalf("built bundle: %v %v", dangling, err)
	}

	out, err := run(t, "validate", path)
	if err != nil || !strings.Contains(out, "all references resolve") {
		t.Errorf("validate: %q %v", out, err)
	}
}

func TestBuildRejectsBadDate(t *testing.T) {
	dir := t.TempDir()
	recPath := filepath.Join(dir, "record.json")
	os.WriteFile(recPath, []byte(`{"actualDeathDate": "01/01/2019"}`), 0o644)

	_, err := run(t, "build", "--record", recPath)
	if err == nil || !strings.Contains(err.Error(), "actualDeathDate") {
		t.Errorf("err = %v", err)
	}
	if _, err := run(t, "build"); err == nil {
		t.Error("build without --record succeeded")
	}
	if _, err := run(t, "build", "--record", recPath, "--timezone", "Mars/Olympus"); err == nil {
		t.Error("bad timezone accepted")
	}
}

func TestValidateReportsDangling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json")
	os.WriteFile(path, []byte(`{
		"resourceType": "Bundle",
		"type": "document",
		"entry": [
			{"fullUrl": "urn:uuid:a", "resource": {"resourceType": "Observation", "subject": {"reference": "urn:uuid:b"}}}
		]
	}`), 0o644)

	out, err := run(t, "validate", path)
	if !errors.Is(err, errDangling) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out, "entry[0].resource.subject.reference -> urn:uuid:b") {
		t.Errorf("output = %q", out)
	}
}

func TestValueSetsTable(t *testing.T) {
	out, err := run(t, "valuesets")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "NAME") || strings.Count(out, "\n") < 3 {
		t.Errorf("output = %q", out)
	}

	out, err = run(t, "valuesets", "--json")
	if err != nil || !strings.Contains(out, `"type": "collection"`) {
		t.Errorf("json output: %v", err)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := splitBrokers(" a:9092, ,b:9092")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Errorf("got %v", got)
	}
}
