package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nightingaleproject/go-vrdr/internal/domain/deathrecord"
	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
	"github.com/nightingaleproject/go-vrdr/internal/observability/metrics"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/document"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/record"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]*deathrecord.DeathRecord
}

func (m *memoryStore) Load(_ context.Context, id string) (*deathrecord.DeathRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.records[id]
	if !ok {
		return nil, deathrecord.ErrNotFound
	}
	agg := deathrecord.New(id)
	agg.LoadFromHistory(stored.History())
	return agg, nil
}

func (m *memoryStore) Save(_ context.Context, agg *deathrecord.DeathRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg.ClearChanges()
	m.records[agg.ID()] = agg
	return nil
}

type testServer struct {
	*httptest.Server
	store   *memoryStore
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	assembler := document.NewAssembler(document.Config{
		IDs: &document.SequentialGenerator{},
		Now: func() time.Time { return time.Date(2019, time.January, 2, 15, 4, 0, 0, time.UTC) },
	}, nil)
	builder := record.NewBuilder(record.NewMapper(time.UTC), assembler)

	ts := &testServer{
		store:   &memoryStore{records: make(map[string]*deathrecord.DeathRecord)},
		metrics: metrics.New(prometheus.NewRegistry()),
	}

	r := chi.NewRouter()
	r.Mount("/death-records", NewDeathRecordHandler(ts.store, builder, ts.metrics, nil).Routes())
	r.Mount("/documents", NewDocumentHandler(builder, ts.metrics, nil).Routes())
	r.Get("/valuesets", ValueSets)

	ts.Server = httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// bundleSummary decodes the parts of a served bundle the tests look at.
type bundleSummary struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Entry []struct {
		FullURL  string          `json:"fullUrl"`
		Resource json.RawMessage `json:"resource"`
	} `json:"entry"`
}

const draftBody = `{
	"record": {
		"actualDeathDate": "2019-01-01",
		"actualDeathTime": "11:15",
		"certifierName": "Bob Certifier",
		"mannerOfDeath": "Natural",
		"placeOfDeathName": "Example Hospital",
		"placeOfDeathState": "ma",
		"cod1Text": "Rupture of myocardium"
	},
	"decedent": {
		"resourceType": "Patient",
		"name": [{"given": ["Joe"], "family": "Decedent"}],
		"gender": "male",
		"birthDate": "1940-01-15"
	}
}`

func createRecord(t *testing.T, ts *testServer) DraftResponse {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/death-records", draftBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var out DraftResponse
	decode(t, resp, &out)
	return out
}

func TestCreateDeathRecord(t *testing.T) {
	ts := newTestServer(t)
	out := createRecord(t, ts)

	if out.ID == "" || out.DocumentID == "" || out.Status != string(deathrecord.StatusDrafted) {
		t.Fatalf("response = %+v", out)
	}
	dangling, err := r4.CheckReferences(out.Bundle)
	if err != nil || len(dangling) != 0 {
		t.Errorf("bundle references: %v %v", dangling, err)
	}

	stored, _ := ts.store.Load(context.Background(), out.ID)
	if stored.Jurisdiction() != "MA" {
		t.Errorf("jurisdiction = %q", stored.Jurisdiction())
	}
	if got := testutil.ToFloat64(ts.metrics.DocumentsBuilt); got != 1 {
		t.Errorf("documents built = %v", got)
	}
}

func TestCreateRejectsInvalidDate(t *testing.T) {
	ts := newTestServer(t)
	body := strings.Replace(draftBody, `"2019-01-01"`, `"01/01/2019"`, 1)

	resp := ts.do(t, http.MethodPost, "/death-records", body)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != fhirJSON {
		t.Errorf("Content-Type = %q", ct)
	}
	var oo r4.OperationOutcome
	decode(t, resp, &oo)
	if len(oo.Issue) != 1 || len(oo.Issue[0].Expression) != 1 || oo.Issue[0].Expression[0] != "actualDeathDate" {
		t.Errorf("outcome = %+v", oo)
	}
	if got := testutil.ToFloat64(ts.metrics.BuildFailures.WithLabelValues(record.CodeInvalidDate)); got != 1 {
		t.Errorf("build failures = %v", got)
	}
}

func TestCreateOmitsUnrecognizedAnswer(t *testing.T) {
	ts := newTestServer(t)
	body := strings.Replace(draftBody, `"Natural"`, `"Natural causes"`, 1)

	resp := ts.do(t, http.MethodPost, "/death-records", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out DraftResponse
	decode(t, resp, &out)
	if strings.Contains(string(out.Bundle), document.ProfileMannerOfDeath) {
		t.Error("bundle carries a manner of death for an unrecognized answer")
	}
	if !strings.Contains(string(out.Bundle), "Rupture of myocardium") {
		t.Error("bundle is missing the cause of death")
	}
}

func TestCreateRequiresRecord(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []string{`{`, `{}`} {
		if resp := ts.do(t, http.MethodPost, "/death-records", body); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, resp.StatusCode)
		}
	}
}

func TestGetDeathRecordAndBundle(t *testing.T) {
	ts := newTestServer(t)
	created := createRecord(t, ts)

	resp := ts.do(t, http.MethodGet, "/death-records/"+created.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var rec RecordResponse
	decode(t, resp, &rec)
	if rec.Version != 1 || len(rec.History) != 1 || rec.History[0].Type != string(deathrecord.EventDeathRecordDrafted) {
		t.Errorf("record = %+v", rec)
	}

	resp = ts.do(t, http.MethodGet, "/death-records/"+created.ID+"/bundle", "")
	if ct := resp.Header.Get("Content-Type"); ct != fhirJSON {
		t.Errorf("Content-Type = %q", ct)
	}
	var bundle bundleSummary
	decode(t, resp, &bundle)
	if bundle.ID != created.DocumentID || bundle.Type != r4.BundleTypeDocument {
		t.Errorf("bundle id %s type %s", bundle.ID, bundle.Type)
	}

	if resp := ts.do(t, http.MethodGet, "/death-records/missing", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing status = %d", resp.StatusCode)
	}
}

func TestSubmitAndRedraft(t *testing.T) {
	ts := newTestServer(t)
	created := createRecord(t, ts)
	path := "/death-records/" + created.ID

	resp := ts.do(t, http.MethodPost, path+"/submit", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	if resp := ts.do(t, http.MethodPost, path+"/submit", ""); resp.StatusCode != http.StatusConflict {
		t.Errorf("second submit status = %d", resp.StatusCode)
	}
	if resp := ts.do(t, http.MethodPut, path, draftBody); resp.StatusCode != http.StatusConflict {
		t.Errorf("redraft while submitted status = %d", resp.StatusCode)
	}

	agg, _ := ts.store.Load(context.Background(), created.ID)
	if err := agg.Reject(created.DocumentID, 422, "missing cause"); err != nil {
		t.Fatal(err)
	}
	ts.store.Save(context.Background(), agg)

	resp = ts.do(t, http.MethodPut, path, draftBody)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("redraft status = %d", resp.StatusCode)
	}
	var redrafted DraftResponse
	decode(t, resp, &redrafted)
	if redrafted.DocumentID == created.DocumentID || redrafted.Status != string(deathrecord.StatusDrafted) {
		t.Errorf("redraft = %+v", redrafted)
	}
	if resp := ts.do(t, http.MethodPost, path+"/submit", ""); resp.StatusCode != http.StatusAccepted {
		t.Errorf("resubmit status = %d", resp.StatusCode)
	}
}

func TestAssembleDocument(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/documents", `{"decedent": {"name": "Joe Decedent"}, "certifier": {"name": "Bob Certifier"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var bundle bundleSummary
	decode(t, resp, &bundle)
	if bundle.Type != r4.BundleTypeDocument || len(bundle.Entry) == 0 {
		t.Errorf("bundle = %+v", bundle)
	}

	resp = ts.do(t, http.MethodPost, "/documents", `{"mannerOfDeath": {"code": "0000"}}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("bad code status = %d", resp.StatusCode)
	}
}

func TestValueSets(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/valuesets", "")
	var bundle bundleSummary
	decode(t, resp, &bundle)
	if bundle.Type != r4.BundleTypeCollection || len(bundle.Entry) == 0 {
		t.Errorf("catalog = %s with %d entries", bundle.Type, len(bundle.Entry))
	}
}
