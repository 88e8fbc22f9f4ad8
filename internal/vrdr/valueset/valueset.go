// Package valueset translates certificate answers into coded values.
//
// Every coded certificate field has its own enumeration type backed by a closed
// table. Parsing form text or a code yields an enumeration value; asking a value
// for its Concept yields the (system, code, display) triple written into FHIR.
// Both directions fail with *UnrecognizedCodeError for anything outside the table.
package valueset

import (
	"fmt"
	"strings"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
)

// CanonicalBase is the URL prefix under which the value sets are published.
const CanonicalBase = "http://hl7.org/fhir/us/vrdr/ValueSet/"

// Concept is a coded value ready to be written into a resource.
type Concept struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

// CodeableConcept renders the concept with its display as text.
func (c Concept) CodeableConcept() *r4.CodeableConcept {
	return r4.NewCodeableConcept(c.Code, c.System, c.Display)
}

// Coding renders the concept as a single coding.
func (c Concept) Coding() *r4.Coding {
	return &r4.Coding{System: c.System, Code: c.Code, Display: c.Display}
}

// IsZero reports whether the concept carries no code.
func (c Concept) IsZero() bool { return c.Code == "" }

// UnrecognizedCodeError reports a value that is not part of a value set.
type UnrecognizedCodeError struct {
	ValueSet string
	Value    string
}

func (e *UnrecognizedCodeError) Error() string {
	return fmt.Sprintf("unrecognized %s value %q", e.ValueSet, e.Value)
}

type entry[T ~int] struct {
	value   T
	concept Concept
	aliases []string
}

// table is the closed lookup behind one enumeration type.
type table[T ~int] struct {
	name        string
	title       string
	description string
	entries     []entry[T]
}

func newTable[T ~int](name, title, description string, entries ...entry[T]) *table[T] {
	t := &table[T]{name: name, title: title, description: description, entries: entries}
	catalog = append(catalog, t)
	return t
}

func (t *table[T]) concept(v T) (Concept, error) {
	for _, e := range t.entries {
		if e.value == v {
			return e.concept, nil
		}
	}
	return Concept{}, &UnrecognizedCodeError{ValueSet: t.name, Value: fmt.Sprintf("%d", int(v))}
}

// parse matches form text against each entry's display and aliases, ignoring
// case and surrounding space.
func (t *table[T]) parse(text string) (T, error) {
	needle := strings.TrimSpace(text)
	for _, e := range t.entries {
		if strings.EqualFold(needle, e.concept.Display) {
			return e.value, nil
		}
		for _, alias := range e.aliases {
			if strings.EqualFold(needle, alias) {
				return e.value, nil
			}
		}
	}
	return 0, &UnrecognizedCodeError{ValueSet: t.name, Value: text}
}

func (t *table[T]) fromCode(code string) (T, error) {
	needle := strings.TrimSpace(code)
	for _, e := range t.entries {
		if e.concept.Code == needle {
			return e.value, nil
		}
	}
	return 0, &UnrecognizedCodeError{ValueSet: t.name, Value: code}
}

func (t *table[T]) display(v T) string {
	c, err := t.concept(v)
	if err != nil {
		return fmt.Sprintf("%s(%d)", t.name, int(v))
	}
	return c.Display
}

func (t *table[T]) valueSet() *r4.ValueSet {
	vs := &r4.ValueSet{
		DomainResource: r4.DomainResource{ResourceType: "ValueSet", ID: t.name},
		URL:            CanonicalBase + t.name,
		Name:           t.name,
		Title:          t.title,
		Status:         r4.StatusActive,
		Description:    t.description,
		Compose:        &r4.ValueSetCompose{},
	}
	bySystem := make(map[string]int)
	for _, e := range t.entries {
		idx, ok := bySystem[e.concept.System]
		if !ok {
			vs.Compose.Include = append(vs.Compose.Include, r4.ValueSetInclude{System: e.concept.System})
			idx = len(vs.Compose.Include) - 1
			bySystem[e.concept.System] = idx
		}
		vs.Compose.Include[idx].Concept = append(vs.Compose.Include[idx].Concept,
			r4.ValueSetConcept{Code: e.concept.Code, Display: e.concept.Display})
	}
	return vs
}

type publisher interface {
	valueSet() *r4.ValueSet
}

var catalog []publisher

// Catalog returns every value set as a FHIR ValueSet resource, in declaration order.
func Catalog() []*r4.ValueSet {
	out := make([]*r4.ValueSet, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p.valueSet())
	}
	return out
}

// CatalogBundle wraps the catalog in a collection bundle.
func CatalogBundle() *r4.Bundle {
	b := r4.NewBundle(r4.BundleTypeCollection)
	for _, vs := range Catalog() {
		b.AddEntry(vs.URL, vs)
	}
	return b
}
