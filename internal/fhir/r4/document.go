package r4

import "encoding/json"

// Composition is the root of a document: it names the subject and indexes
// every other entry through its sections.
type Composition struct {
	DomainResource
	Identifier *Identifier           `json:"identifier,omitempty"`
	Status     string                `json:"status"`
	Type       CodeableConcept       `json:"type"`
	Subject    *Reference            `json:"subject,omitempty"`
	Date       string                `json:"date,omitempty"`
	Author     []Reference           `json:"author,omitempty"`
	Title      string                `json:"title,omitempty"`
	Attester   []CompositionAttester `json:"attester,omitempty"`
	Event      []CompositionEvent    `json:"event,omitempty"`
	Section    []CompositionSection  `json:"section,omitempty"`
}

// CompositionAttester is a party attesting to the composition.
type CompositionAttester struct {
	Mode  string     `json:"mode"` // personal | professional | legal | official
	Time  string     `json:"time,omitempty"`
	Party *Reference `json:"party,omitempty"`
}

// CompositionEvent is the clinical service being documented.
type CompositionEvent struct {
	Code   []CodeableConcept `json:"code,omitempty"`
	Detail []Reference       `json:"detail,omitempty"`
}

// CompositionSection groups references to entries.
type CompositionSection struct {
	Title string           `json:"title,omitempty"`
	Code  *CodeableConcept `json:"code,omitempty"`
	Entry []Reference      `json:"entry,omitempty"`
}

// Bundle is a container of resources. Documents use type "document" and list
// the Composition first.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Meta         *Meta         `json:"meta,omitempty"`
	Identifier   *Identifier   `json:"identifier,omitempty"`
	Type         string        `json:"type"`
	Timestamp    string        `json:"timestamp,omitempty"`
	Total        *int          `json:"total,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

// BundleEntry wraps a resource with the URL other entries use to refer to it.
type BundleEntry struct {
	FullURL  string   `json:"fullUrl,omitempty"`
	Resource Resource `json:"resource,omitempty"`
}

// Bundle types
const (
	BundleTypeDocument   = "document"
	BundleTypeCollection = "collection"
)

// NewBundle creates an empty bundle of the given type.
func NewBundle(bundleType string) *Bundle {
	return &Bundle{ResourceType: "Bundle", Type: bundleType}
}

// SetProfile replaces the declared profiles with url.
func (b *Bundle) SetProfile(url string) {
	if b.Meta == nil {
		b.Meta = &Meta{}
	}
	b.Meta.Profile = []string{url}
}

// AddEntry appends a resource under fullURL and returns the new entry's index.
func (b *Bundle) AddEntry(fullURL string, res Resource) int {
	b.Entry = append(b.Entry, BundleEntry{FullURL: fullURL, Resource: res})
	return len(b.Entry) - 1
}

// ResourcesOfType returns every entry resource with the given resource type.
func (b *Bundle) ResourcesOfType(resourceType string) []Resource {
	var out []Resource
	for _, e := range b.Entry {
		if e.Resource != nil && e.Resource.Base().ResourceType == resourceType {
			out = append(out, e.Resource)
		}
	}
	return out
}

// ToJSON serializes the Bundle to JSON.
func (b *Bundle) ToJSON() ([]byte, error) {
	return json.Marshal(b)
}

// ValueSet publishes the codes of one closed value set.
type ValueSet struct {
	DomainResource
	URL         string           `json:"url,omitempty"`
	Name        string           `json:"name,omitempty"`
	Title       string           `json:"title,omitempty"`
	Status      string           `json:"status"`
	Description string           `json:"description,omitempty"`
	Compose     *ValueSetCompose `json:"compose,omitempty"`
}

// ValueSetCompose lists the included codes grouped by system.
type ValueSetCompose struct {
	Include []ValueSetInclude `json:"include"`
}

// ValueSetInclude is the set of concepts taken from one code system.
type ValueSetInclude struct {
	System  string            `json:"system,omitempty"`
	Concept []ValueSetConcept `json:"concept,omitempty"`
}

// ValueSetConcept is one code in a value set.
type ValueSetConcept struct {
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}
