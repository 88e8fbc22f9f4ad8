package r4

import "strings"

// Resource is implemented by every resource that can sit in a bundle entry.
type Resource interface {
	Base() *DomainResource
}

// DomainResource carries the elements shared by every resource in a document.
// Resource structs embed it so the fields serialize inline.
type DomainResource struct {
	ResourceType string      `json:"resourceType"`
	ID           string      `json:"id,omitempty"`
	Meta         *Meta       `json:"meta,omitempty"`
	Extension    []Extension `json:"extension,omitempty"`
}

// NewDomainResource returns a base for the given resource type tagged with a profile.
func NewDomainResource(resourceType, profile string) DomainResource {
	r := DomainResource{ResourceType: resourceType}
	if profile != "" {
		r.SetProfile(profile)
	}
	return r
}

// Base returns the shared resource elements.
func (r *DomainResource) Base() *DomainResource { return r }

// SetProfile replaces the declared profiles with url.
func (r *DomainResource) SetProfile(url string) {
	if r.Meta == nil {
		r.Meta = &Meta{}
	}
	r.Meta.Profile = []string{url}
}

// AddExtension appends an extension; a resource may carry several.
func (r *DomainResource) AddExtension(ext Extension) {
	r.Extension = append(r.Extension, ext)
}

// FindExtension returns the first extension with the given URL.
func (r *DomainResource) FindExtension(url string) *Extension {
	for i := range r.Extension {
		if r.Extension[i].URL == url {
			return &r.Extension[i]
		}
	}
	return nil
}

// NewCodeableConcept builds a concept with a single coding. System and display are
// optional; the coding is only emitted when a code is present.
func NewCodeableConcept(code, system, display string) *CodeableConcept {
	cc := &CodeableConcept{Text: display}
	if code != "" {
		cc.Coding = []Coding{{System: system, Code: code, Display: display}}
	}
	return cc
}

// Code returns the first coding's code, or "".
func (c *CodeableConcept) Code() string {
	if c == nil || len(c.Coding) == 0 {
		return ""
	}
	return c.Coding[0].Code
}

// NewHumanName splits a full name on whitespace: every token but the last is a
// given name and the last is the family name. A single token is only a given name.
func NewHumanName(full string) HumanName {
	name := HumanName{Use: "official"}
	tokens := strings.Fields(full)
	switch len(tokens) {
	case 0:
	case 1:
		name.Given = tokens
	default:
		name.Given = tokens[:len(tokens)-1]
		name.Family = tokens[len(tokens)-1]
	}
	return name
}

// NewPostalAddress copies the supplied address fields and tags the copy as postal.
// It returns nil when no field is set.
func NewPostalAddress(fields Address) *Address {
	if fields.IsEmpty() {
		return nil
	}
	addr := fields
	if len(fields.Line) > 0 {
		addr.Line = append([]string(nil), fields.Line...)
	}
	addr.Type = "postal"
	return &addr
}

// NewReference points at a bundle entry's full URL.
func NewReference(fullURL string) *Reference {
	return &Reference{Reference: fullURL}
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }
