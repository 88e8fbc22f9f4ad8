package record

import (
	"fmt"
	"strings"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/document"
)

// DanglingReferencesError reports references that do not resolve inside a
// built document.
type DanglingReferencesError struct {
	References []r4.DanglingReference
}

func (e *DanglingReferencesError) Error() string {
	parts := make([]string, len(e.References))
	for i, d := range e.References {
		parts[i] = d.String()
	}
	return fmt.Sprintf("%d unresolved references: %s", len(e.References), strings.Join(parts, ", "))
}

// Built is a validated document and what it was built from.
type Built struct {
	Bundle      *r4.Bundle
	Fingerprint string
}

// Builder maps records and assembles validated documents.
type Builder struct {
	Mapper    *Mapper
	Assembler *document.Assembler
}

// NewBuilder pairs a mapper with an assembler.
func NewBuilder(m *Mapper, a *document.Assembler) *Builder {
	return &Builder{Mapper: m, Assembler: a}
}

// Build maps rec and patient, assembles the document and checks that every
// reference in it resolves.
func (b *Builder) Build(rec *Record, patient *r4.Patient) (*Built, error) {
	opts, err := b.Mapper.Map(rec, patient)
	if err != nil {
		return nil, err
	}
	bundle, err := b.Assemble(opts)
	if err != nil {
		return nil, err
	}
	fp, err := Fingerprint(rec, patient)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}
	return &Built{Bundle: bundle, Fingerprint: fp}, nil
}

// Assemble builds and checks a document from options directly.
func (b *Builder) Assemble(opts *document.Options) (*r4.Bundle, error) {
	bundle, err := b.Assembler.Assemble(opts)
	if err != nil {
		return nil, err
	}
	dangling, err := bundle.CheckReferences()
	if err != nil {
		return nil, err
	}
	if len(dangling) > 0 {
		return nil, &DanglingReferencesError{References: dangling}
	}
	return bundle, nil
}
