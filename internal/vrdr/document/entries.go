package document

import (
	"errors"
	"fmt"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
)

// ErrMissingLinkage means a resource was wired to an entry that was never
// allocated. It indicates a construction order bug, not bad input.
var ErrMissingLinkage = errors.New("missing required linkage")

// Entry is a resource with the full URL allocated for it.
type Entry struct {
	FullURL  string
	Resource r4.Resource
	// Indexed entries are listed in the certificate's section.
	Indexed bool
}

func (e *Entry) reference(target string) (*r4.Reference, error) {
	if e == nil || e.FullURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingLinkage, target)
	}
	return r4.NewReference(e.FullURL), nil
}

func (e *Entry) resourceType() string {
	if e == nil || e.Resource == nil {
		return ""
	}
	return e.Resource.Base().ResourceType
}
