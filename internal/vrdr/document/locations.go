package document

import (
	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
)

// NewLocation builds a death, injury or disposition location under the given
// profile. Coded fields are written only when they carry a code or text.
func NewLocation(profile string, opts *LocationOptions) *r4.Location {
	l := &r4.Location{
		DomainResource: r4.NewDomainResource("Location", profile),
		Name:           opts.Name,
		Description:    opts.Description,
		Address:        r4.NewPostalAddress(deref(opts.Address)),
	}
	if opts.Type != nil && (opts.Type.Code != "" || opts.Type.Display != "") {
		t := withSystem(*opts.Type, r4.SystemRoleCode)
		l.Type = []r4.CodeableConcept{*t.CodeableConcept()}
	}
	if opts.PhysicalType != nil && (opts.PhysicalType.Code != "" || opts.PhysicalType.Display != "") {
		pt := withSystem(*opts.PhysicalType, r4.SystemLocationPhysical)
		l.PhysicalType = pt.CodeableConcept()
	}
	return l
}
