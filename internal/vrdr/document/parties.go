package document

import (
	"strings"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/valueset"
)

// Decedent is the Patient the certificate is about.
type Decedent struct {
	r4.Patient
}

var genders = map[string]bool{"male": true, "female": true, "other": true, "unknown": true}

// NewDecedent builds the decedent. Extensions, identifiers and coded fields are
// only added when their option is present.
func NewDecedent(opts *DecedentOptions) (*Decedent, error) {
	d := &Decedent{Patient: r4.Patient{
		DomainResource: r4.NewDomainResource("Patient", ProfileDecedent),
	}}
	if opts == nil {
		return d, nil
	}

	if len(opts.Race) > 0 {
		ext, err := raceExtension(r4.ExtensionUSCoreRace, "Race", opts.Race)
		if err != nil {
			return nil, err
		}
		d.AddExtension(ext)
	}
	if opts.Ethnicity != nil {
		ext, err := raceExtension(r4.ExtensionUSCoreEthnicity, "Ethnicity", []RaceOptions{*opts.Ethnicity})
		if err != nil {
			return nil, err
		}
		d.AddExtension(ext)
	}
	if opts.BirthSex != nil {
		c, err := opts.BirthSex.Concept()
		if err != nil {
			return nil, err
		}
		d.AddExtension(r4.Extension{URL: r4.ExtensionUSCoreBirthSex, ValueCode: c.Code})
	}
	if addr := r4.NewPostalAddress(deref(opts.BirthPlace)); addr != nil {
		d.AddExtension(r4.Extension{URL: r4.ExtensionBirthPlace, ValueAddress: addr})
	}

	if opts.SSN != "" {
		d.Identifier = []r4.Identifier{{
			Type:   codeSocialBeneficiaryID.CodeableConcept(),
			System: r4.SystemSSN,
			Value:  opts.SSN,
		}}
	}
	if opts.Name != "" {
		d.Name = []r4.HumanName{r4.NewHumanName(opts.Name)}
	}
	if opts.Gender != "" {
		gender := strings.ToLower(strings.TrimSpace(opts.Gender))
		if !genders[gender] {
			return nil, &valueset.UnrecognizedCodeError{ValueSet: "AdministrativeGender", Value: opts.Gender}
		}
		d.Gender = gender
	}
	if opts.BirthDate != "" {
		birthDate, err := FormatDate(opts.BirthDate)
		if err != nil {
			return nil, err
		}
		d.BirthDate = birthDate
	}
	if addr := r4.NewPostalAddress(deref(opts.Address)); addr != nil {
		addr.Use = "home"
		d.Address = []r4.Address{*addr}
	}
	if opts.MaritalStatus != nil {
		c, err := opts.MaritalStatus.Concept()
		if err != nil {
			return nil, err
		}
		d.MaritalStatus = c.CodeableConcept()
	}
	return d, nil
}

// raceExtension builds a US Core race or ethnicity extension: one coding per
// entry under its category sub-extension, then the entries' texts joined by a
// space.
func raceExtension(url, kind string, entries []RaceOptions) (r4.Extension, error) {
	ext := r4.Extension{URL: url}
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		category := e.Type
		if category == "" {
			category = "ombCategory"
		}
		if category != "ombCategory" && category != "detailed" {
			return r4.Extension{}, &valueset.UnrecognizedCodeError{ValueSet: kind + "Category", Value: e.Type}
		}
		if e.Code == "" {
			return r4.Extension{}, &valueset.UnrecognizedCodeError{ValueSet: kind, Value: e.Text}
		}
		ext.Extension = append(ext.Extension, r4.Extension{
			URL:         category,
			ValueCoding: &r4.Coding{System: r4.SystemRaceAndEthnicity, Code: e.Code, Display: e.Text},
		})
		if e.Text != "" {
			texts = append(texts, e.Text)
		} else {
			texts = append(texts, e.Code)
		}
	}
	ext.Extension = append(ext.Extension, r4.Extension{URL: "text", ValueString: strings.Join(texts, " ")})
	return ext, nil
}

// NewPractitioner builds a certifier, mortician or death pronouncer under the
// given profile.
func NewPractitioner(profile string, opts *PractitionerOptions) (*r4.Practitioner, error) {
	p := &r4.Practitioner{DomainResource: r4.NewDomainResource("Practitioner", profile)}
	if opts == nil {
		return p, nil
	}
	if opts.Name != "" {
		p.Name = []r4.HumanName{r4.NewHumanName(opts.Name)}
	}
	if opts.Identifier != "" {
		p.Identifier = []r4.Identifier{{Value: opts.Identifier}}
	}
	if addr := r4.NewPostalAddress(deref(opts.Address)); addr != nil {
		p.Address = []r4.Address{*addr}
	}
	if q := opts.Qualification; q != nil {
		qual := r4.PractitionerQualification{}
		if q.Identifier != "" {
			qual.Identifier = []r4.Identifier{{Value: q.Identifier}}
		}
		if q.Code != nil {
			if q.Code.Code == "" {
				return nil, &valueset.UnrecognizedCodeError{ValueSet: "Degree", Value: q.Code.Display}
			}
			code := *q.Code
			if code.System == "" {
				code.System = r4.SystemDegree
			}
			qual.Code = code.CodeableConcept()
		}
		p.Qualification = []r4.PractitionerQualification{qual}
	}
	return p, nil
}

// RelatedPerson is a parent or spouse of the decedent.
type RelatedPerson struct {
	r4.RelatedPerson
}

func newRelatedPerson(profile string, relationship valueset.Concept, opts *RelatedPersonOptions) *RelatedPerson {
	rp := &RelatedPerson{RelatedPerson: r4.RelatedPerson{
		DomainResource: r4.NewDomainResource("RelatedPerson", profile),
		Relationship:   []r4.CodeableConcept{*relationship.CodeableConcept()},
	}}
	if opts.Name != "" {
		rp.Name = []r4.HumanName{r4.NewHumanName(opts.Name)}
	}
	return rp
}

// NewFather builds the decedent's father.
func NewFather(opts *RelatedPersonOptions) *RelatedPerson {
	return newRelatedPerson(ProfileDecedentFather, codeFather, opts)
}

// NewMother builds the decedent's mother.
func NewMother(opts *RelatedPersonOptions) *RelatedPerson {
	return newRelatedPerson(ProfileDecedentMother, codeMother, opts)
}

// NewSpouse builds the decedent's spouse.
func NewSpouse(opts *RelatedPersonOptions) *RelatedPerson {
	return newRelatedPerson(ProfileDecedentSpouse, codeSpouse, opts)
}

// AddDecedentReference links the related person to the decedent.
func (rp *RelatedPerson) AddDecedentReference(decedent *Entry) error {
	ref, err := decedent.reference("related person patient")
	if err != nil {
		return err
	}
	rp.Patient = ref
	return nil
}

// NewFuneralHome builds the funeral home organization.
func NewFuneralHome(opts *OrganizationOptions) *r4.Organization {
	org := &r4.Organization{
		DomainResource: r4.NewDomainResource("Organization", ProfileFuneralHome),
		Type:           []r4.CodeableConcept{*codeFuneralHomeType.CodeableConcept()},
		Name:           opts.Name,
	}
	if opts.Identifier != "" {
		org.Identifier = []r4.Identifier{{Value: opts.Identifier}}
	}
	if addr := r4.NewPostalAddress(deref(opts.Address)); addr != nil {
		org.Address = []r4.Address{*addr}
	}
	return org
}

// NewInterestedParty builds an organization with an interest in the record.
func NewInterestedParty(opts *InterestedPartyOptions) *r4.Organization {
	org := &r4.Organization{
		DomainResource: r4.NewDomainResource("Organization", ProfileInterestedParty),
		Name:           opts.Name,
	}
	if opts.Identifier != "" {
		org.Identifier = []r4.Identifier{{Value: opts.Identifier}}
	}
	if opts.TypeCode != "" {
		org.Type = []r4.CodeableConcept{*r4.NewCodeableConcept(opts.TypeCode, r4.SystemOrganizationType, opts.TypeDisplay)}
	}
	if addr := r4.NewPostalAddress(deref(opts.Address)); addr != nil {
		org.Address = []r4.Address{*addr}
	}
	return org
}

// FuneralHomeDirector is the role the mortician holds at the funeral home.
type FuneralHomeDirector struct {
	r4.PractitionerRole
}

// NewFuneralHomeDirector builds an unlinked director role.
func NewFuneralHomeDirector() *FuneralHomeDirector {
	return &FuneralHomeDirector{PractitionerRole: r4.PractitionerRole{
		DomainResource: r4.NewDomainResource("PractitionerRole", ProfileFuneralHomeDirector),
	}}
}

// AddMorticianReference names the practitioner holding the role.
func (r *FuneralHomeDirector) AddMorticianReference(mortician *Entry) error {
	ref, err := mortician.reference("funeral home director practitioner")
	if err != nil {
		return err
	}
	r.Practitioner = ref
	return nil
}

// AddFuneralHomeReference names the organization the role is held at.
func (r *FuneralHomeDirector) AddFuneralHomeReference(funeralHome *Entry) error {
	ref, err := funeralHome.reference("funeral home director organization")
	if err != nil {
		return err
	}
	r.Organization = ref
	return nil
}

func deref(a *r4.Address) r4.Address {
	if a == nil {
		return r4.Address{}
	}
	return *a
}
