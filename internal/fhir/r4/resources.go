package r4

import "strings"

// Patient represents a FHIR R4 Patient resource. It is both the clinical input
// describing the decedent and the Decedent entry in the document.
type Patient struct {
	DomainResource
	Identifier           []Identifier     `json:"identifier,omitempty"`
	Active               *bool            `json:"active,omitempty"`
	Name                 []HumanName      `json:"name,omitempty"`
	Telecom              []ContactPoint   `json:"telecom,omitempty"`
	Gender               string           `json:"gender,omitempty"` // male | female | other | unknown
	BirthDate            string           `json:"birthDate,omitempty"`
	DeceasedBoolean      *bool            `json:"deceasedBoolean,omitempty"`
	DeceasedDateTime     string           `json:"deceasedDateTime,omitempty"`
	Address              []Address        `json:"address,omitempty"`
	MaritalStatus        *CodeableConcept `json:"maritalStatus,omitempty"`
	GeneralPractitioner  []Reference      `json:"generalPractitioner,omitempty"`
	ManagingOrganization *Reference       `json:"managingOrganization,omitempty"`
}

// GetOfficialName returns the patient's official name, or first available.
func (p *Patient) GetOfficialName() *HumanName {
	return officialName(p.Name)
}

// GetFullName returns the patient's full name as a string.
func (p *Patient) GetFullName() string {
	return fullName(p.GetOfficialName(), false)
}

// GetHomeAddress returns the patient's home address.
func (p *Patient) GetHomeAddress() *Address {
	for i := range p.Address {
		if p.Address[i].Use == "home" {
			return &p.Address[i]
		}
	}
	if len(p.Address) > 0 {
		return &p.Address[0]
	}
	return nil
}

// GetSSN returns the patient's social security number, matched by system or
// by the Social Beneficiary Identifier type.
func (p *Patient) GetSSN() string {
	for _, id := range p.Identifier {
		if id.System == SystemSSN {
			return id.Value
		}
		if id.Type != nil {
			for _, coding := range id.Type.Coding {
				if coding.Code == "SB" {
					return id.Value
				}
			}
		}
	}
	return ""
}

// GetBirthPlace returns the address carried by the birth place extension.
func (p *Patient) GetBirthPlace() *Address {
	if ext := p.FindExtension(ExtensionBirthPlace); ext != nil {
		return ext.ValueAddress
	}
	return nil
}

// GetBirthSex returns the US Core birth sex code.
func (p *Patient) GetBirthSex() string {
	if ext := p.FindExtension(ExtensionUSCoreBirthSex); ext != nil {
		return ext.ValueCode
	}
	return ""
}

// GetMaritalStatusCode returns the first marital status code.
func (p *Patient) GetMaritalStatusCode() string {
	return p.MaritalStatus.Code()
}

// Practitioner represents a FHIR R4 Practitioner resource.
type Practitioner struct {
	DomainResource
	Identifier    []Identifier                `json:"identifier,omitempty"`
	Active        *bool                       `json:"active,omitempty"`
	Name          []HumanName                 `json:"name,omitempty"`
	Telecom       []ContactPoint              `json:"telecom,omitempty"`
	Gender        string                      `json:"gender,omitempty"`
	Address       []Address                   `json:"address,omitempty"`
	Qualification []PractitionerQualification `json:"qualification,omitempty"`
}

// PractitionerQualification represents a practitioner's qualifications.
type PractitionerQualification struct {
	Identifier []Identifier     `json:"identifier,omitempty"`
	Code       *CodeableConcept `json:"code,omitempty"`
	Period     *Period          `json:"period,omitempty"`
	Issuer     *Reference       `json:"issuer,omitempty"`
}

// GetOfficialName returns the practitioner's official name.
func (p *Practitioner) GetOfficialName() *HumanName {
	return officialName(p.Name)
}

// GetFullName returns the practitioner's full name as a string, with prefixes
// and suffixes.
func (p *Practitioner) GetFullName() string {
	return fullName(p.GetOfficialName(), true)
}

// PractitionerRole links a practitioner to an organization.
type PractitionerRole struct {
	DomainResource
	Practitioner *Reference        `json:"practitioner,omitempty"`
	Organization *Reference        `json:"organization,omitempty"`
	Code         []CodeableConcept `json:"code,omitempty"`
}

// Organization represents a FHIR R4 Organization resource.
type Organization struct {
	DomainResource
	Identifier []Identifier      `json:"identifier,omitempty"`
	Active     *bool             `json:"active,omitempty"`
	Type       []CodeableConcept `json:"type,omitempty"`
	Name       string            `json:"name,omitempty"`
	Telecom    []ContactPoint    `json:"telecom,omitempty"`
	Address    []Address         `json:"address,omitempty"`
	PartOf     *Reference        `json:"partOf,omitempty"`
}

// RelatedPerson represents a person related to the decedent.
type RelatedPerson struct {
	DomainResource
	Patient      *Reference        `json:"patient,omitempty"`
	Relationship []CodeableConcept `json:"relationship,omitempty"`
	Name         []HumanName       `json:"name,omitempty"`
	Address      []Address         `json:"address,omitempty"`
}

// Location represents a place: where the death or injury happened, or where
// the remains were disposed of.
type Location struct {
	DomainResource
	Name         string            `json:"name,omitempty"`
	Description  string            `json:"description,omitempty"`
	Type         []CodeableConcept `json:"type,omitempty"`
	Address      *Address          `json:"address,omitempty"`
	PhysicalType *CodeableConcept  `json:"physicalType,omitempty"`
}

func officialName(names []HumanName) *HumanName {
	for i := range names {
		if names[i].Use == "official" {
			return &names[i]
		}
	}
	if len(names) > 0 {
		return &names[0]
	}
	return nil
}

func fullName(name *HumanName, affixes bool) string {
	if name == nil {
		return ""
	}
	if name.Text != "" {
		return name.Text
	}
	parts := make([]string, 0, len(name.Prefix)+len(name.Given)+1)
	if affixes {
		parts = append(parts, name.Prefix...)
	}
	parts = append(parts, name.Given...)
	if name.Family != "" {
		parts = append(parts, name.Family)
	}
	result := strings.Join(parts, " ")
	if affixes {
		for _, suffix := range name.Suffix {
			result += ", " + suffix
		}
	}
	return result
}
