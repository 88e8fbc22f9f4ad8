// Package r4 provides the FHIR R4 data structures emitted in death certificate documents.
package r4

// Meta carries the profiles a resource claims conformance to. Documents are
// built fresh, so version and lastUpdated are left to the receiving server.
type Meta struct {
	Profile []string `json:"profile,omitempty"`
}

// Identifier is a business identifier such as an SSN, NPI or certificate number.
type Identifier struct {
	Use    string           `json:"use,omitempty"`
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// Reference points at another entry by its fullUrl.
type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

// Period bounds a time range with FHIR dateTime strings.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Quantity is a UCUM measured amount, used for the decedent's age.
type Quantity struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit,omitempty"`
	System string  `json:"system,omitempty"`
	Code   string  `json:"code,omitempty"`
}

type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
	Prefix []string `json:"prefix,omitempty"`
	Suffix []string `json:"suffix,omitempty"`
}

type Address struct {
	Use        string   `json:"use,omitempty"`
	Type       string   `json:"type,omitempty"`
	Text       string   `json:"text,omitempty"`
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	District   string   `json:"district,omitempty"`
	State      string   `json:"state,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
}

// IsEmpty reports whether no address element carries a value.
func (a *Address) IsEmpty() bool {
	if a == nil {
		return true
	}
	return len(a.Line) == 0 && a.City == "" && a.District == "" && a.State == "" &&
		a.PostalCode == "" && a.Country == "" && a.Text == ""
}

type ContactPoint struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
	Use    string `json:"use,omitempty"`
}

// Extension represents a FHIR extension. Complex extensions nest further
// extensions instead of carrying a value.
type Extension struct {
	URL                  string           `json:"url"`
	Extension            []Extension      `json:"extension,omitempty"`
	ValueString          string           `json:"valueString,omitempty"`
	ValueBoolean         *bool            `json:"valueBoolean,omitempty"`
	ValueCode            string           `json:"valueCode,omitempty"`
	ValueDateTime        string           `json:"valueDateTime,omitempty"`
	ValueCoding          *Coding          `json:"valueCoding,omitempty"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
	ValueIdentifier      *Identifier      `json:"valueIdentifier,omitempty"`
	ValueReference       *Reference       `json:"valueReference,omitempty"`
	ValueAddress         *Address         `json:"valueAddress,omitempty"`
}

// OperationOutcome is the error body of every failed API call.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

// OperationOutcomeIssue is one problem. Expression names the input field
// that caused it, in the wizard's field naming.
type OperationOutcomeIssue struct {
	Severity    string           `json:"severity"`
	Code        string           `json:"code"`
	Details     *CodeableConcept `json:"details,omitempty"`
	Diagnostics string           `json:"diagnostics,omitempty"`
	Expression  []string         `json:"expression,omitempty"`
}

// NewErrorOutcome returns an outcome with one error issue.
func NewErrorOutcome(code, diagnostics string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue:        []OperationOutcomeIssue{{Severity: "error", Code: code, Diagnostics: diagnostics}},
	}
}

// NewFieldOutcome returns an error outcome naming the input field at fault.
func NewFieldOutcome(code, diagnostics, field string) *OperationOutcome {
	oo := NewErrorOutcome(code, diagnostics)
	oo.Issue[0].Expression = []string{field}
	return oo
}

// Code systems and identifier systems used in death certificate documents
const (
	SystemSNOMED            = "http://snomed.info/sct"
	SystemLOINC             = "http://loinc.org"
	SystemUCUM              = "http://unitsofmeasure.org"
	SystemNPI               = "http://hl7.org/fhir/sid/us-npi"
	SystemSSN               = "http://hl7.org/fhir/sid/us-ssn"
	SystemIdentifierType    = "http://terminology.hl7.org/CodeSystem/v2-0203"
	SystemYesNo             = "http://terminology.hl7.org/CodeSystem/v2-0136"
	SystemDegree            = "http://terminology.hl7.org/CodeSystem/v2-0360"
	SystemNullFlavor        = "http://terminology.hl7.org/CodeSystem/v3-NullFlavor"
	SystemMaritalStatus     = "http://terminology.hl7.org/CodeSystem/v3-MaritalStatus"
	SystemRoleCode          = "http://terminology.hl7.org/CodeSystem/v3-RoleCode"
	SystemEducationLevel    = "http://terminology.hl7.org/CodeSystem/v3-EducationLevel"
	SystemLocationPhysical  = "http://terminology.hl7.org/CodeSystem/location-physical-type"
	SystemOrganizationType  = "http://terminology.hl7.org/CodeSystem/organization-type"
	SystemListOrder         = "http://terminology.hl7.org/CodeSystem/list-order"
	SystemRaceAndEthnicity  = "urn:oid:2.16.840.1.113883.6.238"
	SystemPHINQuestions     = "urn:oid:2.16.840.1.114222.4.5.274"
	SystemIndustryCensus    = "urn:oid:2.16.840.1.114222.4.11.7187"
	SystemOccupationCensus  = "urn:oid:2.16.840.1.114222.4.11.7186"
	SystemAdministrativeSex = "http://hl7.org/fhir/administrative-gender"
)

// Extension URLs read from or written onto the decedent.
const (
	ExtensionUSCoreRace      = "http://hl7.org/fhir/us/core/StructureDefinition/us-core-race"
	ExtensionUSCoreEthnicity = "http://hl7.org/fhir/us/core/StructureDefinition/us-core-ethnicity"
	ExtensionUSCoreBirthSex  = "http://hl7.org/fhir/us/core/StructureDefinition/us-core-birthsex"
	ExtensionBirthPlace      = "http://hl7.org/fhir/StructureDefinition/patient-birthPlace"
)

// Resource statuses
const (
	StatusFinal     = "final"
	StatusCompleted = "completed"
	StatusCurrent   = "current"
	StatusActive    = "active"
)
