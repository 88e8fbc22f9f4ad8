package document

import (
	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/valueset"
)

// Options describes one death certificate document. Every value is already in
// its final coded or formatted form; a nil field omits the matching resource.
type Options struct {
	Identifier                   string                        `json:"identifier,omitempty"`
	DeathCertificate             *DeathCertificateOptions      `json:"deathCertificate,omitempty"`
	Decedent                     *DecedentOptions              `json:"decedent,omitempty"`
	Father                       *RelatedPersonOptions         `json:"father,omitempty"`
	Mother                       *RelatedPersonOptions         `json:"mother,omitempty"`
	Spouse                       *RelatedPersonOptions         `json:"spouse,omitempty"`
	DecedentAge                  *AgeOptions                   `json:"decedentAge,omitempty"`
	DecedentPregnancy            *valueset.PregnancyStatus     `json:"decedentPregnancy,omitempty"`
	DecedentTransportationRole   *valueset.TransportationRole  `json:"decedentTransportationRole,omitempty"`
	TobaccoUseContributedToDeath *valueset.TobaccoUse          `json:"tobaccoUseContributedToDeath,omitempty"`
	DecedentEducationLevel       *valueset.EducationLevel      `json:"decedentEducationLevel,omitempty"`
	DecedentEmploymentHistory    *EmploymentHistoryOptions     `json:"decedentEmploymentHistory,omitempty"`
	BirthRecordIdentifier        *BirthRecordIdentifierOptions `json:"birthRecordIdentifier,omitempty"`
	Certifier                    *PractitionerOptions          `json:"certifier,omitempty"`
	DeathCertification           *DeathCertificationOptions    `json:"deathCertification,omitempty"`
	MannerOfDeath                *valueset.MannerOfDeath       `json:"mannerOfDeath,omitempty"`
	AutopsyPerformed             *AutopsyPerformedOptions      `json:"autopsyPerformed,omitempty"`
	ExaminerContacted            *ExaminerContactedOptions     `json:"examinerContacted,omitempty"`
	FuneralHome                  *OrganizationOptions          `json:"funeralHome,omitempty"`
	Mortician                    *PractitionerOptions          `json:"mortician,omitempty"`
	InterestedParty              *InterestedPartyOptions       `json:"interestedParty,omitempty"`
	DeathPronouncementPerformer  *PractitionerOptions          `json:"deathPronouncementPerformer,omitempty"`
	CauseOfDeathConditions       []CauseOfDeathConditionOptions `json:"causeOfDeathConditions,omitempty"`
	ConditionContributingToDeath *ConditionOptions             `json:"conditionContributingToDeath,omitempty"`
	DeathLocation                *LocationOptions              `json:"deathLocation,omitempty"`
	DeathDate                    *DeathDateOptions             `json:"deathDate,omitempty"`
	InjuryIncident               *InjuryIncidentOptions        `json:"injuryIncident,omitempty"`
	InjuryLocation               *LocationOptions              `json:"injuryLocation,omitempty"`
	DecedentDispositionMethod    *valueset.DispositionMethod   `json:"decedentDispositionMethod,omitempty"`
	DispositionLocation          *LocationOptions              `json:"dispositionLocation,omitempty"`
}

// DeathCertificateOptions configures the Composition.
type DeathCertificateOptions struct {
	Identifier string `json:"identifier,omitempty"`
}

// DecedentOptions configures the Decedent patient.
type DecedentOptions struct {
	Name          string                  `json:"name,omitempty"`
	SSN           string                  `json:"ssn,omitempty"`
	Gender        string                  `json:"gender,omitempty"`
	BirthDate     string                  `json:"birthDate,omitempty"`
	BirthSex      *valueset.BirthSex      `json:"birthSex,omitempty"`
	BirthPlace    *r4.Address             `json:"birthPlace,omitempty"`
	MaritalStatus *valueset.MaritalStatus `json:"maritalStatus,omitempty"`
	Race          []RaceOptions           `json:"race,omitempty"`
	Ethnicity     *RaceOptions            `json:"ethnicity,omitempty"`
	Address       *r4.Address             `json:"address,omitempty"`
}

// RaceOptions is one race or ethnicity entry. Type is the US Core sub-extension:
// "ombCategory" or "detailed".
type RaceOptions struct {
	Type string `json:"type,omitempty"`
	Code string `json:"code"`
	Text string `json:"text,omitempty"`
}

// RelatedPersonOptions configures a parent or spouse of the decedent.
type RelatedPersonOptions struct {
	Name string `json:"name"`
}

// AgeOptions is the decedent's age at death.
type AgeOptions struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"` // UCUM code; defaults to "a"
}

// EmploymentHistoryOptions configures the employment history observation.
type EmploymentHistoryOptions struct {
	MilitaryService *valueset.YesNo   `json:"militaryService,omitempty"`
	UsualIndustry   *valueset.Concept `json:"usualIndustry,omitempty"`
	UsualOccupation *valueset.Concept `json:"usualOccupation,omitempty"`
}

// BirthRecordIdentifierOptions identifies the decedent's birth certificate.
type BirthRecordIdentifierOptions struct {
	CertificateNumber string `json:"certificateNumber"`
	BirthYear         string `json:"birthYear,omitempty"`
	BirthState        string `json:"birthState,omitempty"`
}

// PractitionerOptions configures a certifier, mortician or pronouncer.
type PractitionerOptions struct {
	Name          string                `json:"name,omitempty"`
	Identifier    string                `json:"identifier,omitempty"`
	Address       *r4.Address           `json:"address,omitempty"`
	Qualification *QualificationOptions `json:"qualification,omitempty"`
}

// QualificationOptions is a practitioner's license or degree.
type QualificationOptions struct {
	Identifier string            `json:"identifier,omitempty"`
	Code       *valueset.Concept `json:"code,omitempty"`
}

// DeathCertificationOptions configures the certification procedure.
type DeathCertificationOptions struct {
	PerformedDate string `json:"performedDate,omitempty"`
	PerformedTime string `json:"performedTime,omitempty"`
}

// AutopsyPerformedOptions records whether an autopsy was performed and, when
// known, whether its results were available.
type AutopsyPerformedOptions struct {
	Performed        valueset.YesNo  `json:"performed"`
	AutopsyAvailable *valueset.YesNo `json:"autopsyAvailable,omitempty"`
}

// ExaminerContactedOptions records whether a medical examiner was contacted.
type ExaminerContactedOptions struct {
	Value bool `json:"value"`
}

// OrganizationOptions configures a funeral home.
type OrganizationOptions struct {
	Name       string      `json:"name,omitempty"`
	Identifier string      `json:"identifier,omitempty"`
	Address    *r4.Address `json:"address,omitempty"`
}

// InterestedPartyOptions configures an organization with an interest in the record.
type InterestedPartyOptions struct {
	Identifier  string      `json:"identifier,omitempty"`
	TypeCode    string      `json:"typeCode,omitempty"`
	TypeDisplay string      `json:"typeDisplay,omitempty"`
	Name        string      `json:"name,omitempty"`
	Address     *r4.Address `json:"address,omitempty"`
}

// CauseOfDeathConditionOptions is one line of the cause of death pathway.
// Interval is free text such as "1 week".
type CauseOfDeathConditionOptions struct {
	Text     string `json:"text"`
	Interval string `json:"interval,omitempty"`
}

// ConditionOptions configures a condition contributing to death.
type ConditionOptions struct {
	Text string `json:"text"`
}

// LocationOptions configures a death, injury or disposition location.
type LocationOptions struct {
	Name         string            `json:"name,omitempty"`
	Description  string            `json:"description,omitempty"`
	Address      *r4.Address       `json:"address,omitempty"`
	Type         *valueset.Concept `json:"type,omitempty"`
	PhysicalType *valueset.Concept `json:"physicalType,omitempty"`
}

// DeathDateOptions configures the date of death observation.
type DeathDateOptions struct {
	EffectiveDate  string            `json:"effectiveDate,omitempty"`
	EffectiveTime  string            `json:"effectiveTime,omitempty"`
	PronouncedDate string            `json:"pronouncedDate,omitempty"`
	PronouncedTime string            `json:"pronouncedTime,omitempty"`
	Method         *valueset.Concept `json:"method,omitempty"`
}

// InjuryIncidentOptions configures the injury incident observation.
type InjuryIncidentOptions struct {
	Text                         string          `json:"text,omitempty"`
	EffectiveDate                string          `json:"effectiveDate,omitempty"`
	EffectiveTime                string          `json:"effectiveTime,omitempty"`
	PlaceOfInjury                string          `json:"placeOfInjury,omitempty"`
	WorkInjuryIndicator          *valueset.YesNo `json:"workInjuryIndicator,omitempty"`
	TransportationEventIndicator *valueset.YesNo `json:"transportationEventIndicator,omitempty"`
}
