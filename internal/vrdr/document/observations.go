package document

import (
	"strings"
	"time"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/valueset"
)

// Coder is implemented by every value set enumeration.
type Coder interface {
	Concept() (valueset.Concept, error)
}

// Observation is one certificate data element.
type Observation struct {
	r4.Observation
}

func newObservation(profile string, code valueset.Concept) *Observation {
	return &Observation{Observation: r4.Observation{
		DomainResource: r4.NewDomainResource("Observation", profile),
		Status:         r4.StatusFinal,
		Code:           *code.CodeableConcept(),
	}}
}

// NewCodedObservation builds an observation whose value is a coded answer.
func NewCodedObservation(profile string, code valueset.Concept, value Coder) (*Observation, error) {
	c, err := value.Concept()
	if err != nil {
		return nil, err
	}
	o := newObservation(profile, code)
	o.ValueCodeableConcept = c.CodeableConcept()
	return o, nil
}

// AddDecedentReference sets the observation's subject.
func (o *Observation) AddDecedentReference(decedent *Entry) error {
	ref, err := decedent.reference(o.profileName() + " subject")
	if err != nil {
		return err
	}
	o.Subject = ref
	return nil
}

// AddCertifierReference records who made the observation.
func (o *Observation) AddCertifierReference(performer *Entry) error {
	ref, err := performer.reference(o.profileName() + " performer")
	if err != nil {
		return err
	}
	o.Performer = []r4.Reference{*ref}
	return nil
}

// AddLocationReference ties the observation to where it happened.
func (o *Observation) AddLocationReference(location *Entry) error {
	ref, err := location.reference(o.profileName() + " location")
	if err != nil {
		return err
	}
	o.AddExtension(r4.Extension{URL: ExtensionObservationLocation, ValueReference: ref})
	return nil
}

// ComponentValue is the value of an observation component. Only one of the
// fields is expected to be set.
type ComponentValue struct {
	Coded    *valueset.Concept
	DateTime string
	String   string
}

// AddComponent attaches a sub-observation. A value with nothing set adds nothing.
func (o *Observation) AddComponent(code valueset.Concept, value ComponentValue) {
	c := r4.ObservationComponent{Code: *code.CodeableConcept()}
	switch {
	case value.Coded != nil && !value.Coded.IsZero():
		c.ValueCodeableConcept = value.Coded.CodeableConcept()
	case value.DateTime != "":
		c.ValueDateTime = value.DateTime
	case value.String != "":
		c.ValueString = value.String
	default:
		return
	}
	o.Observation.AddComponent(c)
}

func (o *Observation) addCodedComponent(code valueset.Concept, value Coder) error {
	c, err := value.Concept()
	if err != nil {
		return err
	}
	o.AddComponent(code, ComponentValue{Coded: &c})
	return nil
}

func (o *Observation) profileName() string {
	if o.Meta == nil || len(o.Meta.Profile) == 0 {
		return "observation"
	}
	return strings.TrimPrefix(o.Meta.Profile[0], profileBase)
}

var ageUnits = map[string]string{
	"a":   "years",
	"mo":  "months",
	"wk":  "weeks",
	"d":   "days",
	"h":   "hours",
	"min": "minutes",
}

// NewDecedentAge builds the age at death as a UCUM quantity, in years unless
// another unit is given.
func NewDecedentAge(opts *AgeOptions) (*Observation, error) {
	unit := opts.Unit
	if unit == "" {
		unit = "a"
	}
	display, ok := ageUnits[unit]
	if !ok {
		return nil, &valueset.UnrecognizedCodeError{ValueSet: "AgeUnit", Value: opts.Unit}
	}
	o := newObservation(ProfileDecedentAge, codeDecedentAge)
	o.ValueQuantity = &r4.Quantity{Value: opts.Value, Unit: display, System: r4.SystemUCUM, Code: unit}
	return o, nil
}

// NewDecedentEmploymentHistory builds the employment history with military
// service, usual industry and usual occupation as components.
func NewDecedentEmploymentHistory(opts *EmploymentHistoryOptions) (*Observation, error) {
	o := newObservation(ProfileDecedentEmploymentHistory, codeEmploymentHistory)
	if opts.MilitaryService != nil {
		if err := o.addCodedComponent(codeMilitaryService, opts.MilitaryService); err != nil {
			return nil, err
		}
	}
	if opts.UsualIndustry != nil {
		industry := withSystem(*opts.UsualIndustry, r4.SystemIndustryCensus)
		o.AddComponent(codeUsualIndustry, ComponentValue{Coded: &industry})
	}
	if opts.UsualOccupation != nil {
		occupation := withSystem(*opts.UsualOccupation, r4.SystemOccupationCensus)
		o.AddComponent(codeUsualOccupation, ComponentValue{Coded: &occupation})
	}
	return o, nil
}

// NewBirthRecordIdentifier builds the link to the decedent's birth certificate.
func NewBirthRecordIdentifier(opts *BirthRecordIdentifierOptions) *Observation {
	o := newObservation(ProfileBirthRecordIdentifier, codeBirthRecordNumber)
	o.ValueString = opts.CertificateNumber
	o.AddComponent(codeBirthplace, ComponentValue{String: opts.BirthState})
	o.AddComponent(codeBirthYear, ComponentValue{DateTime: opts.BirthYear})
	return o
}

// NewAutopsyPerformedIndicator builds the autopsy answer, with the results
// availability as a component when known.
func NewAutopsyPerformedIndicator(opts *AutopsyPerformedOptions) (*Observation, error) {
	o, err := NewCodedObservation(ProfileAutopsyPerformedIndicator, codeAutopsyPerformed, opts.Performed)
	if err != nil {
		return nil, err
	}
	if opts.AutopsyAvailable != nil {
		if err := o.addCodedComponent(codeAutopsyAvailable, opts.AutopsyAvailable); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// NewExaminerContacted records whether a medical examiner or coroner was contacted.
func NewExaminerContacted(opts *ExaminerContactedOptions) *Observation {
	o := newObservation(ProfileExaminerContacted, codeExaminerContacted)
	o.ValueBoolean = r4.BoolPtr(opts.Value)
	return o
}

// NewInjuryIncident builds the injury narrative with its time and the place,
// work and transportation components.
func NewInjuryIncident(opts *InjuryIncidentOptions, loc *time.Location) (*Observation, error) {
	o := newObservation(ProfileInjuryIncident, codeInjuryIncident)
	o.ValueString = strings.TrimSpace(opts.Text)

	effective, err := FormatDateTime(opts.EffectiveDate, opts.EffectiveTime, loc)
	if err != nil {
		return nil, err
	}
	o.EffectiveDateTime = effective

	o.AddComponent(codePlaceOfInjury, ComponentValue{String: strings.TrimSpace(opts.PlaceOfInjury)})
	if opts.WorkInjuryIndicator != nil {
		if err := o.addCodedComponent(codeWorkInjury, opts.WorkInjuryIndicator); err != nil {
			return nil, err
		}
	}
	if opts.TransportationEventIndicator != nil {
		if err := o.addCodedComponent(codeTransportationEvent, opts.TransportationEventIndicator); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// NewDeathDate builds the date of death, with how it was determined and the
// pronouncement time as a component.
func NewDeathDate(opts *DeathDateOptions, loc *time.Location) (*Observation, error) {
	o := newObservation(ProfileDeathDate, codeDeathDate)

	died, err := FormatDateTime(opts.EffectiveDate, opts.EffectiveTime, loc)
	if err != nil {
		return nil, err
	}
	o.EffectiveDateTime = died
	o.ValueDateTime = died

	if opts.Method != nil && !opts.Method.IsZero() {
		o.Method = opts.Method.CodeableConcept()
	}

	pronounced, err := FormatDateTime(opts.PronouncedDate, opts.PronouncedTime, loc)
	if err != nil {
		return nil, err
	}
	o.AddComponent(codeDatePronounced, ComponentValue{DateTime: pronounced})
	return o, nil
}

func withSystem(c valueset.Concept, system string) valueset.Concept {
	if c.System == "" {
		c.System = system
	}
	return c
}
