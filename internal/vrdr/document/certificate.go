package document

import (
	"strings"
	"time"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
)

// DeathCertificate is the Composition at the head of the document.
type DeathCertificate struct {
	r4.Composition
}

// NewDeathCertificate builds the Composition. date is the composition date.
func NewDeathCertificate(opts *DeathCertificateOptions, date string) *DeathCertificate {
	c := &DeathCertificate{Composition: r4.Composition{
		DomainResource: r4.NewDomainResource("Composition", ProfileDeathCertificate),
		Status:         r4.StatusFinal,
		Type:           *codeDeathCertificate.CodeableConcept(),
		Date:           date,
		Title:          "Death Certificate",
		Section:        []r4.CompositionSection{{}},
	}}
	if opts != nil && opts.Identifier != "" {
		c.Identifier = &r4.Identifier{Value: opts.Identifier}
	}
	return c
}

// AddDecedentReference sets the certificate's subject.
func (c *DeathCertificate) AddDecedentReference(decedent *Entry) error {
	ref, err := decedent.reference("certificate subject")
	if err != nil {
		return err
	}
	c.Subject = ref
	return nil
}

// AddCertifierReference makes the certifier the author and legal attester.
func (c *DeathCertificate) AddCertifierReference(certifier *Entry) error {
	ref, err := certifier.reference("certificate attester")
	if err != nil {
		return err
	}
	c.Author = []r4.Reference{*ref}
	c.Attester = []r4.CompositionAttester{{Mode: "legal", Party: ref}}
	return nil
}

// AddCertificationReference records the certification procedure as the documented event.
func (c *DeathCertificate) AddCertificationReference(certification *Entry) error {
	ref, err := certification.reference("certificate event")
	if err != nil {
		return err
	}
	c.Event = []r4.CompositionEvent{{
		Code:   []r4.CodeableConcept{*codeDiagnosticProcedure.CodeableConcept()},
		Detail: []r4.Reference{*ref},
	}}
	return nil
}

// AddSectionEntry indexes an entry in the certificate's section.
func (c *DeathCertificate) AddSectionEntry(e *Entry) error {
	ref, err := e.reference("certificate section")
	if err != nil {
		return err
	}
	c.Section[0].Entry = append(c.Section[0].Entry, *ref)
	return nil
}

// DeathCertification is the procedure of certifying the death.
type DeathCertification struct {
	r4.Procedure
}

// NewDeathCertification builds the certification procedure; performedDateTime
// is joined from the date and time options.
func NewDeathCertification(opts *DeathCertificationOptions, loc *time.Location) (*DeathCertification, error) {
	p := &DeathCertification{Procedure: r4.Procedure{
		DomainResource: r4.NewDomainResource("Procedure", ProfileDeathCertification),
		Status:         r4.StatusCompleted,
		Category:       codeDiagnosticProcedure.CodeableConcept(),
		Code:           codeDeathCertification.CodeableConcept(),
	}}
	if opts != nil {
		performed, err := FormatDateTime(opts.PerformedDate, opts.PerformedTime, loc)
		if err != nil {
			return nil, err
		}
		p.PerformedDateTime = performed
	}
	return p, nil
}

// AddDecedentReference sets the procedure's subject.
func (p *DeathCertification) AddDecedentReference(decedent *Entry) error {
	ref, err := decedent.reference("certification subject")
	if err != nil {
		return err
	}
	p.Subject = ref
	return nil
}

// AddCertifierReference records the certifier as the performing physician.
func (p *DeathCertification) AddCertifierReference(certifier *Entry) error {
	ref, err := certifier.reference("certification performer")
	if err != nil {
		return err
	}
	p.Performer = []r4.ProcedurePerformer{{Function: codePhysician.CodeableConcept(), Actor: *ref}}
	return nil
}

// Condition is a cause of death or a condition contributing to death.
type Condition struct {
	r4.Condition
}

// NewCauseOfDeathCondition builds one line of the cause of death pathway. The
// interval is kept as free text.
func NewCauseOfDeathCondition(opts CauseOfDeathConditionOptions) *Condition {
	return &Condition{Condition: r4.Condition{
		DomainResource: r4.NewDomainResource("Condition", ProfileCauseOfDeathCondition),
		Code:           narrative(opts.Text),
		OnsetString:    strings.TrimSpace(opts.Interval),
	}}
}

// NewConditionContributingToDeath builds a significant condition that
// contributed to death without being part of the causal chain.
func NewConditionContributingToDeath(opts *ConditionOptions) *Condition {
	return &Condition{Condition: r4.Condition{
		DomainResource: r4.NewDomainResource("Condition", ProfileConditionContributingToDeath),
		Category:       []r4.CodeableConcept{*codeDeathDiagnosis.CodeableConcept()},
		Code:           narrative(opts.Text),
	}}
}

func narrative(text string) *r4.CodeableConcept {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return &r4.CodeableConcept{Text: text}
}

// AddDecedentReference sets the condition's subject.
func (c *Condition) AddDecedentReference(decedent *Entry) error {
	ref, err := decedent.reference("condition subject")
	if err != nil {
		return err
	}
	c.Subject = ref
	return nil
}

// AddCertifierReference records the certifier as asserter.
func (c *Condition) AddCertifierReference(certifier *Entry) error {
	ref, err := certifier.reference("condition asserter")
	if err != nil {
		return err
	}
	c.Asserter = ref
	return nil
}

// CauseOfDeathPathway orders the cause of death conditions from immediate to
// underlying cause.
type CauseOfDeathPathway struct {
	r4.List
}

// NewCauseOfDeathPathway builds an empty pathway.
func NewCauseOfDeathPathway() *CauseOfDeathPathway {
	return &CauseOfDeathPathway{List: r4.List{
		DomainResource: r4.NewDomainResource("List", ProfileCauseOfDeathPathway),
		Status:         r4.StatusCurrent,
		Mode:           "snapshot",
		OrderedBy:      codeListOrderPriority.CodeableConcept(),
	}}
}

// AddDecedentReference sets the pathway's subject.
func (l *CauseOfDeathPathway) AddDecedentReference(decedent *Entry) error {
	ref, err := decedent.reference("pathway subject")
	if err != nil {
		return err
	}
	l.Subject = ref
	return nil
}

// AddCertifierReference records the certifier as the pathway's source.
func (l *CauseOfDeathPathway) AddCertifierReference(certifier *Entry) error {
	ref, err := certifier.reference("pathway source")
	if err != nil {
		return err
	}
	l.Source = ref
	return nil
}

// AddCauseOfDeathReference appends a condition. Callers add conditions in
// priority order; the pathway never reorders them.
func (l *CauseOfDeathPathway) AddCauseOfDeathReference(condition *Entry) error {
	ref, err := condition.reference("pathway entry")
	if err != nil {
		return err
	}
	l.Entry = append(l.Entry, r4.ListEntry{Item: *ref})
	return nil
}
