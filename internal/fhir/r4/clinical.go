package r4

// Observation represents a single certificate data element about the decedent.
// Exactly one value element is populated, chosen by the element's semantic type.
type Observation struct {
	DomainResource
	Status               string                 `json:"status"`
	Code                 CodeableConcept        `json:"code"`
	Subject              *Reference             `json:"subject,omitempty"`
	EffectiveDateTime    string                 `json:"effectiveDateTime,omitempty"`
	Performer            []Reference            `json:"performer,omitempty"`
	ValueQuantity        *Quantity              `json:"valueQuantity,omitempty"`
	ValueCodeableConcept *CodeableConcept       `json:"valueCodeableConcept,omitempty"`
	ValueString          string                 `json:"valueString,omitempty"`
	ValueBoolean         *bool                  `json:"valueBoolean,omitempty"`
	ValueDateTime        string                 `json:"valueDateTime,omitempty"`
	Method               *CodeableConcept       `json:"method,omitempty"`
	Component            []ObservationComponent `json:"component,omitempty"`
}

// ObservationComponent is a sub-observation sharing its parent's subject.
type ObservationComponent struct {
	Code                 CodeableConcept  `json:"code"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
	ValueString          string           `json:"valueString,omitempty"`
	ValueBoolean         *bool            `json:"valueBoolean,omitempty"`
	ValueDateTime        string           `json:"valueDateTime,omitempty"`
}

// AddComponent appends a component to the observation.
func (o *Observation) AddComponent(c ObservationComponent) {
	o.Component = append(o.Component, c)
}

// Condition represents a cause of death or a condition contributing to death.
type Condition struct {
	DomainResource
	ClinicalStatus *CodeableConcept  `json:"clinicalStatus,omitempty"`
	Category       []CodeableConcept `json:"category,omitempty"`
	Code           *CodeableConcept  `json:"code,omitempty"`
	Subject        *Reference        `json:"subject,omitempty"`
	OnsetString    string            `json:"onsetString,omitempty"`
	Asserter       *Reference        `json:"asserter,omitempty"`
}

// Procedure represents the act of certifying the death.
type Procedure struct {
	DomainResource
	Status            string               `json:"status"`
	Category          *CodeableConcept     `json:"category,omitempty"`
	Code              *CodeableConcept     `json:"code,omitempty"`
	Subject           *Reference           `json:"subject,omitempty"`
	PerformedDateTime string               `json:"performedDateTime,omitempty"`
	Performer         []ProcedurePerformer `json:"performer,omitempty"`
}

// ProcedurePerformer is who performed the procedure and in what role.
type ProcedurePerformer struct {
	Function *CodeableConcept `json:"function,omitempty"`
	Actor    Reference        `json:"actor"`
}

// List is an ordered collection of references, used for the cause of death pathway.
type List struct {
	DomainResource
	Status    string           `json:"status"`
	Mode      string           `json:"mode"`
	Title     string           `json:"title,omitempty"`
	Subject   *Reference       `json:"subject,omitempty"`
	Source    *Reference       `json:"source,omitempty"`
	OrderedBy *CodeableConcept `json:"orderedBy,omitempty"`
	Entry     []ListEntry      `json:"entry,omitempty"`
}

// ListEntry is one item of a List.
type ListEntry struct {
	Item Reference `json:"item"`
}
