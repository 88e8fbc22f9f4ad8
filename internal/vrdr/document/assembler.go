// Package document assembles death certificate document bundles.
//
// Assembly runs in two phases. The build phase constructs every resource the
// options ask for and allocates its full URL, queueing the references each
// resource needs. The wiring phase then resolves those references and fills
// the certificate's section index, so no resource depends on the order in
// which the others were built.
package document

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
)

// BuildError names the resource whose construction failed.
type BuildError struct {
	Resource string
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %v", e.Resource, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Config holds assembler settings.
type Config struct {
	// IDs allocates resource ids; defaults to random UUIDs.
	IDs IDGenerator
	// Location is the zone date and time pairs are interpreted in; defaults to UTC.
	Location *time.Location
	// Now stamps the composition date and bundle timestamp; defaults to time.Now.
	Now func() time.Time
}

// Assembler turns Options into document bundles.
type Assembler struct {
	ids    IDGenerator
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(cfg Config, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Assembler{ids: cfg.IDs, loc: cfg.Location, now: cfg.Now, logger: logger}
	if a.ids == nil {
		a.ids = UUIDGenerator{}
	}
	if a.loc == nil {
		a.loc = time.UTC
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// plan is the document under construction.
type plan struct {
	ids     IDGenerator
	entries []*Entry
	links   []func() error

	certificate   *DeathCertificate
	decedent      *Entry
	certifier     *Entry
	pronouncer    *Entry
	mortician     *Entry
	deathLocation *Entry
	injuryLoc     *Entry
	dispositionAt *Entry
}

func (p *plan) add(res r4.Resource, indexed bool) *Entry {
	id := p.ids.NewID()
	res.Base().ID = id
	e := &Entry{FullURL: urnUUID(id), Resource: res, Indexed: indexed}
	p.entries = append(p.entries, e)
	return e
}

// link queues a reference to resolve once every entry exists.
func (p *plan) link(fn func() error) {
	p.links = append(p.links, fn)
}

// observation adds an indexed observation about the decedent, optionally
// performed by the entry performer returns at wiring time.
func (p *plan) observation(o *Observation, performer func() *Entry) {
	p.add(o, true)
	p.link(func() error { return o.AddDecedentReference(p.decedent) })
	if performer != nil {
		p.link(func() error { return o.AddCertifierReference(performer()) })
	}
}

func (p *plan) byCertifier() *Entry { return p.certifier }

// Assemble builds the document described by opts. Any construction failure
// aborts the whole document.
func (a *Assembler) Assemble(opts *Options) (*r4.Bundle, error) {
	if opts == nil {
		opts = &Options{}
	}
	now := a.now().In(a.loc).Format(time.RFC3339)

	p := &plan{ids: a.ids}
	if err := a.build(p, opts, now); err != nil {
		return nil, err
	}
	if err := p.wire(); err != nil {
		return nil, err
	}

	bundle := r4.NewBundle(r4.BundleTypeDocument)
	bundle.ID = a.ids.NewID()
	if opts.Identifier != "" {
		bundle.Identifier = &r4.Identifier{Value: opts.Identifier}
	}
	bundle.Timestamp = now
	for _, e := range p.entries {
		bundle.AddEntry(e.FullURL, e.Resource)
	}
	bundle.SetProfile(ProfileDeathCertificateDocument)

	a.logger.Debug("assembled death certificate document",
		zap.String("bundle_id", bundle.ID),
		zap.Int("entries", len(bundle.Entry)),
	)
	return bundle, nil
}

func (a *Assembler) build(p *plan, opts *Options, now string) error {
	p.certificate = NewDeathCertificate(opts.DeathCertificate, now)
	p.add(p.certificate, false)

	decedent, err := NewDecedent(opts.Decedent)
	if err != nil {
		return &BuildError{Resource: "Decedent", Err: err}
	}
	p.decedent = p.add(decedent, true)
	p.link(func() error { return p.certificate.AddDecedentReference(p.decedent) })

	if err := a.buildDecedentDetails(p, opts); err != nil {
		return err
	}

	certifier, err := NewPractitioner(ProfileCertifier, opts.Certifier)
	if err != nil {
		return &BuildError{Resource: "Certifier", Err: err}
	}
	p.certifier = p.add(certifier, true)
	p.link(func() error { return p.certificate.AddCertifierReference(p.certifier) })

	certification, err := NewDeathCertification(opts.DeathCertification, a.loc)
	if err != nil {
		return &BuildError{Resource: "DeathCertification", Err: err}
	}
	certificationEntry := p.add(certification, true)
	p.link(func() error { return certification.AddDecedentReference(p.decedent) })
	p.link(func() error { return certification.AddCertifierReference(p.certifier) })
	p.link(func() error { return p.certificate.AddCertificationReference(certificationEntry) })

	if err := a.buildCertifierFindings(p, opts); err != nil {
		return err
	}
	if err := a.buildParties(p, opts); err != nil {
		return err
	}
	a.buildCauseOfDeath(p, opts)
	if err := a.buildCircumstances(p, opts); err != nil {
		return err
	}
	return a.buildDisposition(p, opts)
}

// buildDecedentDetails adds the optional per-decedent entries.
func (a *Assembler) buildDecedentDetails(p *plan, opts *Options) error {
	related := []struct {
		opts *RelatedPersonOptions
		new  func(*RelatedPersonOptions) *RelatedPerson
	}{
		{opts.Father, NewFather},
		{opts.Mother, NewMother},
		{opts.Spouse, NewSpouse},
	}
	for _, r := range related {
		if r.opts == nil {
			continue
		}
		rp := r.new(r.opts)
		p.add(rp, true)
		p.link(func() error { return rp.AddDecedentReference(p.decedent) })
	}

	if opts.DecedentAge != nil {
		o, err := NewDecedentAge(opts.DecedentAge)
		if err != nil {
			return &BuildError{Resource: "DecedentAge", Err: err}
		}
		p.observation(o, nil)
	}
	if opts.DecedentPregnancy != nil {
		o, err := NewCodedObservation(ProfileDecedentPregnancy, codePregnancy, opts.DecedentPregnancy)
		if err != nil {
			return &BuildError{Resource: "DecedentPregnancy", Err: err}
		}
		p.observation(o, nil)
	}
	if opts.DecedentTransportationRole != nil {
		o, err := NewCodedObservation(ProfileDecedentTransportationRole, codeTransportationRole, opts.DecedentTransportationRole)
		if err != nil {
			return &BuildError{Resource: "DecedentTransportationRole", Err: err}
		}
		p.observation(o, nil)
	}
	if opts.TobaccoUseContributedToDeath != nil {
		o, err := NewCodedObservation(ProfileTobaccoUseContributedToDeath, codeTobaccoUse, opts.TobaccoUseContributedToDeath)
		if err != nil {
			return &BuildError{Resource: "TobaccoUseContributedToDeath", Err: err}
		}
		p.observation(o, p.byCertifier)
	}
	if opts.DecedentEducationLevel != nil {
		o, err := NewCodedObservation(ProfileDecedentEducationLevel, codeEducationLevel, opts.DecedentEducationLevel)
		if err != nil {
			return &BuildError{Resource: "DecedentEducationLevel", Err: err}
		}
		p.observation(o, nil)
	}
	if opts.DecedentEmploymentHistory != nil {
		o, err := NewDecedentEmploymentHistory(opts.DecedentEmploymentHistory)
		if err != nil {
			return &BuildError{Resource: "DecedentEmploymentHistory", Err: err}
		}
		p.observation(o, nil)
	}
	if opts.BirthRecordIdentifier != nil {
		p.observation(NewBirthRecordIdentifier(opts.BirthRecordIdentifier), nil)
	}
	return nil
}

// buildCertifierFindings adds the manner of death, autopsy and examiner entries.
func (a *Assembler) buildCertifierFindings(p *plan, opts *Options) error {
	if opts.MannerOfDeath != nil {
		o, err := NewCodedObservation(ProfileMannerOfDeath, codeMannerOfDeath, opts.MannerOfDeath)
		if err != nil {
			return &BuildError{Resource: "MannerOfDeath", Err: err}
		}
		p.observation(o, p.byCertifier)
	}
	if opts.AutopsyPerformed != nil {
		o, err := NewAutopsyPerformedIndicator(opts.AutopsyPerformed)
		if err != nil {
			return &BuildError{Resource: "AutopsyPerformedIndicator", Err: err}
		}
		p.observation(o, p.byCertifier)
	}
	if opts.ExaminerContacted != nil {
		p.observation(NewExaminerContacted(opts.ExaminerContacted), p.byCertifier)
	}
	return nil
}

// buildParties adds the funeral home, mortician, interested party and
// pronouncer. None of them is referenced from the certificate's subject or
// attester; they are reachable through the section index.
func (a *Assembler) buildParties(p *plan, opts *Options) error {
	var funeralHome *Entry
	if opts.FuneralHome != nil {
		funeralHome = p.add(NewFuneralHome(opts.FuneralHome), true)
	}
	if opts.Mortician != nil {
		mortician, err := NewPractitioner(ProfileMortician, opts.Mortician)
		if err != nil {
			return &BuildError{Resource: "Mortician", Err: err}
		}
		p.mortician = p.add(mortician, true)
	}
	if funeralHome != nil && p.mortician != nil {
		director := NewFuneralHomeDirector()
		p.add(director, true)
		p.link(func() error { return director.AddMorticianReference(p.mortician) })
		p.link(func() error { return director.AddFuneralHomeReference(funeralHome) })
	}
	if opts.InterestedParty != nil {
		p.add(NewInterestedParty(opts.InterestedParty), true)
	}
	if opts.DeathPronouncementPerformer != nil {
		pronouncer, err := NewPractitioner(ProfileDeathPronouncementPerformer, opts.DeathPronouncementPerformer)
		if err != nil {
			return &BuildError{Resource: "DeathPronouncementPerformer", Err: err}
		}
		p.pronouncer = p.add(pronouncer, true)
	}
	return nil
}

// buildCauseOfDeath adds one condition per cause line, in the order given, and
// the pathway listing them. The pathway is always present; it is not indexed
// in the section but its conditions are.
func (a *Assembler) buildCauseOfDeath(p *plan, opts *Options) {
	pathway := NewCauseOfDeathPathway()
	p.link(func() error { return pathway.AddCertifierReference(p.certifier) })
	p.link(func() error { return pathway.AddDecedentReference(p.decedent) })

	for _, cod := range opts.CauseOfDeathConditions {
		condition := NewCauseOfDeathCondition(cod)
		entry := p.add(condition, true)
		p.link(func() error { return condition.AddDecedentReference(p.decedent) })
		p.link(func() error { return condition.AddCertifierReference(p.certifier) })
		p.link(func() error { return pathway.AddCauseOfDeathReference(entry) })
	}
	p.add(pathway, false)
}

// buildCircumstances adds the contributing condition, the death and injury
// locations, and the date of death and injury incident observations.
func (a *Assembler) buildCircumstances(p *plan, opts *Options) error {
	if opts.ConditionContributingToDeath != nil {
		condition := NewConditionContributingToDeath(opts.ConditionContributingToDeath)
		p.add(condition, true)
		p.link(func() error { return condition.AddDecedentReference(p.decedent) })
		p.link(func() error { return condition.AddCertifierReference(p.certifier) })
	}

	if opts.DeathLocation != nil {
		p.deathLocation = p.add(NewLocation(ProfileDeathLocation, opts.DeathLocation), true)
	}

	if opts.DeathDate != nil {
		o, err := NewDeathDate(opts.DeathDate, a.loc)
		if err != nil {
			return &BuildError{Resource: "DeathDate", Err: err}
		}
		p.observation(o, func() *Entry {
			if p.pronouncer != nil {
				return p.pronouncer
			}
			return p.certifier
		})
		if p.deathLocation != nil {
			p.link(func() error { return o.AddLocationReference(p.deathLocation) })
		}
	}

	if opts.InjuryIncident != nil {
		o, err := NewInjuryIncident(opts.InjuryIncident, a.loc)
		if err != nil {
			return &BuildError{Resource: "InjuryIncident", Err: err}
		}
		p.observation(o, nil)
		if opts.InjuryLocation != nil {
			p.link(func() error { return o.AddLocationReference(p.injuryLoc) })
		}
	}

	if opts.InjuryLocation != nil {
		p.injuryLoc = p.add(NewLocation(ProfileInjuryLocation, opts.InjuryLocation), true)
	}
	return nil
}

// buildDisposition adds the disposition method and where the remains went.
func (a *Assembler) buildDisposition(p *plan, opts *Options) error {
	if opts.DecedentDispositionMethod != nil {
		o, err := NewCodedObservation(ProfileDecedentDispositionMethod, codeDispositionMethod, opts.DecedentDispositionMethod)
		if err != nil {
			return &BuildError{Resource: "DecedentDispositionMethod", Err: err}
		}
		var performer func() *Entry
		if p.mortician != nil {
			performer = func() *Entry { return p.mortician }
		}
		p.observation(o, performer)
		if opts.DispositionLocation != nil {
			p.link(func() error { return o.AddLocationReference(p.dispositionAt) })
		}
	}
	if opts.DispositionLocation != nil {
		p.dispositionAt = p.add(NewLocation(ProfileDispositionLocation, opts.DispositionLocation), true)
	}
	return nil
}

// wire resolves every queued reference and indexes the entries in the
// certificate's section.
func (p *plan) wire() error {
	for _, fn := range p.links {
		if err := fn(); err != nil {
			return err
		}
	}
	for _, e := range p.entries {
		if !e.Indexed {
			continue
		}
		if err := p.certificate.AddSectionEntry(e); err != nil {
			return err
		}
	}
	return nil
}
