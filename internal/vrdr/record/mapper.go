package record

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/document"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/valueset"
)

// Field error codes
const (
	CodeUnrecognizedValue = "UNRECOGNIZED_VALUE"
	CodeInvalidDate       = "INVALID_DATE"
)

// FieldError names the record field that could not be mapped.
type FieldError struct {
	Field   string
	Code    string
	Message string
	Cause   error
}

func (e *FieldError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return e.Cause
}

func unrecognized(field string, err error) *FieldError {
	return &FieldError{Field: field, Code: CodeUnrecognizedValue, Message: "unrecognized answer", Cause: err}
}

func invalidDate(field string, err error) *FieldError {
	return &FieldError{Field: field, Code: CodeInvalidDate, Message: "invalid date or time", Cause: err}
}

// answered trims a wizard answer and reports whether anything is left.
func answered(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Mapper translates a Record and the decedent's Patient into document options.
type Mapper struct {
	// Location is the zone wizard dates and times are entered in.
	Location *time.Location
	// Now stamps the certification procedure.
	Now func() time.Time
	// Logger records optional answers that were left out; nil discards.
	Logger *zap.Logger
}

// NewMapper creates a mapper for the given zone; nil means UTC.
func NewMapper(loc *time.Location) *Mapper {
	if loc == nil {
		loc = time.UTC
	}
	return &Mapper{Location: loc, Now: time.Now, Logger: zap.NewNop()}
}

// Map reshapes rec and patient into document options. Blank answers, and
// coded answers outside their value set, leave the matching option nil so the
// resource is omitted from the document. Unreadable dates fail with a
// *FieldError.
func (m *Mapper) Map(rec *Record, patient *r4.Patient) (*document.Options, error) {
	if rec == nil {
		rec = &Record{}
	}
	opts := &document.Options{DeathCertificate: &document.DeathCertificateOptions{}}

	now := m.now().In(m.location())
	performed, err := document.FormatDateTime(now.Format("2006-01-02"), now.Format("15:04"), m.location())
	if err != nil {
		return nil, invalidDate("certification", err)
	}
	opts.DeathCertification = &document.DeathCertificationOptions{PerformedDate: performed}

	if name, ok := answered(rec.CertifierName); ok {
		opts.Certifier = &document.PractitionerOptions{
			Name:       name,
			Identifier: strings.TrimSpace(rec.CertifierNumber),
			Address:    formatAddress(rec.CertifierStreet, "", rec.CertifierCity, rec.CertifierCounty, rec.CertifierState, rec.CertifierZip),
		}
	}
	if name, ok := answered(rec.PronouncerName); ok {
		opts.DeathPronouncementPerformer = &document.PractitionerOptions{
			Name:       name,
			Identifier: strings.TrimSpace(rec.PronouncerNumber),
		}
	}

	if patient != nil {
		decedent, err := m.mapDecedent(patient)
		if err != nil {
			return nil, err
		}
		opts.Decedent = decedent
	}

	if err := m.mapObservations(rec, opts); err != nil {
		return nil, err
	}
	if err := m.mapDeath(rec, patient, opts); err != nil {
		return nil, err
	}
	if err := m.mapInjury(rec, opts); err != nil {
		return nil, err
	}
	if err := m.mapDisposition(rec, opts); err != nil {
		return nil, err
	}

	opts.CauseOfDeathConditions = causesOfDeath(rec)
	if text, ok := answered(rec.Contributing); ok {
		opts.ConditionContributingToDeath = &document.ConditionOptions{Text: text}
	}
	return opts, nil
}

func (m *Mapper) location() *time.Location {
	if m.Location == nil {
		return time.UTC
	}
	return m.Location
}

func (m *Mapper) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *Mapper) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

// optional translates an optional coded answer. A blank answer or one outside
// the value set yields nil.
func optional[T any](m *Mapper, field, answer string, parse func(string) (T, error)) (*T, error) {
	s, ok := answered(answer)
	if !ok {
		return nil, nil
	}
	v, err := parse(s)
	if err != nil {
		var uc *valueset.UnrecognizedCodeError
		if errors.As(err, &uc) {
			m.logger().Info("omitting unrecognized answer",
				zap.String("field", field),
				zap.String("valueSet", uc.ValueSet),
				zap.String("value", s))
			return nil, nil
		}
		return nil, unrecognized(field, err)
	}
	return &v, nil
}

// mapObservations translates the coded answers of the additional questions.
func (m *Mapper) mapObservations(rec *Record, opts *document.Options) error {
	var err error
	if opts.DecedentPregnancy, err = optional(m, "pregnancy", rec.Pregnancy, valueset.ParsePregnancyStatus); err != nil {
		return err
	}
	if opts.TobaccoUseContributedToDeath, err = optional(m, "tobacco", rec.Tobacco, valueset.ParseTobaccoUse); err != nil {
		return err
	}
	if opts.DecedentEducationLevel, err = optional(m, "educationLevel", rec.EducationLevel, valueset.ParseEducationLevel); err != nil {
		return err
	}
	if opts.MannerOfDeath, err = optional(m, "mannerOfDeath", rec.MannerOfDeath, valueset.ParseMannerOfDeath); err != nil {
		return err
	}

	performed, err := optional(m, "autopsyPerformed", rec.AutopsyPerformed, valueset.ParseYesNo)
	if err != nil {
		return err
	}
	if performed != nil {
		opts.AutopsyPerformed = &document.AutopsyPerformedOptions{Performed: *performed}
		if opts.AutopsyPerformed.AutopsyAvailable, err = optional(m, "autopsyAvailable", rec.AutopsyAvailable, valueset.ParseYesNo); err != nil {
			return err
		}
	}

	contacted, err := optional(m, "examinerContacted", rec.ExaminerContacted, valueset.ParseYesNoBoolean)
	if err != nil {
		return err
	}
	if contacted != nil {
		opts.ExaminerContacted = &document.ExaminerContactedOptions{Value: *contacted}
	}

	if opts.DecedentTransportationRole, err = optional(m, "transportationInjury", rec.TransportationInjury, valueset.ParseTransportationRole); err != nil {
		return err
	}
	return nil
}

// mapDeath fills the date of death, its location and the decedent's age.
func (m *Mapper) mapDeath(rec *Record, patient *r4.Patient, opts *document.Options) error {
	loc := m.location()

	if name, ok := answered(rec.PlaceOfDeathName); ok {
		hospital := valueset.PlaceHospital
		placeType := &hospital
		if _, typed := answered(rec.PlaceOfDeathType); typed {
			var err error
			if placeType, err = optional(m, "placeOfDeathType", rec.PlaceOfDeathType, valueset.ParsePlaceOfDeathType); err != nil {
				return err
			}
		}
		location := &document.LocationOptions{
			Name:         name,
			Address:      formatAddress(rec.PlaceOfDeathStreet, rec.PlaceOfDeathApt, rec.PlaceOfDeathCity, rec.PlaceOfDeathCounty, rec.PlaceOfDeathState, rec.PlaceOfDeathZip),
			PhysicalType: &valueset.Concept{System: r4.SystemLocationPhysical, Code: "wa", Display: "Ward"},
		}
		if placeType != nil {
			concept, err := placeType.Concept()
			if err != nil {
				return unrecognized("placeOfDeathType", err)
			}
			location.Type = &concept
		}
		opts.DeathLocation = location
	}

	var died string
	if date, ok := answered(rec.ActualDeathDate); ok {
		v, err := document.FormatDateTime(date, rec.ActualDeathTime, loc)
		if err != nil {
			return invalidDate("actualDeathDate", err)
		}
		died = v
		method := document.MethodEstimated
		opts.DeathDate = &document.DeathDateOptions{EffectiveDate: died, Method: &method}
	} else if patient != nil {
		if deceased, ok := answered(patient.DeceasedDateTime); ok {
			v, err := document.FormatDateTime(deceased, "", loc)
			if err != nil {
				return invalidDate("deceasedDateTime", err)
			}
			died = v
			opts.DeathDate = &document.DeathDateOptions{EffectiveDate: died}
		}
	}

	if date, ok := answered(rec.PronouncedDeathDate); ok {
		pronounced, err := document.FormatDateTime(date, rec.PronouncedDeathTime, loc)
		if err != nil {
			return invalidDate("pronouncedDeathDate", err)
		}
		if opts.DeathDate == nil {
			opts.DeathDate = &document.DeathDateOptions{}
		}
		opts.DeathDate.PronouncedDate = pronounced
	}

	if patient != nil && died != "" {
		if years, ok := ageAtDeath(patient.BirthDate, died, loc); ok {
			opts.DecedentAge = &document.AgeOptions{Value: float64(years), Unit: "a"}
		}
	}
	return nil
}

// mapInjury fills the injury incident and where it happened. The
// transportation indicator follows from whether a transportation role was
// given.
func (m *Mapper) mapInjury(rec *Record, opts *document.Options) error {
	if date, ok := answered(rec.DateOfInjury); ok {
		when, err := document.FormatDateTime(date, rec.TimeOfInjury, m.location())
		if err != nil {
			return invalidDate("dateOfInjury", err)
		}
		incident := &document.InjuryIncidentOptions{
			EffectiveDate: when,
			PlaceOfInjury: strings.TrimSpace(rec.PlaceOfInjury),
		}
		if incident.WorkInjuryIndicator, err = optional(m, "injuryAtWork", rec.InjuryAtWork, valueset.ParseYesNo); err != nil {
			return err
		}
		transport := valueset.No
		if _, ok := answered(rec.TransportationInjury); ok {
			transport = valueset.Yes
		}
		incident.TransportationEventIndicator = &transport
		opts.InjuryIncident = incident
	}

	if how, ok := answered(rec.HowInjuryOccurred); ok {
		opts.InjuryLocation = &document.LocationOptions{Description: how}
	}
	if _, ok := answered(rec.LocationOfInjuryState); ok {
		if opts.InjuryLocation == nil {
			opts.InjuryLocation = &document.LocationOptions{}
		}
		opts.InjuryLocation.Address = formatAddress(rec.LocationOfInjuryStreet, rec.LocationOfInjuryApt, rec.LocationOfInjuryCity,
			rec.LocationOfInjuryCounty, rec.LocationOfInjuryState, rec.LocationOfInjuryZip)
	}
	return nil
}

// mapDisposition fills the disposition method and place, the funeral home and
// the mortician.
func (m *Mapper) mapDisposition(rec *Record, opts *document.Options) error {
	var err error
	if opts.DecedentDispositionMethod, err = optional(m, "dispositionMethod", rec.DispositionMethod, valueset.ParseDispositionMethod); err != nil {
		return err
	}
	if name, ok := answered(rec.DispositionPlaceName); ok {
		opts.DispositionLocation = &document.LocationOptions{
			Name:    name,
			Address: formatAddress("", "", rec.DispositionPlaceCity, rec.DispositionPlaceCounty, rec.DispositionPlaceState, ""),
		}
	}
	if name, ok := answered(rec.FuneralHomeName); ok {
		opts.FuneralHome = &document.OrganizationOptions{
			Name:    name,
			Address: formatAddress(rec.FuneralHomeStreet, "", rec.FuneralHomeCity, "", rec.FuneralHomeState, rec.FuneralHomeZip),
		}
	}
	if name, ok := answered(rec.MorticianName); ok {
		opts.Mortician = &document.PractitionerOptions{Name: name}
		if license, ok := answered(rec.MorticianLicenseNumber); ok {
			opts.Mortician.Qualification = &document.QualificationOptions{Identifier: license}
		}
	}
	return nil
}

// causesOfDeath collects the four cause lines in order, skipping blank ones.
func causesOfDeath(rec *Record) []document.CauseOfDeathConditionOptions {
	lines := [][2]string{
		{rec.Cod1Text, rec.Cod1Time},
		{rec.Cod2Text, rec.Cod2Time},
		{rec.Cod3Text, rec.Cod3Time},
		{rec.Cod4Text, rec.Cod4Time},
	}
	var out []document.CauseOfDeathConditionOptions
	for _, l := range lines {
		text := strings.TrimSpace(l[0])
		if text == "" {
			continue
		}
		out = append(out, document.CauseOfDeathConditionOptions{Text: text, Interval: strings.TrimSpace(l[1])})
	}
	return out
}

// formatAddress assembles an address from separate fields. Only the fields
// given are set, and nil is returned when all of them are blank.
func formatAddress(street, apt, city, county, state, zip string) *r4.Address {
	addr := &r4.Address{
		City:       strings.TrimSpace(city),
		District:   strings.TrimSpace(county),
		State:      strings.TrimSpace(state),
		PostalCode: strings.TrimSpace(zip),
	}
	for _, line := range []string{street, apt} {
		if line = strings.TrimSpace(line); line != "" {
			addr.Line = append(addr.Line, line)
		}
	}
	if addr.IsEmpty() {
		return nil
	}
	return addr
}

// mapDecedent reads the decedent's identity from the clinical record.
func (m *Mapper) mapDecedent(patient *r4.Patient) (*document.DecedentOptions, error) {
	d := &document.DecedentOptions{
		Name:      patient.GetFullName(),
		SSN:       patient.GetSSN(),
		Gender:    patient.Gender,
		BirthDate: patient.BirthDate,
	}
	if place := patient.GetBirthPlace(); !place.IsEmpty() {
		d.BirthPlace = place
	}
	if home := patient.GetHomeAddress(); !home.IsEmpty() {
		addr := *home
		addr.Use = ""
		d.Address = &addr
	}
	var err error
	if d.BirthSex, err = optional(m, "decedent.birthSex", patient.GetBirthSex(), valueset.BirthSexFromCode); err != nil {
		return nil, err
	}
	if d.MaritalStatus, err = optional(m, "decedent.maritalStatus", patient.GetMaritalStatusCode(), valueset.MaritalStatusFromCode); err != nil {
		return nil, err
	}
	if ext := patient.FindExtension(r4.ExtensionUSCoreRace); ext != nil {
		d.Race = raceEntries(ext)
	}
	if ext := patient.FindExtension(r4.ExtensionUSCoreEthnicity); ext != nil {
		if entries := raceEntries(ext); len(entries) > 0 {
			d.Ethnicity = &entries[0]
		}
	}
	return d, nil
}

// raceEntries reads the category codings of a US Core race or ethnicity extension.
func raceEntries(ext *r4.Extension) []document.RaceOptions {
	var out []document.RaceOptions
	for _, sub := range ext.Extension {
		if sub.URL != "ombCategory" && sub.URL != "detailed" {
			continue
		}
		if sub.ValueCoding == nil || sub.ValueCoding.Code == "" {
			continue
		}
		out = append(out, document.RaceOptions{Type: sub.URL, Code: sub.ValueCoding.Code, Text: sub.ValueCoding.Display})
	}
	return out
}

// ageAtDeath returns completed years between a birth date and a date of death.
// Partial or unreadable dates yield no age.
func ageAtDeath(birthDate, died string, loc *time.Location) (int, bool) {
	born, err := time.ParseInLocation("2006-01-02", birthDate, loc)
	if err != nil {
		return 0, false
	}
	death, err := time.Parse(time.RFC3339, died)
	if err != nil {
		death, err = time.ParseInLocation("2006-01-02", died, loc)
		if err != nil {
			return 0, false
		}
	}
	death = death.In(loc)
	if death.Before(born) {
		return 0, false
	}
	years := death.Year() - born.Year()
	if death.Month() < born.Month() || (death.Month() == born.Month() && death.Day() < born.Day()) {
		years--
	}
	return years, true
}

// Fingerprint is a stable digest of a record and patient pair. Rebuilding a
// document from the same inputs yields the same fingerprint.
func Fingerprint(rec *Record, patient *r4.Patient) (string, error) {
	h := sha256.New()
	for _, v := range []interface{}{rec, patient} {
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		h.Write(data)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
