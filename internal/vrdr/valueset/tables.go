package valueset

import "github.com/nightingaleproject/go-vrdr/internal/fhir/r4"

// YesNo is a yes/no/unknown indicator.
type YesNo int

const (
	Yes YesNo = iota + 1
	No
	YesNoUnknown
)

var yesNo = newTable("YesNoUnknownVS", "Yes No Unknown",
	"Indicator answers used by the autopsy, injury and military service elements.",
	entry[YesNo]{Yes, Concept{r4.SystemYesNo, "Y", "Yes"}, []string{"Y", "true"}},
	entry[YesNo]{No, Concept{r4.SystemYesNo, "N", "No"}, []string{"N", "false"}},
	entry[YesNo]{YesNoUnknown, Concept{r4.SystemNullFlavor, "UNK", "Unknown"}, []string{"UNK"}},
)

// ParseYesNo translates "Yes", "No" or "Unknown".
func ParseYesNo(text string) (YesNo, error) { return yesNo.parse(text) }

// YesNoFromCode translates Y, N or UNK.
func YesNoFromCode(code string) (YesNo, error) { return yesNo.fromCode(code) }

// Concept returns the coded form.
func (v YesNo) Concept() (Concept, error) { return yesNo.concept(v) }

func (v YesNo) String() string { return yesNo.display(v) }

// ParseYesNoBoolean translates a strict "Yes"/"No" answer into a boolean.
func ParseYesNoBoolean(text string) (bool, error) {
	v, err := yesNo.parse(text)
	if err != nil {
		return false, err
	}
	switch v {
	case Yes:
		return true, nil
	case No:
		return false, nil
	}
	return false, &UnrecognizedCodeError{ValueSet: "YesNoBoolean", Value: text}
}

// MannerOfDeath is the certifier's determination of how the death came about.
type MannerOfDeath int

const (
	MannerNatural MannerOfDeath = iota + 1
	MannerAccident
	MannerSuicide
	MannerHomicide
	MannerPendingInvestigation
	MannerCouldNotBeDetermined
)

var mannerOfDeath = newTable("MannerOfDeathVS", "Manner of Death",
	"Manner of death as determined by the certifier.",
	entry[MannerOfDeath]{MannerNatural, Concept{r4.SystemSNOMED, "38605008", "Natural"}, nil},
	entry[MannerOfDeath]{MannerAccident, Concept{r4.SystemSNOMED, "7878000", "Accident"}, nil},
	entry[MannerOfDeath]{MannerSuicide, Concept{r4.SystemSNOMED, "44301001", "Suicide"}, nil},
	entry[MannerOfDeath]{MannerHomicide, Concept{r4.SystemSNOMED, "27935005", "Homicide"}, nil},
	entry[MannerOfDeath]{MannerPendingInvestigation, Concept{r4.SystemSNOMED, "185973002", "Pending Investigation"}, nil},
	entry[MannerOfDeath]{MannerCouldNotBeDetermined, Concept{r4.SystemSNOMED, "65037004", "Could not be determined"}, nil},
)

// ParseMannerOfDeath translates form text such as "Natural" or "Accident".
func ParseMannerOfDeath(text string) (MannerOfDeath, error) { return mannerOfDeath.parse(text) }

// MannerOfDeathFromCode translates a SNOMED code.
func MannerOfDeathFromCode(code string) (MannerOfDeath, error) { return mannerOfDeath.fromCode(code) }

// Concept returns the coded form.
func (v MannerOfDeath) Concept() (Concept, error) { return mannerOfDeath.concept(v) }

func (v MannerOfDeath) String() string { return mannerOfDeath.display(v) }

// PregnancyStatus is the timing of a recent pregnancy relative to the death.
type PregnancyStatus int

const (
	NotPregnantWithinPastYear PregnancyStatus = iota + 1
	PregnantAtTimeOfDeath
	PregnantWithin42Days
	Pregnant43DaysToOneYear
	PregnancyUnknown
)

var pregnancyStatus = newTable("PregnancyStatusVS", "Pregnancy Status",
	"Timing of recent pregnancy in relation to death.",
	entry[PregnancyStatus]{NotPregnantWithinPastYear, Concept{r4.SystemPHINQuestions, "PHC1260", "Not pregnant within past year"}, nil},
	entry[PregnancyStatus]{PregnantAtTimeOfDeath, Concept{r4.SystemPHINQuestions, "PHC1261", "Pregnant at time of death"}, nil},
	entry[PregnancyStatus]{PregnantWithin42Days, Concept{r4.SystemPHINQuestions, "PHC1262", "Not pregnant, but pregnant within 42 days of death"}, nil},
	entry[PregnancyStatus]{Pregnant43DaysToOneYear, Concept{r4.SystemPHINQuestions, "PHC1263", "Not pregnant, but pregnant 43 days to 1 year before death"}, nil},
	entry[PregnancyStatus]{PregnancyUnknown, Concept{r4.SystemPHINQuestions, "PHC1264", "Unknown if pregnant within the past year"}, nil},
)

// ParsePregnancyStatus translates the pregnancy question's answer text.
func ParsePregnancyStatus(text string) (PregnancyStatus, error) { return pregnancyStatus.parse(text) }

// PregnancyStatusFromCode translates a PHC code.
func PregnancyStatusFromCode(code string) (PregnancyStatus, error) {
	return pregnancyStatus.fromCode(code)
}

// Concept returns the coded form.
func (v PregnancyStatus) Concept() (Concept, error) { return pregnancyStatus.concept(v) }

func (v PregnancyStatus) String() string { return pregnancyStatus.display(v) }

// TransportationRole is the decedent's role in a transportation incident.
type TransportationRole int

const (
	VehicleDriver TransportationRole = iota + 1
	Passenger
	Pedestrian
	TransportationOther
)

var transportationRole = newTable("TransportationRoleVS", "Transportation Role",
	"Role of the decedent in a transportation incident.",
	entry[TransportationRole]{VehicleDriver, Concept{r4.SystemSNOMED, "236320001", "Vehicle driver"}, []string{"Driver"}},
	entry[TransportationRole]{Passenger, Concept{r4.SystemSNOMED, "257500003", "Passenger"}, nil},
	entry[TransportationRole]{Pedestrian, Concept{r4.SystemSNOMED, "257518000", "Pedestrian"}, nil},
	entry[TransportationRole]{TransportationOther, Concept{r4.SystemNullFlavor, "OTH", "Other"}, nil},
)

// ParseTransportationRole translates form text such as "Vehicle driver".
func ParseTransportationRole(text string) (TransportationRole, error) {
	return transportationRole.parse(text)
}

// TransportationRoleFromCode translates a SNOMED code or OTH.
func TransportationRoleFromCode(code string) (TransportationRole, error) {
	return transportationRole.fromCode(code)
}

// Concept returns the coded form.
func (v TransportationRole) Concept() (Concept, error) { return transportationRole.concept(v) }

func (v TransportationRole) String() string { return transportationRole.display(v) }

// TobaccoUse answers whether tobacco use contributed to the death.
type TobaccoUse int

const (
	TobaccoYes TobaccoUse = iota + 1
	TobaccoNo
	TobaccoProbably
	TobaccoUnknown
)

var tobaccoUse = newTable("ContributoryTobaccoUseVS", "Contributory Tobacco Use",
	"Whether tobacco use contributed to death.",
	entry[TobaccoUse]{TobaccoYes, Concept{r4.SystemSNOMED, "373066001", "Yes"}, nil},
	entry[TobaccoUse]{TobaccoNo, Concept{r4.SystemSNOMED, "373067005", "No"}, nil},
	entry[TobaccoUse]{TobaccoProbably, Concept{r4.SystemSNOMED, "2931005", "Probably"}, nil},
	entry[TobaccoUse]{TobaccoUnknown, Concept{r4.SystemNullFlavor, "UNK", "Unknown"}, nil},
)

// ParseTobaccoUse translates "Yes", "No", "Probably" or "Unknown".
func ParseTobaccoUse(text string) (TobaccoUse, error) { return tobaccoUse.parse(text) }

// TobaccoUseFromCode translates a SNOMED code or UNK.
func TobaccoUseFromCode(code string) (TobaccoUse, error) { return tobaccoUse.fromCode(code) }

// Concept returns the coded form.
func (v TobaccoUse) Concept() (Concept, error) { return tobaccoUse.concept(v) }

func (v TobaccoUse) String() string { return tobaccoUse.display(v) }

// EducationLevel is the highest level of education the decedent completed.
type EducationLevel int

const (
	EducationElementary EducationLevel = iota + 1
	EducationSomeSecondary
	EducationHighSchool
	EducationSomeCollege
	EducationAssociate
	EducationBachelor
	EducationSomePostBaccalaureate
	EducationGraduate
	EducationDoctoral
)

var educationLevel = newTable("EducationLevelVS", "Education Level",
	"Highest level of education completed by the decedent.",
	entry[EducationLevel]{EducationElementary, Concept{r4.SystemEducationLevel, "ELEM", "Elementary School"}, nil},
	entry[EducationLevel]{EducationSomeSecondary, Concept{r4.SystemEducationLevel, "SEC", "Some secondary or high school education"}, nil},
	entry[EducationLevel]{EducationHighSchool, Concept{r4.SystemEducationLevel, "HS", "High School or secondary school degree complete"}, nil},
	entry[EducationLevel]{EducationSomeCollege, Concept{r4.SystemEducationLevel, "SCOL", "Some College education"}, nil},
	entry[EducationLevel]{EducationAssociate, Concept{r4.SystemEducationLevel, "ASSOC", "Associate's or technical degree complete"}, nil},
	entry[EducationLevel]{EducationBachelor, Concept{r4.SystemEducationLevel, "BD", "College or baccalaureate degree complete"}, nil},
	entry[EducationLevel]{EducationSomePostBaccalaureate, Concept{r4.SystemEducationLevel, "PB", "Some post-baccalaureate education"}, nil},
	entry[EducationLevel]{EducationGraduate, Concept{r4.SystemEducationLevel, "GD", "Graduate or professional Degree complete"}, nil},
	entry[EducationLevel]{EducationDoctoral, Concept{r4.SystemEducationLevel, "POSTG", "Doctoral or post graduate education"}, nil},
)

// ParseEducationLevel translates the education answer text.
func ParseEducationLevel(text string) (EducationLevel, error) { return educationLevel.parse(text) }

// EducationLevelFromCode translates a v3 EducationLevel code.
func EducationLevelFromCode(code string) (EducationLevel, error) {
	return educationLevel.fromCode(code)
}

// Concept returns the coded form.
func (v EducationLevel) Concept() (Concept, error) { return educationLevel.concept(v) }

func (v EducationLevel) String() string { return educationLevel.display(v) }

// DispositionMethod is how the decedent's remains were disposed of.
type DispositionMethod int

const (
	DispositionBurial DispositionMethod = iota + 1
	DispositionCremation
	DispositionDonation
	DispositionEntombment
	DispositionRemovalFromState
	DispositionOther
	DispositionUnknown
)

var dispositionMethod = newTable("DispositionTypeVS", "Disposition Type",
	"Method of disposition of the decedent's remains.",
	entry[DispositionMethod]{DispositionBurial, Concept{r4.SystemSNOMED, "449971000124106", "Burial"}, nil},
	entry[DispositionMethod]{DispositionCremation, Concept{r4.SystemSNOMED, "449961000124104", "Cremation"}, nil},
	entry[DispositionMethod]{DispositionDonation, Concept{r4.SystemSNOMED, "449951000124101", "Donation"}, nil},
	entry[DispositionMethod]{DispositionEntombment, Concept{r4.SystemSNOMED, "449931000124108", "Entombment"}, nil},
	entry[DispositionMethod]{DispositionRemovalFromState, Concept{r4.SystemSNOMED, "449941000124103", "Removal from state"}, nil},
	entry[DispositionMethod]{DispositionOther, Concept{r4.SystemNullFlavor, "OTH", "Other"}, nil},
	entry[DispositionMethod]{DispositionUnknown, Concept{r4.SystemNullFlavor, "UNK", "Unknown"}, nil},
)

// ParseDispositionMethod translates form text such as "Burial".
func ParseDispositionMethod(text string) (DispositionMethod, error) {
	return dispositionMethod.parse(text)
}

// DispositionMethodFromCode translates a SNOMED code, OTH or UNK.
func DispositionMethodFromCode(code string) (DispositionMethod, error) {
	return dispositionMethod.fromCode(code)
}

// Concept returns the coded form.
func (v DispositionMethod) Concept() (Concept, error) { return dispositionMethod.concept(v) }

func (v DispositionMethod) String() string { return dispositionMethod.display(v) }

// PlaceOfDeathType is the kind of facility or place where the death occurred.
type PlaceOfDeathType int

const (
	PlaceHospital PlaceOfDeathType = iota + 1
	PlaceEmergencyRoom
	PlaceNursingHome
	PlaceDecedentsHome
	PlaceOther
)

var placeOfDeathType = newTable("PlaceOfDeathTypeVS", "Place of Death Type",
	"Type of place where the death occurred.",
	entry[PlaceOfDeathType]{PlaceHospital, Concept{r4.SystemRoleCode, "HOSP", "Hospital"}, []string{"Inpatient"}},
	entry[PlaceOfDeathType]{PlaceEmergencyRoom, Concept{r4.SystemRoleCode, "ER", "Emergency Room"}, []string{"ER/Outpatient"}},
	entry[PlaceOfDeathType]{PlaceNursingHome, Concept{r4.SystemRoleCode, "NCCF", "Nursing or custodial care facility"}, []string{"Nursing home", "Nursing home/Long term care facility"}},
	entry[PlaceOfDeathType]{PlaceDecedentsHome, Concept{r4.SystemRoleCode, "PTRES", "Patient's Residence"}, []string{"Decedent's home", "Home"}},
	entry[PlaceOfDeathType]{PlaceOther, Concept{r4.SystemNullFlavor, "OTH", "Other"}, nil},
)

// ParsePlaceOfDeathType translates the place of death type answer.
func ParsePlaceOfDeathType(text string) (PlaceOfDeathType, error) {
	return placeOfDeathType.parse(text)
}

// Concept returns the coded form.
func (v PlaceOfDeathType) Concept() (Concept, error) { return placeOfDeathType.concept(v) }

func (v PlaceOfDeathType) String() string { return placeOfDeathType.display(v) }

// MaritalStatus is the decedent's marital status at the time of death.
type MaritalStatus int

const (
	MaritalAnnulled MaritalStatus = iota + 1
	MaritalDivorced
	MaritalInterlocutory
	MaritalLegallySeparated
	MaritalMarried
	MaritalPolygamous
	MaritalNeverMarried
	MaritalDomesticPartner
	MaritalUnmarried
	MaritalWidowed
	MaritalUnknown
)

var maritalStatus = newTable("MaritalStatusVS", "Marital Status",
	"Marital status of the decedent at the time of death.",
	entry[MaritalStatus]{MaritalAnnulled, Concept{r4.SystemMaritalStatus, "A", "Annulled"}, nil},
	entry[MaritalStatus]{MaritalDivorced, Concept{r4.SystemMaritalStatus, "D", "Divorced"}, nil},
	entry[MaritalStatus]{MaritalInterlocutory, Concept{r4.SystemMaritalStatus, "I", "Interlocutory"}, nil},
	entry[MaritalStatus]{MaritalLegallySeparated, Concept{r4.SystemMaritalStatus, "L", "Legally Separated"}, nil},
	entry[MaritalStatus]{MaritalMarried, Concept{r4.SystemMaritalStatus, "M", "Married"}, nil},
	entry[MaritalStatus]{MaritalPolygamous, Concept{r4.SystemMaritalStatus, "P", "Polygamous"}, nil},
	entry[MaritalStatus]{MaritalNeverMarried, Concept{r4.SystemMaritalStatus, "S", "Never Married"}, nil},
	entry[MaritalStatus]{MaritalDomesticPartner, Concept{r4.SystemMaritalStatus, "T", "Domestic partner"}, nil},
	entry[MaritalStatus]{MaritalUnmarried, Concept{r4.SystemMaritalStatus, "U", "unmarried"}, nil},
	entry[MaritalStatus]{MaritalWidowed, Concept{r4.SystemMaritalStatus, "W", "Widowed"}, nil},
	entry[MaritalStatus]{MaritalUnknown, Concept{r4.SystemNullFlavor, "UNK", "unknown"}, nil},
)

// ParseMaritalStatus translates marital status text such as "Married".
func ParseMaritalStatus(text string) (MaritalStatus, error) { return maritalStatus.parse(text) }

// MaritalStatusFromCode translates a v3 MaritalStatus code.
func MaritalStatusFromCode(code string) (MaritalStatus, error) { return maritalStatus.fromCode(code) }

// Concept returns the coded form.
func (v MaritalStatus) Concept() (Concept, error) { return maritalStatus.concept(v) }

func (v MaritalStatus) String() string { return maritalStatus.display(v) }

// BirthSex is the US Core birth sex of the decedent.
type BirthSex int

const (
	BirthSexMale BirthSex = iota + 1
	BirthSexFemale
	BirthSexUnknown
)

var birthSex = newTable("BirthSexVS", "Birth Sex",
	"Sex assigned at birth.",
	entry[BirthSex]{BirthSexMale, Concept{r4.SystemAdministrativeSex, "M", "Male"}, nil},
	entry[BirthSex]{BirthSexFemale, Concept{r4.SystemAdministrativeSex, "F", "Female"}, nil},
	entry[BirthSex]{BirthSexUnknown, Concept{r4.SystemNullFlavor, "UNK", "Unknown"}, nil},
)

// ParseBirthSex translates "Male", "Female" or "Unknown".
func ParseBirthSex(text string) (BirthSex, error) { return birthSex.parse(text) }

// BirthSexFromCode translates M, F or UNK.
func BirthSexFromCode(code string) (BirthSex, error) { return birthSex.fromCode(code) }

// Concept returns the coded form.
func (v BirthSex) Concept() (Concept, error) { return birthSex.concept(v) }

func (v BirthSex) String() string { return birthSex.display(v) }
