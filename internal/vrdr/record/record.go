// Package record maps the certifier's wizard answers and the decedent's
// clinical record onto document options.
package record

// Record is the flat set of answers collected by the certificate wizard. Every
// field is free text as entered; an empty string means unanswered.
type Record struct {
	// Pronouncement and date of death
	ActualDeathDate     string `json:"actualDeathDate,omitempty"`
	ActualDeathTime     string `json:"actualDeathTime,omitempty"`
	PronouncedDeathDate string `json:"pronouncedDeathDate,omitempty"`
	PronouncedDeathTime string `json:"pronouncedDeathTime,omitempty"`
	PronouncerName      string `json:"pronouncerName,omitempty"`
	PronouncerNumber    string `json:"pronouncerNumber,omitempty"`

	PlaceOfDeathName   string `json:"placeOfDeathName,omitempty"`
	PlaceOfDeathType   string `json:"placeOfDeathType,omitempty"`
	PlaceOfDeathStreet string `json:"placeOfDeathStreet,omitempty"`
	PlaceOfDeathApt    string `json:"placeOfDeathApt,omitempty"`
	PlaceOfDeathCity   string `json:"placeOfDeathCity,omitempty"`
	PlaceOfDeathCounty string `json:"placeOfDeathCounty,omitempty"`
	PlaceOfDeathState  string `json:"placeOfDeathState,omitempty"`
	PlaceOfDeathZip    string `json:"placeOfDeathZip,omitempty"`

	// Certifier
	CertifierName   string `json:"certifierName,omitempty"`
	CertifierNumber string `json:"certifierNumber,omitempty"`
	CertifierStreet string `json:"certifierStreet,omitempty"`
	CertifierCity   string `json:"certifierCity,omitempty"`
	CertifierCounty string `json:"certifierCounty,omitempty"`
	CertifierState  string `json:"certifierState,omitempty"`
	CertifierZip    string `json:"certifierZip,omitempty"`

	// Cause of death, immediate cause first
	Cod1Text     string `json:"cod1Text,omitempty"`
	Cod1Time     string `json:"cod1Time,omitempty"`
	Cod2Text     string `json:"cod2Text,omitempty"`
	Cod2Time     string `json:"cod2Time,omitempty"`
	Cod3Text     string `json:"cod3Text,omitempty"`
	Cod3Time     string `json:"cod3Time,omitempty"`
	Cod4Text     string `json:"cod4Text,omitempty"`
	Cod4Time     string `json:"cod4Time,omitempty"`
	Contributing string `json:"contributing,omitempty"`

	// Additional questions
	MannerOfDeath     string `json:"mannerOfDeath,omitempty"`
	AutopsyPerformed  string `json:"autopsyPerformed,omitempty"`
	AutopsyAvailable  string `json:"autopsyAvailable,omitempty"`
	ExaminerContacted string `json:"examinerContacted,omitempty"`
	Tobacco           string `json:"tobacco,omitempty"`
	Pregnancy         string `json:"pregnancy,omitempty"`
	EducationLevel    string `json:"educationLevel,omitempty"`

	// Injury
	DateOfInjury           string `json:"dateOfInjury,omitempty"`
	TimeOfInjury           string `json:"timeOfInjury,omitempty"`
	PlaceOfInjury          string `json:"placeOfInjury,omitempty"`
	InjuryAtWork           string `json:"injuryAtWork,omitempty"`
	TransportationInjury   string `json:"transportationInjury,omitempty"`
	HowInjuryOccurred      string `json:"howInjuryOccurred,omitempty"`
	LocationOfInjuryStreet string `json:"locationOfInjuryStreet,omitempty"`
	LocationOfInjuryApt    string `json:"locationOfInjuryApt,omitempty"`
	LocationOfInjuryCity   string `json:"locationOfInjuryCity,omitempty"`
	LocationOfInjuryCounty string `json:"locationOfInjuryCounty,omitempty"`
	LocationOfInjuryState  string `json:"locationOfInjuryState,omitempty"`
	LocationOfInjuryZip    string `json:"locationOfInjuryZip,omitempty"`

	// Disposition
	DispositionMethod      string `json:"dispositionMethod,omitempty"`
	DispositionPlaceName   string `json:"dispositionPlaceName,omitempty"`
	DispositionPlaceCity   string `json:"dispositionPlaceCity,omitempty"`
	DispositionPlaceCounty string `json:"dispositionPlaceCounty,omitempty"`
	DispositionPlaceState  string `json:"dispositionPlaceState,omitempty"`
	FuneralHomeName        string `json:"funeralHomeName,omitempty"`
	FuneralHomeStreet      string `json:"funeralHomeStreet,omitempty"`
	FuneralHomeCity        string `json:"funeralHomeCity,omitempty"`
	FuneralHomeState       string `json:"funeralHomeState,omitempty"`
	FuneralHomeZip         string `json:"funeralHomeZip,omitempty"`
	MorticianName          string `json:"morticianName,omitempty"`
	MorticianLicenseNumber string `json:"morticianLicenseNumber,omitempty"`
}
