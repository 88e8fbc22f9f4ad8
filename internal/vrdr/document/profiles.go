package document

import (
	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/valueset"
)

const profileBase = "http://hl7.org/fhir/us/vrdr/StructureDefinition/"

// Profile URLs declared in meta.profile.
const (
	ProfileDeathCertificateDocument     = profileBase + "VRDR-Death-Certificate-Document"
	ProfileDeathCertificate             = profileBase + "VRDR-Death-Certificate"
	ProfileDecedent                     = profileBase + "VRDR-Decedent"
	ProfileDecedentFather               = profileBase + "VRDR-Decedent-Father"
	ProfileDecedentMother               = profileBase + "VRDR-Decedent-Mother"
	ProfileDecedentSpouse               = profileBase + "VRDR-Decedent-Spouse"
	ProfileDecedentAge                  = profileBase + "VRDR-Decedent-Age"
	ProfileDecedentPregnancy            = profileBase + "VRDR-Decedent-Pregnancy"
	ProfileDecedentTransportationRole   = profileBase + "VRDR-Decedent-Transportation-Role"
	ProfileTobaccoUseContributedToDeath = profileBase + "VRDR-Tobacco-Use-Contributed-To-Death"
	ProfileDecedentEducationLevel       = profileBase + "VRDR-Decedent-Education-Level"
	ProfileDecedentEmploymentHistory    = profileBase + "VRDR-Decedent-Employment-History"
	ProfileBirthRecordIdentifier        = profileBase + "VRDR-Birth-Record-Identifier"
	ProfileCertifier                    = profileBase + "VRDR-Certifier"
	ProfileDeathCertification           = profileBase + "VRDR-Death-Certification"
	ProfileMannerOfDeath                = profileBase + "VRDR-Manner-of-Death"
	ProfileAutopsyPerformedIndicator    = profileBase + "VRDR-Autopsy-Performed-Indicator"
	ProfileExaminerContacted            = profileBase + "VRDR-Examiner-Contacted"
	ProfileFuneralHome                  = profileBase + "VRDR-Funeral-Home"
	ProfileFuneralHomeDirector          = profileBase + "VRDR-Funeral-Home-Director"
	ProfileMortician                    = profileBase + "VRDR-Mortician"
	ProfileInterestedParty              = profileBase + "VRDR-Interested-Party"
	ProfileDeathPronouncementPerformer  = profileBase + "VRDR-Death-Pronouncement-Performer"
	ProfileCauseOfDeathCondition        = profileBase + "VRDR-Cause-Of-Death-Condition"
	ProfileCauseOfDeathPathway          = profileBase + "VRDR-Cause-of-Death-Pathway"
	ProfileConditionContributingToDeath = profileBase + "VRDR-Condition-Contributing-To-Death"
	ProfileDeathLocation                = profileBase + "VRDR-Death-Location"
	ProfileDeathDate                    = profileBase + "VRDR-Death-Date"
	ProfileInjuryIncident               = profileBase + "VRDR-Injury-Incident"
	ProfileInjuryLocation               = profileBase + "VRDR-Injury-Location"
	ProfileDecedentDispositionMethod    = profileBase + "VRDR-Decedent-Disposition-Method"
	ProfileDispositionLocation          = profileBase + "VRDR-Disposition-Location"
)

// ExtensionObservationLocation ties an observation to the Location it happened at.
const ExtensionObservationLocation = profileBase + "VRDR-Observation-Location"

func loinc(code, display string) valueset.Concept {
	return valueset.Concept{System: r4.SystemLOINC, Code: code, Display: display}
}

func snomed(code, display string) valueset.Concept {
	return valueset.Concept{System: r4.SystemSNOMED, Code: code, Display: display}
}

// Fixed codes written by the builders.
var (
	codeDeathCertificate     = loinc("64297-5", "Death certificate")
	codeDecedentAge          = loinc("30525-0", "Age")
	codePregnancy            = loinc("69442-2", "Timing of recent pregnancy in relation to death")
	codeTransportationRole   = loinc("69451-3", "Transportation role of decedent")
	codeTobaccoUse           = loinc("69443-0", "Did tobacco use contribute to death")
	codeEducationLevel       = loinc("80913-7", "Highest level of education [US Standard Certificate of Death]")
	codeEmploymentHistory    = loinc("74165-2", "History of employment status Narrative")
	codeMilitaryService      = loinc("55280-2", "Military service Narrative")
	codeUsualIndustry        = loinc("21844-6", "History of Usual industry")
	codeUsualOccupation      = loinc("21843-8", "History of Usual occupation")
	codeBirthplace           = loinc("21842-0", "Birthplace")
	codeBirthYear            = loinc("80904-6", "Birth year")
	codeMannerOfDeath        = loinc("69449-7", "Manner of death")
	codeAutopsyPerformed     = loinc("85699-7", "Autopsy was performed")
	codeAutopsyAvailable     = loinc("69436-4", "Autopsy results available")
	codeExaminerContacted    = loinc("74497-9", "Medical examiner or coroner was contacted [US Standard Certificate of Death]")
	codeInjuryIncident       = loinc("11374-6", "Injury incident description Narrative")
	codePlaceOfInjury        = loinc("69450-5", "Place of injury Facility")
	codeWorkInjury           = loinc("69444-8", "Did death result from injury at work")
	codeTransportationEvent  = loinc("69448-9", "Injury leading to death associated with transportation event")
	codeDeathDate            = loinc("81956-5", "Date+time of death")
	codeDatePronounced       = loinc("80616-6", "Date and time pronounced dead [US Standard Certificate of Death]")
	codeDispositionMethod    = loinc("80905-3", "Body disposition method")
	codeDiagnosticProcedure  = snomed("103693007", "Diagnostic procedure")
	codeDeathCertification   = snomed("308646001", "Death certification")
	codePhysician            = snomed("309343006", "Physician")
	codeDeathDiagnosis       = snomed("16100001", "Death diagnosis")
	codeBirthRecordNumber    = valueset.Concept{System: r4.SystemIdentifierType, Code: "BR", Display: "Birth registry number"}
	codeSocialBeneficiaryID  = valueset.Concept{System: r4.SystemIdentifierType, Code: "SB", Display: "Social Beneficiary Identifier"}
	codeListOrderPriority    = valueset.Concept{System: r4.SystemListOrder, Code: "priority", Display: "Sorted by Priority"}
	codeFuneralHomeType      = valueset.Concept{System: r4.SystemOrganizationType, Code: "bus", Display: "Non-Healthcare Business or Corporation"}
	codeFather               = valueset.Concept{System: r4.SystemRoleCode, Code: "FTH", Display: "father"}
	codeMother               = valueset.Concept{System: r4.SystemRoleCode, Code: "MTH", Display: "mother"}
	codeSpouse               = valueset.Concept{System: r4.SystemRoleCode, Code: "SPS", Display: "spouse"}
)

// MethodEstimated marks a date of death as estimated.
var MethodEstimated = snomed("414135002", "Estimated")
