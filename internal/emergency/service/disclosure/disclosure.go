// Package disclosure projects a profile onto the field set of an access level.
package disclosure

import (
	"slices"
	"time"

	"lifeline/internal/emergency/models"
)

// Disclosable field names, as they appear in the returned data slice.
const (
	FieldName                   = "name"
	FieldAge                    = "age"
	FieldBloodType              = "bloodType"
	FieldCriticalAllergies      = "criticalAllergies"
	FieldEmergencyContacts      = "emergencyContacts"
	FieldActiveConditions       = "activeConditions"
	FieldCurrentMedications     = "currentMedications"
	FieldPrimaryCareProvider    = "primaryCareProvider"
	FieldEmergencyInstructions  = "emergencyInstructions"
	FieldOrganDonor             = "organDonor"
	FieldDNRStatus              = "dnrStatus"
	FieldLivingWillReference    = "livingWillReference"
	FieldMedicalPowerOfAttorney = "medicalPowerOfAttorney"
	FieldInsuranceProvider      = "insuranceProvider"
	FieldPrimaryHospital        = "primaryHospital"
)

var (
	basicFields = []string{
		FieldName, FieldAge, FieldBloodType, FieldCriticalAllergies, FieldEmergencyContacts,
	}
	medicalFields = append(slices.Clone(basicFields),
		FieldActiveConditions, FieldCurrentMedications, FieldPrimaryCareProvider,
	)
	// fullFields is an explicit list; new profile data is never disclosed by default.
	fullFields = append(slices.Clone(medicalFields),
		FieldEmergencyInstructions, FieldOrganDonor, FieldDNRStatus, FieldLivingWillReference,
		FieldMedicalPowerOfAttorney, FieldInsuranceProvider, FieldPrimaryHospital,
	)
)

// Fields returns the ordered field list disclosed at level.
// Unknown levels disclose nothing.
func Fields(level models.AccessLevel) []string {
	switch level {
	case models.AccessLevelBasic:
		return slices.Clone(basicFields)
	case models.AccessLevelMedical:
		return slices.Clone(medicalFields)
	case models.AccessLevelFull:
		return slices.Clone(fullFields)
	}
	return nil
}

// Project copies the fields of level out of profile. Age is computed from
// the date of birth at now; an unknown birth date leaves it unset.
func Project(profile *models.EmergencyAccessProfile, level models.AccessLevel, now time.Time) *models.DataSlice {
	fields := Fields(level)
	out := &models.DataSlice{Level: level, Fields: fields}
	patient := profile.Patient
	alerts := profile.Alerts

	for _, f := range fields {
		switch f {
		case FieldName:
			out.Name = patient.Name
		case FieldAge:
			if !patient.DateOfBirth.IsZero() {
				age := Age(patient.DateOfBirth, now)
				out.Age = &age
			}
		case FieldBloodType:
			out.BloodType = alerts.BloodType
		case FieldCriticalAllergies:
			out.CriticalAllergies = slices.Clone(alerts.CriticalAllergies)
		case FieldEmergencyContacts:
			out.EmergencyContacts = slices.Clone(patient.EmergencyContacts)
		case FieldActiveConditions:
			out.ActiveConditions = slices.Clone(alerts.ActiveConditions)
		case FieldCurrentMedications:
			out.CurrentMedications = slices.Clone(alerts.CurrentMedications)
		case FieldPrimaryCareProvider:
			if patient.PrimaryCareProvider != nil {
				cp := *patient.PrimaryCareProvider
				out.PrimaryCareProvider = &cp
			}
		case FieldEmergencyInstructions:
			out.EmergencyInstructions = alerts.EmergencyInstructions
		case FieldOrganDonor:
			if alerts.OrganDonor != nil {
				v := *alerts.OrganDonor
				out.OrganDonor = &v
			}
		case FieldDNRStatus:
			v := alerts.DNRStatus
			out.DNRStatus = &v
		case FieldLivingWillReference:
			out.LivingWillReference = alerts.LivingWillReference
		case FieldMedicalPowerOfAttorney:
			if alerts.MedicalPowerOfAttorney != nil {
				poa := *alerts.MedicalPowerOfAttorney
				out.MedicalPowerOfAttorney = &poa
			}
		case FieldInsuranceProvider:
			out.InsuranceProvider = patient.InsuranceProvider
		case FieldPrimaryHospital:
			out.PrimaryHospital = patient.PrimaryHospital
		}
	}
	return out
}

// Age returns completed years between dob and now.
func Age(dob, now time.Time) int {
	now = now.In(dob.Location())
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
