package models

import (
	dErrors "lifeline/pkg/domain-errors"
)

// ScenarioType names a kind of medical emergency.
type ScenarioType string

const (
	ScenarioCardiacArrest   ScenarioType = "cardiac_arrest"
	ScenarioStroke          ScenarioType = "stroke"
	ScenarioSevereAllergy   ScenarioType = "severe_allergy"
	ScenarioDiabeticEpisode ScenarioType = "diabetic_emergency"
	ScenarioTrauma          ScenarioType = "trauma"
	ScenarioUnconscious     ScenarioType = "unconscious"
	ScenarioGeneral         ScenarioType = "general"
)

var knownScenarios = map[ScenarioType]struct{}{
	ScenarioCardiacArrest:   {},
	ScenarioStroke:          {},
	ScenarioSevereAllergy:   {},
	ScenarioDiabeticEpisode: {},
	ScenarioTrauma:          {},
	ScenarioUnconscious:     {},
	ScenarioGeneral:         {},
}

// ParseScenarioType accepts an empty string as "no scenario".
func ParseScenarioType(s string) (ScenarioType, error) {
	if s == "" {
		return "", nil
	}
	t := ScenarioType(s)
	if _, ok := knownScenarios[t]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown emergency scenario")
	}
	return t, nil
}

// EmergencyScenario maps an emergency type to the access level responders get.
type EmergencyScenario struct {
	Type               ScenarioType `json:"type"`
	AccessLevel        AccessLevel  `json:"access_level"`
	Triggers           []string     `json:"triggers,omitempty"`
	AutoNotifyContacts bool         `json:"auto_notify_contacts"`
	AutoShareLocation  bool         `json:"auto_share_location"`
	Priority           int          `json:"priority"`
}

func (s EmergencyScenario) Validate() error {
	if _, ok := knownScenarios[s.Type]; !ok {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown emergency scenario")
	}
	if !s.AccessLevel.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "scenario access level is invalid")
	}
	return nil
}
