package models

import dErrors "lifeline/pkg/domain-errors"

// AccessLevel selects the disclosed field set. Levels are nested:
// basic ⊆ medical ⊆ full.
type AccessLevel string

const (
	AccessLevelBasic   AccessLevel = "basic"
	AccessLevelMedical AccessLevel = "medical"
	AccessLevelFull    AccessLevel = "full"
)

var levelRank = map[AccessLevel]int{
	AccessLevelBasic:   1,
	AccessLevelMedical: 2,
	AccessLevelFull:    3,
}

// ParseAccessLevel validates external input.
func ParseAccessLevel(s string) (AccessLevel, error) {
	l := AccessLevel(s)
	if !l.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "access level must be one of basic, medical, full")
	}
	return l, nil
}

func (l AccessLevel) IsValid() bool {
	_, ok := levelRank[l]
	return ok
}

// Includes reports whether l discloses at least everything other discloses.
func (l AccessLevel) Includes(other AccessLevel) bool {
	return levelRank[l] >= levelRank[other] && other.IsValid()
}

func (l AccessLevel) String() string { return string(l) }
