package model

import "strings"

// Gender of the applicant
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// IncomeType says whose income the reported figure covers
type IncomeType string

const (
	IncomeIndividual IncomeType = "individual"
	IncomeFamily     IncomeType = "family"
)

// MaritalStatus of the applicant
type MaritalStatus string

const (
	MaritalSingle   MaritalStatus = "single"
	MaritalMarried  MaritalStatus = "married"
	MaritalWidowed  MaritalStatus = "widowed"
	MaritalDivorced MaritalStatus = "divorced"
)

// Caste is the reservation category (sc, st, obc, general, ews)
type Caste string

const (
	CasteSC      Caste = "sc"
	CasteST      Caste = "st"
	CasteOBC     Caste = "obc"
	CasteGeneral Caste = "general"
	CasteEWS     Caste = "ews"
)

// IncomeRange is the legacy bucketed annual income
type IncomeRange string

const (
	IncomeBelow1L IncomeRange = "<1L"
	Income1To3L   IncomeRange = "1-3L"
	Income3To5L   IncomeRange = "3-5L"
	IncomeAbove5L IncomeRange = ">5L"
)

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Valid reports whether g is one of the canonical genders
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

func (t IncomeType) Valid() bool {
	return t == IncomeIndividual || t == IncomeFamily
}

func (m MaritalStatus) Valid() bool {
	switch m {
	case MaritalSingle, MaritalMarried, MaritalWidowed, MaritalDivorced:
		return true
	}
	return false
}

func (c Caste) Valid() bool {
	switch c {
	case CasteSC, CasteST, CasteOBC, CasteGeneral, CasteEWS:
		return true
	}
	return false
}

// Valid is case-sensitive: "<1l" is not valid, ParseIncomeRange accepts it
func (r IncomeRange) Valid() bool {
	switch r {
	case IncomeBelow1L, Income1To3L, Income3To5L, IncomeAbove5L:
		return true
	}
	return false
}

// ParseGender parses a gender case-insensitively
func ParseGender(s string) (Gender, bool) {
	if g := Gender(normalizeToken(s)); g.Valid() {
		return g, true
	}
	return "", false
}

// ParseIncomeType parses an income type case-insensitively
func ParseIncomeType(s string) (IncomeType, bool) {
	if t := IncomeType(normalizeToken(s)); t.Valid() {
		return t, true
	}
	return "", false
}

// ParseMaritalStatus parses a marital status case-insensitively
func ParseMaritalStatus(s string) (MaritalStatus, bool) {
	if m := MaritalStatus(normalizeToken(s)); m.Valid() {
		return m, true
	}
	return "", false
}

// ParseCaste parses a caste category case-insensitively
func ParseCaste(s string) (Caste, bool) {
	if c := Caste(normalizeToken(s)); c.Valid() {
		return c, true
	}
	return "", false
}

// ParseIncomeRange parses a legacy income bucket ("<1l" and "<1L" both work)
func ParseIncomeRange(s string) (IncomeRange, bool) {
	if r := IncomeRange(strings.ToUpper(strings.TrimSpace(s))); r.Valid() {
		return r, true
	}
	return "", false
}
