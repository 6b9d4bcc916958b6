// Package eligibility filters a scheme catalog against a (possibly partial)
// user profile.
//
// A scheme is eligible when it has no rules or when at least one of its rules
// matches. A rule matches when every axis check passes. An axis passes
// vacuously when the rule does not constrain it or when the profile has not
// supplied the attribute, so unknown attributes never exclude a user. The
// exceptions are the occupation axis, which requires a known occupation when
// the rule lists allowed occupations, and the flag axes (farmer, widow,
// student, disability, minority, BPL), which require the corresponding
// attribute to be positively known.
//
// The income_type recorded on rules and profiles is not cross-checked.
package eligibility

import (
	"strings"

	"github.com/ppiankov/adhikaar/internal/model"
)

// Axis names one independent dimension of a rule
type Axis string

const (
	AxisAge        Axis = "age"
	AxisGender     Axis = "gender"
	AxisCategory   Axis = "category"
	AxisIncome     Axis = "income"
	AxisOccupation Axis = "occupation"
	AxisFarmer     Axis = "farmer_or_land"
	AxisLandSize   Axis = "land_size"
	AxisWidow      Axis = "widow"
	AxisStudent    Axis = "student"
	AxisDisability Axis = "disability"
	AxisMinority   Axis = "minority"
	AxisBPL        Axis = "bpl"
	AxisGeography  Axis = "geography"
)

type axisCheck struct {
	axis  Axis
	check func(r model.EligibilityRule, p model.Profile) bool
}

// checks run in this order; the result does not depend on it
var checks = []axisCheck{
	{AxisAge, checkAge},
	{AxisGender, checkGender},
	{AxisCategory, checkCategory},
	{AxisIncome, checkIncome},
	{AxisOccupation, checkOccupation},
	{AxisFarmer, checkFarmer},
	{AxisLandSize, checkLandSize},
	{AxisWidow, checkWidow},
	{AxisStudent, checkStudent},
	{AxisDisability, checkDisability},
	{AxisMinority, checkMinority},
	{AxisBPL, checkBPL},
	{AxisGeography, checkGeography},
}

// Engine evaluates profiles against catalogs. It holds no mutable state and
// is safe for concurrent use.
type Engine struct{}

// NewEngine creates a new Engine
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate returns the eligible schemes in catalog order
func (e *Engine) Evaluate(p model.Profile, catalog []model.SchemeWithRules) []model.Scheme {
	eligible := make([]model.Scheme, 0, len(catalog))
	for _, s := range catalog {
		if e.SchemeEligible(s, p) {
			eligible = append(eligible, s.Scheme)
		}
	}
	return eligible
}

// SchemeEligible reports whether p qualifies for s
func (e *Engine) SchemeEligible(s model.SchemeWithRules, p model.Profile) bool {
	if len(s.Rules) == 0 {
		return true
	}
	for _, r := range s.Rules {
		if RuleMatches(r, p) {
			return true
		}
	}
	return false
}

// RuleMatches reports whether every axis of r passes for p
func RuleMatches(r model.EligibilityRule, p model.Profile) bool {
	for _, c := range checks {
		if !c.check(r, p) {
			return false
		}
	}
	return true
}

// Explain returns the axes of r that p fails, in check order
func (e *Engine) Explain(r model.EligibilityRule, p model.Profile) []Axis {
	var failed []Axis
	for _, c := range checks {
		if !c.check(r, p) {
			failed = append(failed, c.axis)
		}
	}
	return failed
}

// Assessment is the per-scheme outcome of an evaluation
type Assessment struct {
	Scheme      model.Scheme `json:"scheme"`
	Eligible    bool         `json:"eligible"`
	Universal   bool         `json:"universal,omitempty"` // no rules at all
	MatchedRule int          `json:"matched_rule"`        // index of the first matching rule, -1 when none
	Failures    [][]Axis     `json:"failures,omitempty"`  // failing axes per rule when not eligible
}

// Assess evaluates every scheme and records why each one passed or failed
func (e *Engine) Assess(p model.Profile, catalog []model.SchemeWithRules) []Assessment {
	out := make([]Assessment, 0, len(catalog))
	for _, s := range catalog {
		a := Assessment{Scheme: s.Scheme, MatchedRule: -1}
		if len(s.Rules) == 0 {
			a.Eligible = true
			a.Universal = true
			out = append(out, a)
			continue
		}
		for i, r := range s.Rules {
			failed := e.Explain(r, p)
			if len(failed) == 0 {
				a.Eligible = true
				a.MatchedRule = i
				a.Failures = nil
				break
			}
			a.Failures = append(a.Failures, failed)
		}
		out = append(out, a)
	}
	return out
}

func checkAge(r model.EligibilityRule, p model.Profile) bool {
	if p.Age == nil {
		return true
	}
	if r.MinAge != nil && *p.Age < *r.MinAge {
		return false
	}
	if r.MaxAge != nil && *p.Age > *r.MaxAge {
		return false
	}
	return true
}

func checkGender(r model.EligibilityRule, p model.Profile) bool {
	if len(r.AllowedGenders) == 0 || p.Gender == nil || *p.Gender == "" {
		return true
	}
	return containsFold(r.AllowedGenders, string(*p.Gender))
}

func checkCategory(r model.EligibilityRule, p model.Profile) bool {
	if len(r.AllowedCategories) == 0 || p.Caste == nil || *p.Caste == "" {
		return true
	}
	return containsFold(r.AllowedCategories, string(*p.Caste))
}

func checkIncome(r model.EligibilityRule, p model.Profile) bool {
	if p.Income == nil {
		return true
	}
	if r.IncomeMax != nil && *p.Income > *r.IncomeMax {
		return false
	}
	if r.IncomeMin != nil && *p.Income < *r.IncomeMin {
		return false
	}
	return true
}

// checkOccupation requires a known occupation whenever the rule restricts it
func checkOccupation(r model.EligibilityRule, p model.Profile) bool {
	if len(r.AllowedOccupations) == 0 {
		return true
	}
	if p.Occupation == nil || *p.Occupation == "" {
		return false
	}
	occ := strings.ToLower(*p.Occupation)
	for _, allowed := range r.AllowedOccupations {
		if strings.Contains(occ, strings.ToLower(allowed)) {
			return true
		}
	}
	return false
}

func checkFarmer(r model.EligibilityRule, p model.Profile) bool {
	if !r.RequiresFarmer && !r.RequiresLandOwnership {
		return true
	}
	return isTrue(p.IsFarmer) || isTrue(p.OwnsLand)
}

func checkLandSize(r model.EligibilityRule, p model.Profile) bool {
	if p.LandSize == nil {
		return true
	}
	if r.MinLandSize != nil && *p.LandSize < *r.MinLandSize {
		return false
	}
	if r.MaxLandSize != nil && *p.LandSize > *r.MaxLandSize {
		return false
	}
	return true
}

func checkWidow(r model.EligibilityRule, p model.Profile) bool {
	if !r.WidowOnly {
		return true
	}
	return p.MaritalStatus != nil && *p.MaritalStatus == model.MaritalWidowed
}

func checkStudent(r model.EligibilityRule, p model.Profile) bool {
	if !r.StudentOnly {
		return true
	}
	if isTrue(p.IsStudent) {
		return true
	}
	return p.Occupation != nil && strings.Contains(strings.ToLower(*p.Occupation), "student")
}

func checkDisability(r model.EligibilityRule, p model.Profile) bool {
	return !r.RequiresDisability || isTrue(p.HasDisability)
}

func checkMinority(r model.EligibilityRule, p model.Profile) bool {
	return !r.MinorityOnly || isTrue(p.IsMinority)
}

func checkBPL(r model.EligibilityRule, p model.Profile) bool {
	return !r.BPLOnly || isTrue(p.IsBPL)
}

// checkGeography applies the exclusion list before the inclusion list
func checkGeography(r model.EligibilityRule, p model.Profile) bool {
	if p.State == nil || *p.State == "" {
		return true
	}
	if len(r.ExcludedStates) > 0 && containsFold(r.ExcludedStates, *p.State) {
		return false
	}
	if len(r.ApplicableStates) > 0 && !containsFold(r.ApplicableStates, *p.State) {
		return false
	}
	return true
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
