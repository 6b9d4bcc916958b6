// Package planner decides which profile attribute the assistant asks about next.
package planner

import (
	"fmt"
	"strings"

	"github.com/ppiankov/adhikaar/internal/model"
)

// mandatory fields gate eligibility evaluation in this order
var mandatory = []model.FieldID{
	model.FieldAge,
	model.FieldGender,
	model.FieldState,
	model.FieldOccupation,
	model.FieldIncome,
}

// optional fields are asked after the mandatory ones and also gate completion
var optional = []model.FieldID{
	model.FieldCaste,
	model.FieldMaritalStatus,
}

// Mandatory returns the fields every completed profile carries
func Mandatory() []model.FieldID {
	return append([]model.FieldID(nil), mandatory...)
}

// Order returns the full question order
func Order() []model.FieldID {
	out := make([]model.FieldID, 0, len(mandatory)+len(optional))
	out = append(out, mandatory...)
	return append(out, optional...)
}

// NextField returns the first unanswered field in priority order. ok is false
// once every field in the order is known, meaning collection is done.
func NextField(p model.Profile) (field model.FieldID, ok bool) {
	for _, f := range Order() {
		if !answered(p, f) {
			return f, true
		}
	}
	return "", false
}

// answered reports whether the profile already covers f. Occupation is
// asked whenever it is unknown: a known isFarmer alone does not answer it,
// and an occupation answer frequently settles farmer status too. Income is
// covered by either the numeric figure or the legacy bucket.
func answered(p model.Profile, f model.FieldID) bool {
	switch f {
	case model.FieldIncome:
		return p.Income != nil || p.IncomeRange != nil
	default:
		return p.IsSet(f)
	}
}

// IsComplete reports whether NextField would report done
func IsComplete(p model.Profile) bool {
	_, ok := NextField(p)
	return !ok
}

// questionKeywords map question text back to the field it probes.
// Order matters: the first keyword found wins.
var questionKeywords = []struct {
	keyword string
	field   model.FieldID
}{
	{"age", model.FieldAge},
	{"gender", model.FieldGender},
	{"state", model.FieldState},
	{"farmer", model.FieldIsFarmer},
	{"occupation", model.FieldOccupation},
	{"income", model.FieldIncome},
}

// FieldForQuestion maps a previously emitted question back to the field it
// targets by case-insensitive keyword match.
func FieldForQuestion(question string) (model.FieldID, bool) {
	q := strings.ToLower(question)
	for _, kw := range questionKeywords {
		if strings.Contains(q, kw.keyword) {
			return kw.field, true
		}
	}
	return "", false
}

var labels = map[model.FieldID]string{
	model.FieldAge:           "age",
	model.FieldGender:        "gender",
	model.FieldState:         "state of residence",
	model.FieldOccupation:    "occupation",
	model.FieldIncome:        "annual family income",
	model.FieldCaste:         "social category (SC, ST, OBC, General or EWS)",
	model.FieldMaritalStatus: "marital status",
	model.FieldIsFarmer:      "farmer status",
	model.FieldOwnsLand:      "land ownership",
	model.FieldLandSize:      "land size in acres",
	model.FieldHasDisability: "disability status",
	model.FieldIsStudent:     "student status",
	model.FieldIsMinority:    "minority community status",
	model.FieldIsBPL:         "BPL card status",
	model.FieldIncomeType:    "income type",
	model.FieldIncomeRange:   "income range",
}

// Label returns the human wording for a field
func Label(f model.FieldID) string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// TemplateQuestion is the fixed question used when no phrased text is available
func TemplateQuestion(f model.FieldID) string {
	return fmt.Sprintf("Could you please tell me your %s?", Label(f))
}
