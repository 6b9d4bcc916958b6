// Package interpret recognises unambiguous replies without calling the extractor.
package interpret

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/adhikaar/internal/model"
)

var (
	affirmative = map[string]bool{"yes": true, "yeah": true, "yep": true}
	negative    = map[string]bool{"no": true, "nope": true}

	// "not a farmer", "not a student", ...
	negativeNouns = map[model.FieldID]string{
		model.FieldIsFarmer:  "farmer",
		model.FieldIsStudent: "student",
	}

	bareNumber = regexp.MustCompile(`^\d{1,3}(,\d{2,3})*$|^\d+$`)
)

// Interpret returns the update implied by text when it answers expected
// unambiguously, and an empty update otherwise. Only the cheap, certain cases
// are handled here; everything else is left to the extractor.
func Interpret(text string, expected model.FieldID) model.Profile {
	if expected == "" {
		return model.Profile{}
	}

	msg := strings.ToLower(strings.TrimSpace(text))
	if msg == "" {
		return model.Profile{}
	}

	switch expected.Kind() {
	case model.KindBool:
		if v, ok := yesNo(msg, expected); ok {
			return boolUpdate(expected, v)
		}
	case model.KindInteger, model.KindNumber:
		if n, ok := number(msg); ok {
			return numberUpdate(expected, n)
		}
	}

	return model.Profile{}
}

func yesNo(msg string, field model.FieldID) (bool, bool) {
	if negative[msg] {
		return false, true
	}
	if noun, ok := negativeNouns[field]; ok && strings.Contains(msg, "not a "+noun) {
		return false, true
	}
	if affirmative[msg] {
		return true, true
	}
	return false, false
}

func number(msg string) (int, bool) {
	if !bareNumber.MatchString(msg) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(msg, ",", ""))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func boolUpdate(field model.FieldID, v bool) model.Profile {
	var p model.Profile
	switch field {
	case model.FieldIsFarmer:
		p.IsFarmer = &v
	case model.FieldOwnsLand:
		p.OwnsLand = &v
	case model.FieldHasDisability:
		p.HasDisability = &v
	case model.FieldIsStudent:
		p.IsStudent = &v
	case model.FieldIsMinority:
		p.IsMinority = &v
	case model.FieldIsBPL:
		p.IsBPL = &v
	}
	return p
}

func numberUpdate(field model.FieldID, n int) model.Profile {
	var p model.Profile
	switch field {
	case model.FieldAge:
		if n <= 130 {
			p.Age = model.Ptr(n)
		}
	case model.FieldIncome:
		p.Income = model.Ptr(float64(n))
	case model.FieldLandSize:
		p.LandSize = model.Ptr(float64(n))
	}
	return p
}
