package planner

import (
	"testing"

	"github.com/ppiankov/adhikaar/internal/model"
)

func TestNextField_Order(t *testing.T) {
	var p model.Profile
	want := []model.FieldID{
		model.FieldAge,
		model.FieldGender,
		model.FieldState,
		model.FieldOccupation,
		model.FieldIncome,
		model.FieldCaste,
		model.FieldMaritalStatus,
	}

	fill := map[model.FieldID]model.Profile{
		model.FieldAge:           {Age: model.Ptr(25)},
		model.FieldGender:        {Gender: model.Ptr(model.GenderMale)},
		model.FieldState:         {State: model.Ptr("Maharashtra")},
		model.FieldOccupation:    {Occupation: model.Ptr("farmer")},
		model.FieldIncome:        {Income: model.Ptr(200000.0)},
		model.FieldCaste:         {Caste: model.Ptr(model.CasteOBC)},
		model.FieldMaritalStatus: {MaritalStatus: model.Ptr(model.MaritalMarried)},
	}

	for _, expected := range want {
		got, ok := NextField(p)
		if !ok {
			t.Fatalf("expected %s, planner reported done", expected)
		}
		if got != expected {
			t.Fatalf("expected %s, got %s", expected, got)
		}
		if p.IsSet(got) {
			t.Fatalf("planner returned already-set field %s", got)
		}
		p = p.Merge(fill[got])
	}

	if f, ok := NextField(p); ok {
		t.Fatalf("expected done, got %s", f)
	}
	if !IsComplete(p) {
		t.Error("IsComplete should be true")
	}
}

func TestNextField_SkipsAnsweredFields(t *testing.T) {
	p := model.Profile{
		Age:   model.Ptr(30),
		State: model.Ptr("Kerala"),
	}
	got, ok := NextField(p)
	if !ok || got != model.FieldGender {
		t.Errorf("expected gender, got %s (ok=%v)", got, ok)
	}
}

func TestNextField_OccupationAskedEvenWhenFarmerKnown(t *testing.T) {
	p := model.Profile{
		Age:      model.Ptr(30),
		Gender:   model.Ptr(model.GenderFemale),
		State:    model.Ptr("Kerala"),
		IsFarmer: model.Ptr(false),
	}
	got, ok := NextField(p)
	if !ok || got != model.FieldOccupation {
		t.Errorf("expected occupation, got %s (ok=%v)", got, ok)
	}
}

func TestNextField_LegacyIncomeRangeSatisfiesIncome(t *testing.T) {
	p := model.Profile{
		Age:         model.Ptr(30),
		Gender:      model.Ptr(model.GenderFemale),
		State:       model.Ptr("Kerala"),
		Occupation:  model.Ptr("weaver"),
		IncomeRange: model.Ptr(model.Income1To3L),
	}
	got, ok := NextField(p)
	if !ok || got != model.FieldCaste {
		t.Errorf("expected caste, got %s (ok=%v)", got, ok)
	}
}

func TestNextField_NotDoneWithoutMandatory(t *testing.T) {
	// Optional fields alone never complete the profile
	p := model.Profile{
		Caste:         model.Ptr(model.CasteSC),
		MaritalStatus: model.Ptr(model.MaritalSingle),
	}
	if IsComplete(p) {
		t.Fatal("profile without mandatory fields must not be complete")
	}
}

func TestFieldForQuestion(t *testing.T) {
	tests := []struct {
		question string
		field    model.FieldID
		ok       bool
	}{
		{"How old are you? Please share your AGE.", model.FieldAge, true},
		{"What is your gender?", model.FieldGender, true},
		{"Which state do you live in?", model.FieldState, true},
		{"Are you a farmer?", model.FieldIsFarmer, true},
		{"What is your occupation?", model.FieldOccupation, true},
		{"What is your annual family income?", model.FieldIncome, true},
		{"Hello there!", "", false},
		// first keyword in priority order wins
		{"What is your occupation, for example farmer or student?", model.FieldIsFarmer, true},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got, ok := FieldForQuestion(tt.question)
			if ok != tt.ok || got != tt.field {
				t.Errorf("FieldForQuestion(%q) = %s, %v; want %s, %v", tt.question, got, ok, tt.field, tt.ok)
			}
		})
	}
}

func TestTemplateQuestion_RoundTrips(t *testing.T) {
	for _, f := range Mandatory() {
		q := TemplateQuestion(f)
		got, ok := FieldForQuestion(q)
		if !ok || got != f {
			t.Errorf("template for %s maps back to %s (ok=%v): %q", f, got, ok, q)
		}
	}
}
