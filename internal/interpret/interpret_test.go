package interpret

import (
	"testing"

	"github.com/ppiankov/adhikaar/internal/model"
)

func TestInterpret_NoExpectation(t *testing.T) {
	if got := Interpret("yes", ""); !got.IsEmpty() {
		t.Errorf("expected empty update, got %s", got.Summary())
	}
}

func TestInterpret_FarmerYesNo(t *testing.T) {
	tests := []struct {
		text string
		want *bool
	}{
		{"no", model.Ptr(false)},
		{"  NO ", model.Ptr(false)},
		{"nope", model.Ptr(false)},
		{"I am not a farmer", model.Ptr(false)},
		{"yes", model.Ptr(true)},
		{"Yeah", model.Ptr(true)},
		{"yep", model.Ptr(true)},
		{"yes, I grow rice", nil},
		{"maybe", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Interpret(tt.text, model.FieldIsFarmer)
			if tt.want == nil {
				if !got.IsEmpty() {
					t.Errorf("expected empty update, got %s", got.Summary())
				}
				return
			}
			if got.IsFarmer == nil || *got.IsFarmer != *tt.want {
				t.Errorf("expected isFarmer=%v, got %s", *tt.want, got.Summary())
			}
			if len(got.SetFields()) != 1 {
				t.Errorf("expected a single-field update, got %s", got.Summary())
			}
		})
	}
}

func TestInterpret_OtherBooleanFields(t *testing.T) {
	got := Interpret("yes", model.FieldIsBPL)
	if got.IsBPL == nil || !*got.IsBPL {
		t.Errorf("expected is_bpl=true, got %s", got.Summary())
	}

	got = Interpret("not a student anymore", model.FieldIsStudent)
	if got.IsStudent == nil || *got.IsStudent {
		t.Errorf("expected isStudent=false, got %s", got.Summary())
	}
}

func TestInterpret_Numbers(t *testing.T) {
	got := Interpret("25", model.FieldAge)
	if got.Age == nil || *got.Age != 25 {
		t.Errorf("expected age=25, got %s", got.Summary())
	}

	got = Interpret("2,00,000", model.FieldIncome)
	if got.Income == nil || *got.Income != 200000 {
		t.Errorf("expected income=200000, got %s", got.Summary())
	}

	if got := Interpret("twenty five", model.FieldAge); !got.IsEmpty() {
		t.Errorf("expected empty update for words, got %s", got.Summary())
	}
	if got := Interpret("999", model.FieldAge); !got.IsEmpty() {
		t.Errorf("expected implausible age to be ignored, got %s", got.Summary())
	}
}

func TestInterpret_YesForNonBooleanField(t *testing.T) {
	if got := Interpret("yes", model.FieldAge); !got.IsEmpty() {
		t.Errorf("expected empty update, got %s", got.Summary())
	}
	if got := Interpret("no", model.FieldState); !got.IsEmpty() {
		t.Errorf("expected empty update, got %s", got.Summary())
	}
}
