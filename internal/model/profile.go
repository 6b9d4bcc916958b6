package model

import (
	"fmt"
	"sort"
	"strings"
)

// FieldID names a Profile attribute by its wire (JSON) key
type FieldID string

const (
	FieldAge           FieldID = "age"
	FieldGender        FieldID = "gender"
	FieldState         FieldID = "state"
	FieldOccupation    FieldID = "occupation"
	FieldIncome        FieldID = "income"
	FieldIncomeType    FieldID = "income_type"
	FieldIsFarmer      FieldID = "isFarmer"
	FieldOwnsLand      FieldID = "ownsLand"
	FieldLandSize      FieldID = "landSize"
	FieldHasDisability FieldID = "hasDisability"
	FieldMaritalStatus FieldID = "maritalStatus"
	FieldCaste         FieldID = "caste"
	FieldIsStudent     FieldID = "isStudent"
	FieldIsMinority    FieldID = "is_minority"
	FieldIsBPL         FieldID = "is_bpl"
	FieldIncomeRange   FieldID = "incomeRange" // legacy bucketed income
)

// FieldKind is the semantic type of a Profile field
type FieldKind int

const (
	KindString FieldKind = iota
	KindInteger
	KindNumber
	KindBool
	KindEnum
)

var allFields = []FieldID{
	FieldAge, FieldGender, FieldState, FieldOccupation, FieldIncome,
	FieldIncomeType, FieldIsFarmer, FieldOwnsLand, FieldLandSize,
	FieldHasDisability, FieldMaritalStatus, FieldCaste, FieldIsStudent,
	FieldIsMinority, FieldIsBPL, FieldIncomeRange,
}

// AllFields returns every Profile field in declaration order
func AllFields() []FieldID {
	out := make([]FieldID, len(allFields))
	copy(out, allFields)
	return out
}

// ParseFieldID resolves a wire key to a FieldID
func ParseFieldID(s string) (FieldID, bool) {
	for _, f := range allFields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// Kind returns the semantic type of the field
func (f FieldID) Kind() FieldKind {
	switch f {
	case FieldAge:
		return KindInteger
	case FieldIncome, FieldLandSize:
		return KindNumber
	case FieldIsFarmer, FieldOwnsLand, FieldHasDisability, FieldIsStudent, FieldIsMinority, FieldIsBPL:
		return KindBool
	case FieldGender, FieldIncomeType, FieldMaritalStatus, FieldCaste, FieldIncomeRange:
		return KindEnum
	default:
		return KindString
	}
}

// EnumValues lists the accepted values for enum fields (nil otherwise)
func (f FieldID) EnumValues() []string {
	switch f {
	case FieldGender:
		return []string{string(GenderMale), string(GenderFemale), string(GenderOther)}
	case FieldIncomeType:
		return []string{string(IncomeIndividual), string(IncomeFamily)}
	case FieldMaritalStatus:
		return []string{string(MaritalSingle), string(MaritalMarried), string(MaritalWidowed), string(MaritalDivorced)}
	case FieldCaste:
		return []string{string(CasteSC), string(CasteST), string(CasteOBC), string(CasteGeneral), string(CasteEWS)}
	case FieldIncomeRange:
		return []string{string(IncomeBelow1L), string(Income1To3L), string(Income3To5L), string(IncomeAbove5L)}
	}
	return nil
}

// Profile is the per-session record of a user's self-reported attributes.
// Every field is optional; nil means unknown. The zero value is the empty
// profile a session starts with.
type Profile struct {
	Age           *int           `json:"age,omitempty" yaml:"age,omitempty"`
	Gender        *Gender        `json:"gender,omitempty" yaml:"gender,omitempty"`
	State         *string        `json:"state,omitempty" yaml:"state,omitempty"`
	Occupation    *string        `json:"occupation,omitempty" yaml:"occupation,omitempty"`
	Income        *float64       `json:"income,omitempty" yaml:"income,omitempty"`
	IncomeType    *IncomeType    `json:"income_type,omitempty" yaml:"income_type,omitempty"`
	IsFarmer      *bool          `json:"isFarmer,omitempty" yaml:"isFarmer,omitempty"`
	OwnsLand      *bool          `json:"ownsLand,omitempty" yaml:"ownsLand,omitempty"`
	LandSize      *float64       `json:"landSize,omitempty" yaml:"landSize,omitempty"`
	HasDisability *bool          `json:"hasDisability,omitempty" yaml:"hasDisability,omitempty"`
	MaritalStatus *MaritalStatus `json:"maritalStatus,omitempty" yaml:"maritalStatus,omitempty"`
	Caste         *Caste         `json:"caste,omitempty" yaml:"caste,omitempty"`
	IsStudent     *bool          `json:"isStudent,omitempty" yaml:"isStudent,omitempty"`
	IsMinority    *bool          `json:"is_minority,omitempty" yaml:"is_minority,omitempty"`
	IsBPL         *bool          `json:"is_bpl,omitempty" yaml:"is_bpl,omitempty"`
	IncomeRange   *IncomeRange   `json:"incomeRange,omitempty" yaml:"incomeRange,omitempty"`
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Clone returns a copy that shares no pointers with p
func (p Profile) Clone() Profile {
	return Profile{
		Age:           clonePtr(p.Age),
		Gender:        clonePtr(p.Gender),
		State:         clonePtr(p.State),
		Occupation:    clonePtr(p.Occupation),
		Income:        clonePtr(p.Income),
		IncomeType:    clonePtr(p.IncomeType),
		IsFarmer:      clonePtr(p.IsFarmer),
		OwnsLand:      clonePtr(p.OwnsLand),
		LandSize:      clonePtr(p.LandSize),
		HasDisability: clonePtr(p.HasDisability),
		MaritalStatus: clonePtr(p.MaritalStatus),
		Caste:         clonePtr(p.Caste),
		IsStudent:     clonePtr(p.IsStudent),
		IsMinority:    clonePtr(p.IsMinority),
		IsBPL:         clonePtr(p.IsBPL),
		IncomeRange:   clonePtr(p.IncomeRange),
	}
}

func pick[T any](base, update *T) *T {
	if update != nil {
		return clonePtr(update)
	}
	return clonePtr(base)
}

// Merge applies a partial update: every field present in update overwrites
// the corresponding field of p, absent fields are left untouched. The merge
// is shallow and p itself is not modified.
func (p Profile) Merge(update Profile) Profile {
	return Profile{
		Age:           pick(p.Age, update.Age),
		Gender:        pick(p.Gender, update.Gender),
		State:         pick(p.State, update.State),
		Occupation:    pick(p.Occupation, update.Occupation),
		Income:        pick(p.Income, update.Income),
		IncomeType:    pick(p.IncomeType, update.IncomeType),
		IsFarmer:      pick(p.IsFarmer, update.IsFarmer),
		OwnsLand:      pick(p.OwnsLand, update.OwnsLand),
		LandSize:      pick(p.LandSize, update.LandSize),
		HasDisability: pick(p.HasDisability, update.HasDisability),
		MaritalStatus: pick(p.MaritalStatus, update.MaritalStatus),
		Caste:         pick(p.Caste, update.Caste),
		IsStudent:     pick(p.IsStudent, update.IsStudent),
		IsMinority:    pick(p.IsMinority, update.IsMinority),
		IsBPL:         pick(p.IsBPL, update.IsBPL),
		IncomeRange:   pick(p.IncomeRange, update.IncomeRange),
	}
}

// Value returns the field's value, or nil when it is unset
func (p Profile) Value(f FieldID) any {
	switch f {
	case FieldAge:
		return deref(p.Age)
	case FieldGender:
		return deref(p.Gender)
	case FieldState:
		return deref(p.State)
	case FieldOccupation:
		return deref(p.Occupation)
	case FieldIncome:
		return deref(p.Income)
	case FieldIncomeType:
		return deref(p.IncomeType)
	case FieldIsFarmer:
		return deref(p.IsFarmer)
	case FieldOwnsLand:
		return deref(p.OwnsLand)
	case FieldLandSize:
		return deref(p.LandSize)
	case FieldHasDisability:
		return deref(p.HasDisability)
	case FieldMaritalStatus:
		return deref(p.MaritalStatus)
	case FieldCaste:
		return deref(p.Caste)
	case FieldIsStudent:
		return deref(p.IsStudent)
	case FieldIsMinority:
		return deref(p.IsMinority)
	case FieldIsBPL:
		return deref(p.IsBPL)
	case FieldIncomeRange:
		return deref(p.IncomeRange)
	}
	return nil
}

func deref[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

// IsSet reports whether the field holds a known value
func (p Profile) IsSet(f FieldID) bool {
	return p.Value(f) != nil
}

// SetFields lists the known fields in declaration order
func (p Profile) SetFields() []FieldID {
	var out []FieldID
	for _, f := range allFields {
		if p.IsSet(f) {
			out = append(out, f)
		}
	}
	return out
}

// IsEmpty reports whether no field is known
func (p Profile) IsEmpty() bool {
	return len(p.SetFields()) == 0
}

// Snapshot returns every field keyed by wire name, unset fields as nil.
// Used wherever the full shape must be shown (prompts, debug output).
func (p Profile) Snapshot() map[string]any {
	out := make(map[string]any, len(allFields))
	for _, f := range allFields {
		out[string(f)] = p.Value(f)
	}
	return out
}

// Summary renders the known fields as "key=value" pairs, sorted by key
func (p Profile) Summary() string {
	set := p.SetFields()
	if len(set) == 0 {
		return "(empty profile)"
	}
	parts := make([]string, 0, len(set))
	for _, f := range set {
		parts = append(parts, fmt.Sprintf("%s=%v", f, p.Value(f)))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
