package model

import "time"

// StateType distinguishes centrally sponsored schemes from state schemes
type StateType string

const (
	StateTypeCentral StateType = "central"
	StateTypeState   StateType = "state"
)

// ApplicationMode says how a scheme is applied for
type ApplicationMode string

const (
	ApplicationOnline  ApplicationMode = "online"
	ApplicationOffline ApplicationMode = "offline"
	ApplicationBoth    ApplicationMode = "both"
)

// Scheme is a government benefit programme in the catalog
type Scheme struct {
	ID                     string          `json:"id" yaml:"id" validate:"required"`
	Name                   string          `json:"name" yaml:"name" validate:"required"`
	ShortDescription       string          `json:"short_description" yaml:"short_description"`
	LongDescription        string          `json:"long_description,omitempty" yaml:"long_description,omitempty"`
	Benefits               string          `json:"benefits,omitempty" yaml:"benefits,omitempty"`
	Categories             []string        `json:"categories" yaml:"categories"`
	StateType              StateType       `json:"state_type" yaml:"state_type" validate:"omitempty,oneof=central state"`
	ImplementingDepartment string          `json:"implementing_department,omitempty" yaml:"implementing_department,omitempty"`
	ApplicationMode        ApplicationMode `json:"application_mode,omitempty" yaml:"application_mode,omitempty" validate:"omitempty,oneof=online offline both"`
	HelplineNumber         string          `json:"helpline_number,omitempty" yaml:"helpline_number,omitempty"`
	PriorityRank           int             `json:"priority_rank" yaml:"priority_rank"`
	ApplicableStates       []string        `json:"applicable_states,omitempty" yaml:"applicable_states,omitempty"`
	IsActive               bool            `json:"is_active" yaml:"is_active"`
	OfficialLink           string          `json:"official_link,omitempty" yaml:"official_link,omitempty" validate:"omitempty,url"`
	CreatedAt              time.Time       `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// EligibilityRule is one disjunct of a scheme's eligibility: a profile
// qualifies through this rule when every constrained axis passes. Nil
// pointers, empty lists and false flags leave their axis unconstrained.
type EligibilityRule struct {
	ID                    string      `json:"id,omitempty" yaml:"id,omitempty"`
	SchemeID              string      `json:"scheme_id,omitempty" yaml:"scheme_id,omitempty"`
	MinAge                *int        `json:"min_age" yaml:"min_age,omitempty" validate:"omitempty,gte=0"`
	MaxAge                *int        `json:"max_age" yaml:"max_age,omitempty" validate:"omitempty,gte=0"`
	AllowedGenders        []string    `json:"allowed_genders" yaml:"allowed_genders,omitempty"`
	AllowedCategories     []string    `json:"allowed_categories" yaml:"allowed_categories,omitempty"`
	IncomeMin             *float64    `json:"income_min" yaml:"income_min,omitempty" validate:"omitempty,gte=0"`
	IncomeMax             *float64    `json:"income_max" yaml:"income_max,omitempty" validate:"omitempty,gte=0"`
	IncomeType            *IncomeType `json:"income_type" yaml:"income_type,omitempty" validate:"omitempty,oneof=individual family"`
	AllowedOccupations    []string    `json:"allowed_occupations" yaml:"allowed_occupations,omitempty"`
	EmploymentStatus      []string    `json:"employment_status" yaml:"employment_status,omitempty"`
	RequiresLandOwnership bool        `json:"requires_land_ownership" yaml:"requires_land_ownership,omitempty"`
	RequiresFarmer        bool        `json:"requires_farmer" yaml:"requires_farmer,omitempty"`
	MinLandSize           *float64    `json:"min_land_size" yaml:"min_land_size,omitempty" validate:"omitempty,gte=0"`
	MaxLandSize           *float64    `json:"max_land_size" yaml:"max_land_size,omitempty" validate:"omitempty,gte=0"`
	RequiresDisability    bool        `json:"requires_disability" yaml:"requires_disability,omitempty"`
	WidowOnly             bool        `json:"widow_only" yaml:"widow_only,omitempty"`
	StudentOnly           bool        `json:"student_only" yaml:"student_only,omitempty"`
	MinorityOnly          bool        `json:"minority_only" yaml:"minority_only,omitempty"`
	BPLOnly               bool        `json:"bpl_only" yaml:"bpl_only,omitempty"`
	ApplicableStates      []string    `json:"applicable_states" yaml:"applicable_states,omitempty"`
	ExcludedStates        []string    `json:"excluded_states" yaml:"excluded_states,omitempty"`
}

// SchemeWithRules is a catalog entry together with its rule list
type SchemeWithRules struct {
	Scheme `yaml:",inline"`
	Rules  []EligibilityRule `json:"rules" yaml:"rules,omitempty" validate:"dive"`
}
