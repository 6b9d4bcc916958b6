package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/adhikaar/internal/eligibility"
	"github.com/ppiankov/adhikaar/internal/model"
)

func testSnapshot() []model.SchemeWithRules {
	return []model.SchemeWithRules{
		{
			Scheme: model.Scheme{ID: "pm-kisan", Name: "PM-KISAN", IsActive: true},
			Rules:  []model.EligibilityRule{{RequiresFarmer: true, ApplicableStates: []string{"Maharashtra"}}},
		},
		{
			Scheme: model.Scheme{ID: "widow-pension", Name: "Widow Pension", IsActive: true},
			Rules:  []model.EligibilityRule{{WidowOnly: true}},
		},
		{
			Scheme: model.Scheme{ID: "ration", Name: "Ration Card", IsActive: true},
		},
	}
}

func schemeIDs(schemes []model.Scheme) []string {
	out := make([]string, len(schemes))
	for i, s := range schemes {
		out[i] = s.ID
	}
	return out
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBatchEvaluator_Evaluate(t *testing.T) {
	records := []ProfileRecord{
		{ID: "farmer", Profile: model.Profile{IsFarmer: model.Ptr(true), State: model.Ptr("Maharashtra")}},
		{ID: "widow", Profile: model.Profile{MaritalStatus: model.Ptr(model.MaritalWidowed)}},
		{ID: "kerala", Profile: model.Profile{IsFarmer: model.Ptr(true), State: model.Ptr("Kerala")}},
	}

	results := NewBatchEvaluator(nil, 2, false).Evaluate(context.Background(), testSnapshot(), records)
	require.Len(t, results, 3)

	assert.Equal(t, "farmer", results[0].ID)
	assert.Equal(t, []string{"pm-kisan", "ration"}, schemeIDs(results[0].Eligible))
	assert.Equal(t, []string{"widow-pension", "ration"}, schemeIDs(results[1].Eligible))
	assert.Equal(t, []string{"ration"}, schemeIDs(results[2].Eligible))

	for _, r := range results {
		assert.NoError(t, r.GetError())
		assert.Nil(t, r.Assessments)
	}
}

func TestBatchEvaluator_MatchesSequential(t *testing.T) {
	engine := eligibility.NewEngine()
	snapshot := testSnapshot()

	var records []ProfileRecord
	for i := 0; i < 60; i++ {
		p := model.Profile{}
		if i%2 == 0 {
			p.IsFarmer = model.Ptr(true)
		}
		if i%3 == 0 {
			p.State = model.Ptr("Maharashtra")
		}
		if i%5 == 0 {
			p.MaritalStatus = model.Ptr(model.MaritalWidowed)
		}
		records = append(records, ProfileRecord{Profile: p})
	}

	results := NewBatchEvaluator(engine, 8, false).Evaluate(context.Background(), snapshot, records)
	require.Len(t, results, len(records))
	for i, rec := range records {
		assert.Equal(t, schemeIDs(engine.Evaluate(rec.Profile, snapshot)), schemeIDs(results[i].Eligible), "record %d", i)
	}
}

func TestBatchEvaluator_Explain(t *testing.T) {
	records := []ProfileRecord{{ID: "p", Profile: model.Profile{State: model.Ptr("Kerala")}}}

	results := NewBatchEvaluator(nil, 1, true).Evaluate(context.Background(), testSnapshot(), records)
	require.Len(t, results, 1)
	require.Len(t, results[0].Assessments, 3)

	kisan := results[0].Assessments[0]
	assert.False(t, kisan.Eligible)
	assert.Equal(t, [][]eligibility.Axis{{eligibility.AxisFarmer, eligibility.AxisGeography}}, kisan.Failures)
	assert.True(t, results[0].Assessments[2].Universal)
}

func TestBatchEvaluator_Empty(t *testing.T) {
	results := NewBatchEvaluator(nil, 2, false).Evaluate(context.Background(), testSnapshot(), nil)
	assert.Empty(t, results)
}

func TestBatchEvaluator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := []ProfileRecord{{ID: "a"}, {ID: "b"}}
	results := NewBatchEvaluator(nil, 2, false).Evaluate(ctx, testSnapshot(), records)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.GetError(), context.Canceled)
	}
}

func TestReadProfilesFromFile_YAML(t *testing.T) {
	path := writeFile(t, "profiles.yaml", `
- id: asha
  age: 34
  gender: female
  state: Maharashtra
  isFarmer: true
- age: 70
  maritalStatus: widowed
`)

	records, err := ReadProfilesFromFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "asha", records[0].ID)
	require.NotNil(t, records[0].Age)
	assert.Equal(t, 34, *records[0].Age)
	require.NotNil(t, records[0].Gender)
	assert.Equal(t, model.GenderFemale, *records[0].Gender)
	assert.True(t, *records[0].IsFarmer)

	assert.Equal(t, "profile-2", records[1].ID)
	assert.Equal(t, model.MaritalWidowed, *records[1].MaritalStatus)
}

func TestReadProfilesFromFile_JSONLines(t *testing.T) {
	path := writeFile(t, "profiles.jsonl", `{"id": "a", "age": 25, "is_bpl": true}
# comment

{"income": 120000, "income_type": "family"}
`)

	records, err := ReadProfilesFromFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a", records[0].ID)
	assert.True(t, *records[0].IsBPL)
	assert.Equal(t, "profile-2", records[1].ID)
	assert.InDelta(t, 120000, *records[1].Income, 0.001)
}

func TestReadProfilesFromFile_NormalisesAndDropsInvalid(t *testing.T) {
	path := writeFile(t, "profiles.jsonl", `{"id": 7, "age": -7, "gender": "robot", "caste": "brahmin", "maritalStatus": "WIDOWED", "nickname": "asha"}
{"income": "1,20,000", "isFarmer": "yes", "state": "Kerala", "gender": "Female"}
`)

	records, err := ReadProfilesFromFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	widow := records[0]
	assert.Equal(t, "7", widow.ID)
	assert.Nil(t, widow.Age)
	assert.Nil(t, widow.Gender)
	assert.Nil(t, widow.Caste)
	require.NotNil(t, widow.MaritalStatus)
	assert.Equal(t, model.MaritalWidowed, *widow.MaritalStatus)
	assert.Equal(t, []string{"age", "caste", "gender", "nickname"}, widow.Dropped)

	farmer := records[1]
	assert.Empty(t, farmer.Dropped)
	require.NotNil(t, farmer.Income)
	assert.InDelta(t, 120000, *farmer.Income, 0.001)
	require.NotNil(t, farmer.IsFarmer)
	assert.True(t, *farmer.IsFarmer)
	assert.Equal(t, model.GenderFemale, *farmer.Gender)

	results := NewBatchEvaluator(nil, 2, false).Evaluate(context.Background(), testSnapshot(), records)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"widow-pension", "ration"}, schemeIDs(results[0].Eligible))
	assert.Equal(t, widow.Dropped, results[0].Dropped)
}

func TestReadProfilesFromFile_YAMLMixedCase(t *testing.T) {
	path := writeFile(t, "profiles.yaml", `
- id: meera
  maritalStatus: Widowed
  caste: OBC
  income_type: Family
  age: "70"
`)

	records, err := ReadProfilesFromFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, model.MaritalWidowed, *records[0].MaritalStatus)
	assert.Equal(t, model.CasteOBC, *records[0].Caste)
	assert.Equal(t, model.IncomeFamily, *records[0].IncomeType)
	assert.Equal(t, 70, *records[0].Age)
	assert.Empty(t, records[0].Dropped)
}

func TestReadProfilesFromFile_Errors(t *testing.T) {
	_, err := ReadProfilesFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ReadProfilesFromFile(writeFile(t, "bad.jsonl", "{\"age\": 1}\n{broken\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ReadProfilesFromFile(writeFile(t, "bad.yaml", "age: [unclosed"))
	assert.Error(t, err)
}

func TestBatchEvaluator_EvaluateFile(t *testing.T) {
	path := writeFile(t, "profiles.yaml", "- isFarmer: true\n  state: Maharashtra\n- {}\n")

	results, err := NewBatchEvaluator(nil, 2, false).EvaluateFile(context.Background(), testSnapshot(), path)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"pm-kisan", "ration"}, schemeIDs(results[0].Eligible))
	assert.Equal(t, []string{"ration"}, schemeIDs(results[1].Eligible))

	_, err = NewBatchEvaluator(nil, 2, false).EvaluateFile(context.Background(), testSnapshot(), "no_such_file.yaml")
	assert.Error(t, err)
}
