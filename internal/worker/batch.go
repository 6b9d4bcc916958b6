package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/adhikaar/internal/eligibility"
	"github.com/ppiankov/adhikaar/internal/llm"
	"github.com/ppiankov/adhikaar/internal/model"
)

// ProfileRecord is one profile in a batch file. Dropped lists the keys that
// were unknown or invalid and so left unset.
type ProfileRecord struct {
	ID            string   `json:"id,omitempty" yaml:"id,omitempty"`
	Dropped       []string `json:"dropped,omitempty" yaml:"-"`
	model.Profile `yaml:",inline"`
}

// EvalJob evaluates one profile against a catalog snapshot
type EvalJob struct {
	Record   ProfileRecord
	Snapshot []model.SchemeWithRules
	Engine   *eligibility.Engine
	Explain  bool
}

// Execute runs the evaluation
func (j *EvalJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &EvalResult{ID: j.Record.ID, Profile: j.Record.Profile, Error: err}
	}

	res := &EvalResult{
		ID:       j.Record.ID,
		Profile:  j.Record.Profile,
		Dropped:  j.Record.Dropped,
		Eligible: j.Engine.Evaluate(j.Record.Profile, j.Snapshot),
	}
	if j.Explain {
		res.Assessments = j.Engine.Assess(j.Record.Profile, j.Snapshot)
	}
	return res
}

// EvalResult is the outcome for one profile
type EvalResult struct {
	ID          string                   `json:"id"`
	Profile     model.Profile            `json:"profile"`
	Dropped     []string                 `json:"dropped,omitempty"`
	Eligible    []model.Scheme           `json:"eligible"`
	Assessments []eligibility.Assessment `json:"assessments,omitempty"`
	Error       error                    `json:"-"`
}

// GetError returns the error from the evaluation
func (r *EvalResult) GetError() error {
	return r.Error
}

// BatchEvaluator evaluates many profiles concurrently against one snapshot
type BatchEvaluator struct {
	engine      *eligibility.Engine
	concurrency int
	explain     bool
}

// NewBatchEvaluator creates a batch evaluator. With explain set every
// result also carries per-scheme assessments.
func NewBatchEvaluator(engine *eligibility.Engine, concurrency int, explain bool) *BatchEvaluator {
	if engine == nil {
		engine = eligibility.NewEngine()
	}
	return &BatchEvaluator{
		engine:      engine,
		concurrency: concurrency,
		explain:     explain,
	}
}

// Evaluate evaluates records against snapshot. Results are in input order.
func (b *BatchEvaluator) Evaluate(ctx context.Context, snapshot []model.SchemeWithRules, records []ProfileRecord) []*EvalResult {
	if len(records) == 0 {
		return []*EvalResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, rec := range records {
		pool.Submit(&EvalJob{
			Record:   rec,
			Snapshot: snapshot,
			Engine:   b.engine,
			Explain:  b.explain,
		})
	}

	results := pool.Wait()

	out := make([]*EvalResult, len(records))
	for i, rec := range records {
		if i < len(results) && results[i] != nil {
			out[i] = results[i].(*EvalResult)
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &EvalResult{ID: rec.ID, Profile: rec.Profile, Error: err}
	}
	return out
}

// EvaluateFile reads profiles from a file and evaluates them
func (b *BatchEvaluator) EvaluateFile(ctx context.Context, snapshot []model.SchemeWithRules, filePath string) ([]*EvalResult, error) {
	records, err := ReadProfilesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	return b.Evaluate(ctx, snapshot, records), nil
}

// ReadProfilesFromFile reads profiles from a YAML list or a JSON-lines file
// (one object per line, blank lines and # comments skipped). Records
// without an id are numbered profile-1, profile-2, ... Every record is
// normalised the way an extracted update is: "WIDOWED" becomes widowed,
// "1,20,000" becomes 120000 and keys that stay invalid are dropped.
func ReadProfilesFromFile(filePath string) ([]ProfileRecord, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	var raw []map[string]any
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		raw, err = readJSONLines(data)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, err
	}

	parser, err := llm.NewExtractor(nil, nil, 0)
	if err != nil {
		return nil, err
	}

	records := make([]ProfileRecord, 0, len(raw))
	for i, fields := range raw {
		rec, err := parseRecord(parser, fields)
		if err != nil {
			return nil, fmt.Errorf("profile %d: %w", i+1, err)
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("profile-%d", i+1)
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseRecord splits off the id and runs the remaining keys through the
// extractor's coercion and schema checks
func parseRecord(parser *llm.Extractor, fields map[string]any) (ProfileRecord, error) {
	var rec ProfileRecord
	if id, ok := fields["id"]; ok {
		if id != nil {
			rec.ID = fmt.Sprint(id)
		}
		delete(fields, "id")
	}
	if fields == nil {
		fields = map[string]any{}
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return rec, fmt.Errorf("encode profile: %w", err)
	}
	rec.Profile, rec.Dropped, err = parser.Parse(string(body))
	if err != nil {
		return rec, err
	}
	return rec, nil
}

func readJSONLines(data []byte) ([]map[string]any, error) {
	var records []map[string]any

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return records, nil
}
