package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/adhikaar/internal/eligibility"
	"github.com/ppiankov/adhikaar/internal/llm"
	"github.com/ppiankov/adhikaar/internal/model"
	"github.com/ppiankov/adhikaar/internal/planner"
)

var (
	evalFields  map[string]string
	evalProfile string
	evalExplain bool
	evalJSON    bool
)

// evalCmd represents the eval command
var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Check one profile against the catalog",
	Long: `Eval checks a profile against every active scheme without a conversation.

Profile values come from a YAML/JSON file, from --field flags, or both
(flags win). Values are validated the same way extracted answers are;
invalid ones are reported and ignored.

Example:
  adhikaar eval --field age=45 --field state=Maharashtra --field isFarmer=true
  adhikaar eval --profile me.yaml --explain
  adhikaar eval --profile me.json --json`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringToStringVarP(&evalFields, "field", "f", nil, "profile field as key=value (repeatable)")
	evalCmd.Flags().StringVarP(&evalProfile, "profile", "p", "", "profile file (YAML or JSON object)")
	evalCmd.Flags().BoolVar(&evalExplain, "explain", false, "show why each scheme passed or failed")
	evalCmd.Flags().BoolVar(&evalJSON, "json", false, "print JSON instead of text")
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	profile, dropped, err := buildProfile(evalProfile, evalFields)
	if err != nil {
		return err
	}
	for _, key := range dropped {
		fmt.Fprintf(os.Stderr, "⚠️  ignoring invalid value for %q\n", key)
	}

	snapshot, err := a.snapshot(ctx)
	if err != nil {
		return err
	}

	engine := eligibility.NewEngine()
	out := cmd.OutOrStdout()

	if evalJSON {
		payload := evalOutput{Profile: profile, Complete: planner.IsComplete(profile)}
		if evalExplain {
			payload.Assessments = engine.Assess(profile, snapshot)
		} else {
			payload.Eligible = engine.Evaluate(profile, snapshot)
		}
		return writeJSON(out, payload)
	}

	fmt.Fprintf(out, "Profile: %s\n", profile.Summary())
	if !planner.IsComplete(profile) {
		fmt.Fprintf(out, "⚠️  profile is incomplete; unknown details do not exclude schemes\n")
	}
	fmt.Fprintln(out)

	if evalExplain {
		printAssessments(out, engine.Assess(profile, snapshot))
		return nil
	}

	eligible := engine.Evaluate(profile, snapshot)
	if len(eligible) == 0 {
		fmt.Fprintln(out, "No matching schemes.")
		return nil
	}
	fmt.Fprintf(out, "%d of %d schemes match:\n\n", len(eligible), len(snapshot))
	printSchemes(out, eligible)
	return nil
}

type evalOutput struct {
	Profile     model.Profile            `json:"profile"`
	Complete    bool                     `json:"complete"`
	Eligible    []model.Scheme           `json:"eligible,omitempty"`
	Assessments []eligibility.Assessment `json:"assessments,omitempty"`
}

// buildProfile merges the profile file and field flags into one validated
// profile. It returns the keys that were dropped as invalid.
func buildProfile(path string, fields map[string]string) (model.Profile, []string, error) {
	doc := map[string]any{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return model.Profile{}, nil, fmt.Errorf("read profile: %w", err)
		}
		// YAML is a superset of JSON
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return model.Profile{}, nil, fmt.Errorf("parse profile %s: %w", path, err)
		}
	}
	for key, value := range fields {
		doc[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if len(doc) == 0 {
		return model.Profile{}, nil, fmt.Errorf("no profile given: use --profile or --field")
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return model.Profile{}, nil, fmt.Errorf("encode profile: %w", err)
	}

	parser, err := llm.NewExtractor(nil, nil, 0)
	if err != nil {
		return model.Profile{}, nil, err
	}
	return parser.Parse(string(raw))
}

func printAssessments(w io.Writer, assessments []eligibility.Assessment) {
	sort.SliceStable(assessments, func(i, j int) bool {
		return assessments[i].Eligible && !assessments[j].Eligible
	})

	for _, a := range assessments {
		switch {
		case a.Universal:
			fmt.Fprintf(w, "✓ %s (open to everyone)\n", a.Scheme.Name)
		case a.Eligible:
			fmt.Fprintf(w, "✓ %s (rule %d)\n", a.Scheme.Name, a.MatchedRule+1)
		default:
			fmt.Fprintf(w, "✗ %s\n", a.Scheme.Name)
			for i, axes := range a.Failures {
				names := make([]string, len(axes))
				for j, axis := range axes {
					names[j] = string(axis)
				}
				fmt.Fprintf(w, "    rule %d: %s\n", i+1, strings.Join(names, ", "))
			}
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
