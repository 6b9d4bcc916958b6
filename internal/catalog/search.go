package catalog

import (
	"strings"

	"github.com/ppiankov/adhikaar/internal/model"
)

// Query filters a snapshot for browsing. Zero fields match everything.
type Query struct {
	// Text matches name, short description and benefits, case-insensitively
	Text string
	// Category must appear in the scheme's categories
	Category string
	// StateType restricts to central or state schemes
	StateType model.StateType
	// State keeps schemes available in this state (empty applicable_states
	// means nationwide)
	State string
	// Limit caps the result size when positive
	Limit int
}

// Search returns the schemes of snapshot matching q, in snapshot order
func Search(snapshot []model.SchemeWithRules, q Query) []model.SchemeWithRules {
	text := strings.ToLower(strings.TrimSpace(q.Text))

	var out []model.SchemeWithRules
	for _, s := range snapshot {
		if q.Category != "" && !containsFold(s.Categories, q.Category) {
			continue
		}
		if q.StateType != "" && s.StateType != q.StateType {
			continue
		}
		if q.State != "" && len(s.ApplicableStates) > 0 && !containsFold(s.ApplicableStates, q.State) {
			continue
		}
		if text != "" && !matchesText(s.Scheme, text) {
			continue
		}
		out = append(out, s)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}

// Categories lists the distinct categories of a snapshot in first-seen order
func Categories(snapshot []model.SchemeWithRules) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range snapshot {
		for _, c := range s.Categories {
			k := strings.ToLower(c)
			if !seen[k] {
				seen[k] = true
				out = append(out, c)
			}
		}
	}
	return out
}

func matchesText(s model.Scheme, text string) bool {
	for _, field := range []string{s.Name, s.ShortDescription, s.Benefits} {
		if strings.Contains(strings.ToLower(PlainText(field)), text) {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
