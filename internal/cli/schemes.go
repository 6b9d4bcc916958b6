package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/adhikaar/internal/catalog"
	"github.com/ppiankov/adhikaar/internal/linkcheck"
	"github.com/ppiankov/adhikaar/internal/model"
)

var (
	schemesCategory  string
	schemesStateType string
	schemesState     string
	schemesLimit     int
	schemesJSON      bool
)

// schemesCmd represents the schemes command
var schemesCmd = &cobra.Command{
	Use:   "schemes",
	Short: "Browse the scheme catalog",
	Long: `Browse the active schemes of the configured catalog.

Example:
  adhikaar schemes list --category agriculture
  adhikaar schemes search pension --state Kerala
  adhikaar schemes show pm-kisan
  adhikaar schemes categories`,
}

var schemesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active schemes in priority order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchemesSearch(cmd, "")
	},
}

var schemesSearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search scheme names, descriptions and benefits",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchemesSearch(cmd, strings.Join(args, " "))
	},
}

var schemesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one scheme with its eligibility rules",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchemesShow,
}

var schemesCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the categories used by the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshot, err := loadSnapshot(cmd)
		if err != nil {
			return err
		}
		for _, c := range catalog.Categories(snapshot) {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	},
}

var schemesCheckLinksCmd = &cobra.Command{
	Use:   "check-links",
	Short: "Check that scheme links are reachable and official",
	Long: `Check-links probes the official link and the description links of every
active scheme. Dead links, links outside the configured government domains
and links disallowed by robots.txt are reported.

Example:
  adhikaar schemes check-links
  adhikaar schemes check-links --json > links.json`,
	Args: cobra.NoArgs,
	RunE: runSchemesCheckLinks,
}

func init() {
	rootCmd.AddCommand(schemesCmd)
	schemesCmd.AddCommand(schemesListCmd, schemesSearchCmd, schemesShowCmd, schemesCategoriesCmd, schemesCheckLinksCmd)

	for _, c := range []*cobra.Command{schemesListCmd, schemesSearchCmd} {
		c.Flags().StringVar(&schemesCategory, "category", "", "only schemes in this category")
		c.Flags().StringVar(&schemesStateType, "type", "", "only central or state schemes")
		c.Flags().StringVar(&schemesState, "state", "", "only schemes available in this state")
		c.Flags().IntVar(&schemesLimit, "limit", 0, "maximum number of schemes (0 = all)")
	}
	for _, c := range []*cobra.Command{schemesListCmd, schemesSearchCmd, schemesShowCmd, schemesCheckLinksCmd} {
		c.Flags().BoolVar(&schemesJSON, "json", false, "print JSON instead of text")
	}
}

// loadSnapshot opens the configured catalog and loads it once
func loadSnapshot(cmd *cobra.Command) ([]model.SchemeWithRules, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	return a.snapshot(ctx)
}

func runSchemesSearch(cmd *cobra.Command, text string) error {
	stateType := model.StateType(strings.ToLower(schemesStateType))
	if stateType != "" && stateType != model.StateTypeCentral && stateType != model.StateTypeState {
		return fmt.Errorf("invalid --type %q: want central or state", schemesStateType)
	}

	snapshot, err := loadSnapshot(cmd)
	if err != nil {
		return err
	}

	found := catalog.Search(snapshot, catalog.Query{
		Text:      text,
		Category:  schemesCategory,
		StateType: stateType,
		State:     schemesState,
		Limit:     schemesLimit,
	})

	out := cmd.OutOrStdout()
	if schemesJSON {
		return writeJSON(out, catalog.Schemes(found))
	}
	if len(found) == 0 {
		fmt.Fprintln(out, "No schemes found.")
		return nil
	}
	printSchemes(out, catalog.Schemes(found))
	return nil
}

func runSchemesShow(cmd *cobra.Command, args []string) error {
	snapshot, err := loadSnapshot(cmd)
	if err != nil {
		return err
	}

	s, err := catalog.Find(snapshot, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if schemesJSON {
		return writeJSON(out, s)
	}
	printScheme(out, s)
	return nil
}

func runSchemesCheckLinks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot, err := a.snapshot(ctx)
	if err != nil {
		return err
	}

	checker := linkcheck.NewChecker(cfg.LinkCheck, cfg.Catalog.UserAgent, a.logger)
	results, err := checker.Check(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("check links: %w", err)
	}

	out := cmd.OutOrStdout()
	if schemesJSON {
		return writeJSON(out, results)
	}

	var broken, unofficial, blocked int
	for _, r := range results {
		switch {
		case r.Blocked:
			blocked++
			fmt.Fprintf(out, "⊘ %s %s (robots.txt)\n", r.SchemeID, r.URL)
		case !r.Accessible:
			broken++
			reason := r.Error
			if reason == "" {
				reason = fmt.Sprintf("status %d", r.StatusCode)
			}
			fmt.Fprintf(out, "✗ %s %s (%s)\n", r.SchemeID, r.URL, reason)
		default:
			fmt.Fprintf(out, "✓ %s %s\n", r.SchemeID, r.URL)
		}
		if r.RedirectURL != "" {
			fmt.Fprintf(out, "    → %s\n", r.RedirectURL)
		}
		if !r.Official && r.Source == linkcheck.SourceOfficial {
			unofficial++
			fmt.Fprintf(out, "    ⚠️  not on an official government domain\n")
		}
	}

	fmt.Fprintf(out, "\n%d links: %d broken, %d unofficial, %d blocked\n", len(results), broken, unofficial, blocked)
	if broken > 0 {
		return fmt.Errorf("%d broken links", broken)
	}
	return nil
}

func printScheme(w io.Writer, s model.SchemeWithRules) {
	fmt.Fprintf(w, "%s (%s)\n", s.Name, s.ID)
	fmt.Fprintln(w, strings.Repeat("─", len([]rune(s.Name))+len(s.ID)+3))

	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-13s %s\n", label+":", value)
		}
	}
	field("Type", string(s.StateType))
	field("Categories", strings.Join(s.Categories, ", "))
	field("States", strings.Join(s.ApplicableStates, ", "))
	field("Department", s.ImplementingDepartment)
	field("Apply", string(s.ApplicationMode))
	field("Helpline", s.HelplineNumber)
	field("Link", s.OfficialLink)

	for _, section := range []struct{ title, body string }{
		{"Summary", s.ShortDescription},
		{"Details", s.LongDescription},
		{"Benefits", s.Benefits},
	} {
		if text := catalog.PlainText(section.body); text != "" {
			fmt.Fprintf(w, "\n%s\n%s\n", section.title, text)
		}
	}

	var links []catalog.Link
	for _, body := range []string{s.LongDescription, s.Benefits} {
		links = append(links, catalog.Links(body, s.OfficialLink)...)
	}
	if len(links) > 0 {
		fmt.Fprintln(w, "\nLinks")
		for _, l := range links {
			if l.Text != "" {
				fmt.Fprintf(w, "  %s: %s\n", l.Text, l.URL)
			} else {
				fmt.Fprintf(w, "  %s\n", l.URL)
			}
		}
	}

	fmt.Fprintln(w, "\nEligibility")
	if len(s.Rules) == 0 {
		fmt.Fprintln(w, "  open to everyone")
		return
	}
	for i, r := range s.Rules {
		fmt.Fprintf(w, "  rule %d: %s\n", i+1, describeRule(r))
	}
}

// describeRule summarises the constrained axes of a rule
func describeRule(r model.EligibilityRule) string {
	var parts []string
	switch {
	case r.MinAge != nil && r.MaxAge != nil:
		parts = append(parts, fmt.Sprintf("age %d-%d", *r.MinAge, *r.MaxAge))
	case r.MinAge != nil:
		parts = append(parts, fmt.Sprintf("age %d+", *r.MinAge))
	case r.MaxAge != nil:
		parts = append(parts, fmt.Sprintf("age up to %d", *r.MaxAge))
	}
	if len(r.AllowedGenders) > 0 {
		parts = append(parts, "gender "+strings.Join(r.AllowedGenders, "/"))
	}
	if len(r.AllowedCategories) > 0 {
		parts = append(parts, "category "+strings.Join(r.AllowedCategories, "/"))
	}
	if r.IncomeMin != nil {
		parts = append(parts, fmt.Sprintf("income from ₹%.0f", *r.IncomeMin))
	}
	if r.IncomeMax != nil {
		parts = append(parts, fmt.Sprintf("income up to ₹%.0f", *r.IncomeMax))
	}
	if len(r.AllowedOccupations) > 0 {
		parts = append(parts, "occupation "+strings.Join(r.AllowedOccupations, "/"))
	}
	if r.RequiresFarmer || r.RequiresLandOwnership {
		parts = append(parts, "farmer or landowner")
	}
	if r.MinLandSize != nil {
		parts = append(parts, fmt.Sprintf("land from %g acres", *r.MinLandSize))
	}
	if r.MaxLandSize != nil {
		parts = append(parts, fmt.Sprintf("land up to %g acres", *r.MaxLandSize))
	}
	flags := []struct {
		on   bool
		text string
	}{
		{r.WidowOnly, "widows"},
		{r.StudentOnly, "students"},
		{r.RequiresDisability, "persons with disability"},
		{r.MinorityOnly, "minorities"},
		{r.BPLOnly, "below poverty line"},
	}
	for _, f := range flags {
		if f.on {
			parts = append(parts, f.text)
		}
	}
	if len(r.ApplicableStates) > 0 {
		parts = append(parts, "in "+strings.Join(r.ApplicableStates, "/"))
	}
	if len(r.ExcludedStates) > 0 {
		parts = append(parts, "not in "+strings.Join(r.ExcludedStates, "/"))
	}

	if len(parts) == 0 {
		return "anyone"
	}
	return strings.Join(parts, ", ")
}
