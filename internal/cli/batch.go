package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/adhikaar/internal/worker"
)

var (
	concurrency  int
	batchOutput  string
	batchExplain bool
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Evaluate many profiles from a file in parallel",
	Long: `Batch evaluates a file of profiles against one catalog snapshot:
- Read profiles from a YAML list or JSON lines (one object per line)
- Load the catalog once and share it between workers
- Evaluate profiles concurrently with a configurable worker count
- Write one JSON line per profile, in input order

Example:
  adhikaar batch profiles.yaml
  adhikaar batch profiles.jsonl --concurrency 8 --output results.jsonl
  adhikaar batch profiles.yaml --explain`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "output file (default: stdout)")
	batchCmd.Flags().BoolVar(&batchExplain, "explain", false, "include per-scheme assessments")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	file := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	workers := cfg.Concurrency.Workers
	if cmd.Flags().Changed("concurrency") {
		workers = concurrency
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Adhikaar Batch Evaluation\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(os.Stderr, "⚙️  Reading profiles from file...\n")
	records, err := worker.ReadProfilesFromFile(file)
	if err != nil {
		return fmt.Errorf("read profiles: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d profiles\n", len(records))
	for _, rec := range records {
		if len(rec.Dropped) > 0 {
			fmt.Fprintf(os.Stderr, "⚠️  %s: ignored invalid fields %s\n", rec.ID, strings.Join(rec.Dropped, ", "))
		}
	}

	fmt.Fprintf(os.Stderr, "⚙️  Loading catalog from %s...\n", a.catalog.Name())
	snapshot, err := a.snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d schemes\n", len(snapshot))
	fmt.Fprintf(os.Stderr, "\n")

	var out io.Writer = cmd.OutOrStdout()
	if batchOutput != "" {
		f, createErr := os.Create(batchOutput)
		if createErr != nil {
			return fmt.Errorf("create output file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output file: %w", closeErr)
			}
		}()
		out = f
	}

	started := time.Now()
	evaluator := worker.NewBatchEvaluator(nil, workers, batchExplain)
	results := evaluator.Evaluate(ctx, snapshot, records)

	successCount := 0
	failureCount := 0
	matched := 0

	enc := json.NewEncoder(out)
	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.ID, result.Error)
			continue
		}
		successCount++
		if len(result.Eligible) > 0 {
			matched++
		}
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("write result %s: %w", result.ID, err)
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:      %d profiles\n", len(results))
	fmt.Fprintf(os.Stderr, "  Evaluated:  %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Matched:    %d\n", matched)
	fmt.Fprintf(os.Stderr, "  Failures:   %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Duration:   %v\n", time.Since(started).Round(time.Millisecond))
	if batchOutput != "" {
		fmt.Fprintf(os.Stderr, "  Output:     %s\n", batchOutput)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d profiles failed", failureCount, len(results))
	}
	return nil
}
