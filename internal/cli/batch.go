package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/provenly/signalguard/internal/worker"
)

var (
	batchConcurrency int
	batchTimeout     time.Duration
	batchOutJSON     string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <signals.jsonl>",
	Short: "Verify many signals from a JSONL file concurrently",
	Long: `Batch reads one VerifySignalInput JSON object per line and verifies each
signal on a bounded worker pool. Results are written as JSONL in input
order.

Example:
  signalguard batch signals.jsonl --concurrency 4 --out results.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 3, "number of signals verified in parallel")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "overall batch timeout")
	batchCmd.Flags().StringVar(&batchOutJSON, "out", "", "output JSONL path (default stdout)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	processor := worker.NewBatchProcessor(p, batchConcurrency)
	results, err := processor.ProcessFile(ctx, args[0])
	if err != nil {
		return err
	}

	out := os.Stdout
	if batchOutJSON != "" {
		f, err := os.Create(batchOutJSON)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	w := bufio.NewWriter(out)
	defer func() { _ = w.Flush() }()

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "skipped: %v\n", r.Error)
			continue
		}
		line, err := json.Marshal(r.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Verified %d signal(s), %d skipped\n", len(results)-failed, failed)
	}
	return nil
}
