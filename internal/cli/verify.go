package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/provenly/signalguard/internal/logging"
	"github.com/provenly/signalguard/internal/model"
	"github.com/provenly/signalguard/internal/pipeline"
)

var (
	verifyDomain     string
	verifySignalType string
	verifyDetails    string
	verifyURL        string
	verifyTitle      string
	verifySource     string
	verifyTimeout    time.Duration
	verifyOutJSON    string
	verifyNoCache    bool
	llmProvider      string
	llmModel         string
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <company>",
	Short: "Verify a single business signal against collected evidence",
	Long: `Verify gathers evidence for one signal, extracts its claims, checks the
hard gates for each claim type, and prints the full verification result
as JSON.

Example:
  signalguard verify "Acme Robotics" --signal-type funding \
    --details "Acme Robotics raised a $50M Series B" \
    --url https://news.example.com/acme-series-b --domain acme.com`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyDomain, "domain", "", "company website domain, if known")
	verifyCmd.Flags().StringVar(&verifySignalType, "signal-type", "other", "signal type (funding, acquisition, hiring, ...)")
	verifyCmd.Flags().StringVar(&verifyDetails, "details", "", "raw signal details")
	verifyCmd.Flags().StringVar(&verifyURL, "url", "", "source article URL")
	verifyCmd.Flags().StringVar(&verifyTitle, "title", "", "source article title")
	verifyCmd.Flags().StringVar(&verifySource, "source", "", "source feed name")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 3*time.Minute, "overall verification timeout")
	verifyCmd.Flags().StringVar(&verifyOutJSON, "json", "", "write result JSON to file instead of stdout")
	verifyCmd.Flags().BoolVar(&verifyNoCache, "no-cache", false, "disable caches (force fresh fetches)")

	verifyCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "override structured-completion provider (openai, anthropic)")
	verifyCmd.Flags().StringVar(&llmModel, "llm-model", "", "override completion model name")
}

func runVerify(cmd *cobra.Command, args []string) error {
	input := model.VerifySignalInput{
		Company: args[0],
		Domain:  verifyDomain,
		RawSignal: model.RawSignal{
			Type:    verifySignalType,
			Details: verifyDetails,
		},
		RSSItem: model.RSSItem{
			Title:      verifyTitle,
			Link:       verifyURL,
			SourceName: verifySource,
		},
	}

	p, err := buildPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	result := p.VerifySignal(ctx, input)
	return writeResultJSON(result, verifyOutJSON)
}

// buildPipeline assembles a pipeline from the effective config plus the
// verify-level flag overrides.
func buildPipeline() (*pipeline.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.APIKey = ""
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if verifyNoCache {
		cfg.Cache.Enabled = false
	}

	return pipeline.NewFromConfig(cfg, logging.New(verbose), nil)
}

func writeResultJSON(result *model.VerificationResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	}
	return nil
}
