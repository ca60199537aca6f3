package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/provenly/signalguard/internal/config"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "signalguard",
	Short: "SignalGuard - evidence-based verification of business signals",
	Long: `SignalGuard verifies raw business signals (funding rounds, acquisitions,
hiring pushes, leadership changes) against independently collected evidence.

For each signal it gathers evidence from the source article, official company
pages, registries, and keyword search, extracts verifiable claims, checks them
against deterministic hard gates, and produces an overall verdict:
verified, watchlist, or discard.

SignalGuard reports how well a signal is supported; it does not decide what
is true.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("signalguard v0.2.1")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.signalguard/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.signalguard")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match SIGNALGUARD_*
	viper.SetEnvPrefix("SIGNALGUARD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig builds the effective weights document: file (if any) over
// defaults, then environment overrides for provider credentials.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if path := viper.ConfigFileUsed(); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if endpoint := viper.GetString("search_endpoint"); endpoint != "" {
		cfg.Search.Endpoint = endpoint
	}
	if key := viper.GetString("search_api_key"); key != "" {
		cfg.Search.APIKey = key
	}
	if endpoint := viper.GetString("scrape_endpoint"); endpoint != "" {
		cfg.Scrape.Endpoint = endpoint
	}
	if key := viper.GetString("scrape_api_key"); key != "" {
		cfg.Scrape.APIKey = key
	}
	return cfg, nil
}
