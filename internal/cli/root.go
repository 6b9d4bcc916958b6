package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/adhikaar/internal/model"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

var optionalKeys = []string{
	"llm.api_key", "llm.base_url", "llm.http_proxy", "llm.https_proxy", "llm.no_proxy",
	"catalog.path", "catalog.database_url", "catalog.supabase_url", "catalog.supabase_key",
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "adhikaar",
	Short: "Adhikaar - find government welfare schemes you may be eligible for",
	Long: `Adhikaar helps citizens discover government welfare schemes they may
qualify for.

It asks a few questions about age, gender, state, occupation and income,
then checks every active scheme in the catalog against its eligibility rules.

Results are indicative. Final eligibility is decided by the implementing
department.`,
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
	Long:  `Display the version number of Adhikaar.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "adhikaar %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.adhikaar/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().String("catalog", "", "scheme catalog file (sets catalog.source=file)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (console, json)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "disable the catalog cache")

	// Bind flags to viper
	_ = viper.BindPFlag("catalog.path", rootCmd.PersistentFlags().Lookup("catalog"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig seeds viper with the defaults, then layers the config file and
// ADHIKAAR_* environment variables on top
func initConfig() {
	viper.SetConfigType("yaml")
	defaults, err := yaml.Marshal(model.DefaultConfig())
	if err == nil {
		_ = viper.ReadConfig(bytes.NewReader(defaults))
	}
	// keys omitted from the defaults document still need to be known for
	// environment lookups
	for _, key := range optionalKeys {
		viper.SetDefault(key, "")
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".adhikaar"))
		viper.SetConfigName("config")
	}

	// ADHIKAAR_LLM_PROVIDER overrides llm.provider, etc.
	viper.SetEnvPrefix("ADHIKAAR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.MergeInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	} else if err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", cfgFile, err)
	}
}

// loadConfig resolves the effective configuration
func loadConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	if f := cmd.Flags().Lookup("catalog"); f != nil && f.Changed {
		cfg.Catalog.Source = "file"
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills connection settings from their conventional variables
func applyEnv(cfg *model.Config) {
	if cfg.Catalog.DatabaseURL == "" {
		cfg.Catalog.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.Catalog.SupabaseURL == "" {
		cfg.Catalog.SupabaseURL = os.Getenv("SUPABASE_URL")
	}
	if cfg.Catalog.SupabaseKey == "" {
		cfg.Catalog.SupabaseKey = os.Getenv("SUPABASE_ANON_KEY")
	}
}
