package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goickb/internal/config"
	"github.com/LeJamon/goickb/internal/di"
)

var (
	// Global flags
	configFile string
	debugLog   bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ickbd",
	Short: "ickbd - iCKB matching bot for Nervos CKB",
	Long: `ickbd keeps a wallet's iCKB and CKB balanced by matching limit orders,
depositing CKB into the iCKB pool and withdrawing from it.

Configuration is read from a TOML file (--conf) and ICKBD_ environment
variables, for example ICKBD_BOT_PRIVATE_KEY.`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", config.DefaultConfigPaths().Main, "configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress informational output")
}

// loadConfig reads the configuration named by --conf and applies the
// logging flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(config.ConfigPaths{Main: configFile})
	if err != nil {
		return nil, err
	}
	if debugLog {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newProvider loads the configuration and registers every service. The
// caller must Close the returned container.
func newProvider() (*di.Provider, *di.Container, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	c := di.New()
	p := di.NewProvider(c, cfg)
	if err := p.RegisterAll(); err != nil {
		return nil, nil, err
	}
	return p, c, nil
}

// infof prints unless --quiet is set.
func infof(cmd *cobra.Command, format string, args ...interface{}) {
	if quiet {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	if !strings.HasSuffix(format, "\n") {
		fmt.Fprintln(cmd.OutOrStdout())
	}
}
