package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codesift-sec/codesift/cmd/scan"
	"github.com/codesift-sec/codesift/cmd/version"
	"github.com/codesift-sec/codesift/pkg/shared/config"
	"github.com/codesift-sec/codesift/pkg/shared/logger"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "codesift [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Codesift scans source text for insecure coding patterns.",
		Long: `Codesift is a lightweight static scanner that flags insecure coding patterns:
	hardcoded secrets, SQL built from untrusted input, sensitive data flowing into
	logs, weak cryptographic primitives, destructive state mutations and hardcoded
	authorization checks.
	`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yml)")
	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(scan.ScanCmd)
}

func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		return 1
	}
	return 0
}

func initConfig() {
	var err error

	if cfgFile == "" {
		cfgFile = "config.yml"
	}
	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Printf("failed to initialize config - %v \n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	version.Init(AppConfig)
	scan.Init(AppConfig, logger.NewLogger(AppConfig, "core"))
}
