package scan

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/codesift-sec/codesift/internal/rules"
	"github.com/codesift-sec/codesift/internal/scanner"
	"github.com/codesift-sec/codesift/pkg/shared"
	"github.com/codesift-sec/codesift/pkg/shared/config"
)

// RunOptionsScan holds the flag values of the scan command.
type RunOptionsScan struct {
	RuleIDs     []string
	RulesSource string
	Workers     int
	Format      string
	OutputPath  string
}

// Global variables for configuration and command arguments
var (
	AppConfig   *config.Config
	logger      hclog.Logger
	scanOptions RunOptionsScan

	exampleScanUsage = `  # Scan files and print findings as JSON
  codesift scan app.py handlers.js

  # Scan a directory tree and write a SARIF report
  codesift scan --format sarif --output report.sarif ./src

  # Restrict the run to particular rules
  codesift scan --rule hardcoded-secret-literal --rule weak-hash-algorithm ./src

  # Extend the built-in catalog with declarative rules
  codesift scan --rules-source ./rules.yml ./src`
)

// ScanCmd represents the command for the scan command.
var ScanCmd = &cobra.Command{
	Use:                   "scan [--format json|sarif] [--output/-o PATH] [--rule RULE_ID] [--rules-source REF] PATH [PATH...]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleScanUsage,
	Short:                 "Scan source files for insecure coding patterns",
	RunE:                  runScanCommand,
}

// Init initializes the global configuration variable and logger.
func Init(cfg *config.Config, l hclog.Logger) {
	AppConfig = cfg
	logger = l
}

func init() {
	ScanCmd.Flags().StringArrayVar(&scanOptions.RuleIDs, "rule", nil, "restrict the run to the given rule IDs")
	ScanCmd.Flags().StringVar(&scanOptions.RulesSource, "rules-source", "", "path or URL of a declarative rule file merged into the built-in catalog")
	ScanCmd.Flags().IntVarP(&scanOptions.Workers, "workers", "j", 0, "number of concurrent unit workers (default from config)")
	ScanCmd.Flags().StringVarP(&scanOptions.Format, "format", "f", FormatJSON, "report format: json or sarif")
	ScanCmd.Flags().StringVarP(&scanOptions.OutputPath, "output", "o", "", "write the report to a file instead of stdout")
}

func runScanCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	if err := validateScanArgs(&scanOptions, args); err != nil {
		logger.Error("invalid scan arguments", "error", err)
		return fmt.Errorf("invalid scan arguments: %w", err)
	}

	catalog, err := buildCatalog(&scanOptions)
	if err != nil {
		logger.Error("failed to build rule catalog", "error", err)
		return err
	}

	units, err := collectUnits(args)
	if err != nil {
		logger.Error("failed to collect scan targets", "error", err)
		return fmt.Errorf("failed to collect scan targets: %w", err)
	}
	if len(units) == 0 {
		return fmt.Errorf("no scannable files found under the given paths")
	}

	workers := scanOptions.Workers
	if workers == 0 {
		workers = config.Workers(AppConfig)
	}

	s := scanner.New(catalog, workers, logger)
	report, err := s.Scan(cmd.Context(), scanner.Request{
		Units:   units,
		RuleIDs: scanOptions.RuleIDs,
	})
	if err != nil {
		logger.Error("scan failed", "error", err)
		return err
	}

	if err := writeReport(&scanOptions, report, catalog); err != nil {
		logger.Error("failed to write report", "error", err)
		return err
	}

	logger.Info("scan completed",
		"findings", len(report.Findings),
		"units_scanned", report.UnitsScanned,
		"units_failed", report.UnitsFailed)
	return nil
}

// buildCatalog assembles the rule catalog for this run: the built-in rules,
// optionally extended with declarative definitions from a file or URL. A
// broken rule source aborts the run before any unit is scanned.
func buildCatalog(options *RunOptionsScan) (*rules.Catalog, error) {
	catalog := rules.Default()

	sourceRef := options.RulesSource
	if sourceRef == "" && AppConfig != nil {
		sourceRef = AppConfig.Rules.Source
	}
	if sourceRef == "" {
		return catalog, nil
	}

	extra, err := rules.LoadDefinitions(sourceRef, logger, AppConfig)
	if err != nil {
		return nil, err
	}
	return catalog.Merge(extra)
}
