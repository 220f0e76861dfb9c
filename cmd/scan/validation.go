package scan

import (
	"fmt"
)

// Report format constants
const (
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// validateScanArgs validates the arguments provided to the scan command.
func validateScanArgs(options *RunOptionsScan, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("at least one file or directory to scan must be specified")
	}

	if options.Format != FormatJSON && options.Format != FormatSARIF {
		return fmt.Errorf("unsupported report format %q, expected %q or %q", options.Format, FormatJSON, FormatSARIF)
	}

	if options.Workers < 0 {
		return fmt.Errorf("the 'workers' flag must not be negative")
	}

	if options.Format == FormatSARIF && options.OutputPath == "" {
		return fmt.Errorf("the 'output' flag must be specified for SARIF reports")
	}

	return nil
}
