package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateScanArgs(t *testing.T) {
	testCases := []struct {
		name    string
		options RunOptionsScan
		args    []string
		wantErr string
	}{
		{
			name:    "json to stdout",
			options: RunOptionsScan{Format: FormatJSON},
			args:    []string{"app.py"},
		},
		{
			name:    "sarif with output",
			options: RunOptionsScan{Format: FormatSARIF, OutputPath: "report.sarif"},
			args:    []string{"src"},
		},
		{
			name:    "no targets",
			options: RunOptionsScan{Format: FormatJSON},
			wantErr: "at least one file or directory",
		},
		{
			name:    "unknown format",
			options: RunOptionsScan{Format: "xml"},
			args:    []string{"app.py"},
			wantErr: "unsupported report format",
		},
		{
			name:    "negative workers",
			options: RunOptionsScan{Format: FormatJSON, Workers: -2},
			args:    []string{"app.py"},
			wantErr: "workers",
		},
		{
			name:    "sarif without output",
			options: RunOptionsScan{Format: FormatSARIF},
			args:    []string{"app.py"},
			wantErr: "output",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateScanArgs(&tc.options, tc.args)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}
