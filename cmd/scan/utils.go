package scan

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codesift-sec/codesift/internal/rules"
	"github.com/codesift-sec/codesift/internal/sarifreport"
	"github.com/codesift-sec/codesift/internal/scanner"
	"github.com/codesift-sec/codesift/pkg/shared/files"
)

// languageByExtension maps file extensions to the language hint the parser
// dialects key on. Anything else is scanned with generic handling.
var languageByExtension = map[string]string{
	".py":  "python",
	".pyw": "python",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".ts":  "javascript",
	".tsx": "javascript",
}

// scannableExtensions lists extensions picked up during directory walks in
// addition to the dialect-mapped ones.
var scannableExtensions = map[string]bool{
	".go":   true,
	".rb":   true,
	".php":  true,
	".java": true,
	".cs":   true,
	".sql":  true,
}

// collectUnits expands the given paths into scan units. Files are taken as
// given; directories are walked recursively, keeping only known source
// extensions. Unit IDs are the (slash-separated) paths, so reports stay
// stable across platforms.
func collectUnits(paths []string) ([]scanner.UnitInput, error) {
	var targets []string
	for _, path := range paths {
		expanded, err := files.ExpandPath(path)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			return nil, fmt.Errorf("cannot access %q: %w", path, err)
		}
		if !info.IsDir() {
			targets = append(targets, expanded)
			continue
		}
		err = filepath.WalkDir(expanded, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && p != expanded {
					return filepath.SkipDir
				}
				return nil
			}
			ext := strings.ToLower(filepath.Ext(p))
			if _, ok := languageByExtension[ext]; ok || scannableExtensions[ext] {
				targets = append(targets, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %q: %w", path, err)
		}
	}
	sort.Strings(targets)

	units := make([]scanner.UnitInput, 0, len(targets))
	for _, target := range targets {
		content, err := files.ReadFileString(target)
		if err != nil {
			return nil, err
		}
		units = append(units, scanner.UnitInput{
			ID:       filepath.ToSlash(target),
			Language: detectLanguage(target),
			Content:  content,
		})
	}
	return units, nil
}

// detectLanguage maps a file path to a parser language hint.
func detectLanguage(path string) string {
	if lang, ok := languageByExtension[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "generic"
}

// writeReport renders the scan report in the requested format, to a file when
// an output path is set and to stdout otherwise.
func writeReport(options *RunOptionsScan, report *scanner.Report, catalog *rules.Catalog) error {
	if options.Format == FormatSARIF {
		return sarifreport.WriteFile(options.OutputPath, report, catalog)
	}

	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return fmt.Errorf("error marshaling the report: %w", err)
	}
	if options.OutputPath == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(options.OutputPath, append(data, '\n'), 0644)
}
