// Command validate checks every message catalog in a directory. A catalog is
// valid when, merged over the built-in texts, every text is present and each
// format string takes exactly the arguments it is rendered with. Files that
// share a catalog id are reported too, since only the first one is ever loaded.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/gridsnake/game/config"
)

// ValidationResult captures the outcome of validating a single file
type ValidationResult struct {
	File   string
	Name   string
	Valid  bool
	Errors []string
}

// validateCatalog parses one catalog file and lists every problem found
func validateCatalog(path string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	c, err := config.ParseFile(path)
	if err != nil {
		result.Valid = false
		var merr *multierror.Error
		if errors.As(err, &merr) {
			for _, e := range merr.Errors {
				result.Errors = append(result.Errors, e.Error())
			}
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
		return result
	}

	result.Name = c.Name
	return result
}

// catalogFiles lists the catalog files of dir, sorted by name
func catalogFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// shadowed reports catalog ids provided by more than one file
func shadowed(files []string) []string {
	byID := make(map[string][]string)
	for _, f := range files {
		base := filepath.Base(f)
		id := strings.TrimSuffix(base, filepath.Ext(base))
		byID[id] = append(byID[id], base)
	}

	var out []string
	for id, names := range byID {
		if len(names) > 1 {
			out = append(out, fmt.Sprintf("catalog %q is defined by %s", id, strings.Join(names, ", ")))
		}
	}
	sort.Strings(out)
	return out
}

// validateDir prints a report for dir and reports whether every catalog is valid
func validateDir(w io.Writer, dir string) (bool, error) {
	files, err := catalogFiles(dir)
	if err != nil {
		return false, fmt.Errorf("error finding catalog files: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintf(w, "No catalogs found in %s\n", dir)
		return true, nil
	}

	allValid := true
	for _, file := range files {
		result := validateCatalog(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Fprintf(w, "VALID (%s)\n", result.Name)
			continue
		}

		fmt.Fprintln(w, "INVALID")
		allValid = false
		for _, e := range result.Errors {
			fmt.Fprintln(w, "  - "+e)
		}
	}

	if dups := shadowed(files); len(dups) > 0 {
		allValid = false
		fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
		for _, d := range dups {
			fmt.Fprintln(w, "DUPLICATE "+d)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "All catalogs are valid!")
	} else {
		fmt.Fprintln(w, "Some catalogs have errors")
	}
	return allValid, nil
}

func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "Validate Grid Snake message catalogs",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "catalogs",
				Usage:   "Directory of message catalogs",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("config-dir")
			if cmd.Args().Present() {
				dir = cmd.Args().First()
			}

			ok, err := validateDir(os.Stdout, dir)
			if err != nil {
				return err
			}
			if !ok {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
