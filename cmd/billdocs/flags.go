package main

import (
	"fmt"

	flag "github.com/spf13/pflag"
)

// cliFlags holds all parsed command-line flags.
type cliFlags struct {
	input      string
	outputDir  string
	mergedPath string
	config     string
	notes      string
	allowNoBQ  bool
	validate   bool
	workers    int
	quiet      bool
	verbose    bool
	version    bool
}

// parseFlags parses args (excluding the program name) into cliFlags.
func parseFlags(args []string) (*cliFlags, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("billdocs", flag.ContinueOnError)
	f := &cliFlags{}

	fs.StringVarP(&f.input, "input", "i", "", "input workbook (.xlsx)")
	fs.StringVarP(&f.outputDir, "output", "o", ".", "output directory for per-document PDFs")
	fs.StringVarP(&f.mergedPath, "merged", "m", "", "write a combined PDF to this path")
	fs.StringVarP(&f.config, "config", "c", "", "YAML config file or name")
	fs.StringVar(&f.notes, "notes", "", "Markdown file for the Note Sheet body")
	fs.BoolVar(&f.allowNoBQ, "allow-missing-bq", false, "substitute Work Order data when the Bill Quantity sheet is absent")
	fs.BoolVar(&f.validate, "validate-only", false, "normalize and validate the workbook without generating PDFs")
	fs.IntVarP(&f.workers, "workers", "w", 0, "service pool size (0 = auto)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "suppress progress output")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "verbose output")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: billdocs -i <workbook.xlsx> [flags]\n\nFlags:\n%s", fs.FlagUsages())
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, fs, err
	}
	return f, fs, nil
}
