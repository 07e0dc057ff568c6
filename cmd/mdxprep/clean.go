package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/mdxprep/internal/doctree"
	"github.com/dgallion1/mdxprep/internal/fileset"
	"github.com/dgallion1/mdxprep/internal/pipeline"
	"github.com/dgallion1/mdxprep/internal/tagfix"
	"github.com/fatih/color"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

var errWouldChange = errors.New("some files need cleaning")

var (
	nameColor    = color.New(color.Bold)
	addColor     = color.New(color.FgGreen)
	delColor     = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	errColor     = color.New(color.FgRed, color.Bold)
	summaryColor = color.New(color.FgCyan)
)

var cleanCmd = &cobra.Command{
	Use:   "clean <dir>",
	Short: "Rewrite the Markdown files below a directory in place",
	Long: `Clean walks a directory for .md, .mdx and .markdown files and rewrites every
file whose text changes. Files that cannot be parsed are left untouched.

Examples:
  mdxprep clean ./docs
  mdxprep clean ./docs --optional-tags br,img,em --exclude 'drafts'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args[0], false)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <dir>",
	Short: "Show what clean would change without writing",
	Long: `Check runs the same passes as clean but prints a diff per file instead of
writing. It exits non-zero when any file would change.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args[0], true)
	},
}

func init() {
	addPolicyFlags(cleanCmd)
	addPolicyFlags(checkCmd)
	rootCmd.AddCommand(cleanCmd, checkCmd)
}

func runBatch(cmd *cobra.Command, dir string, dryRun bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	files := fileset.Dir{Root: dir, Exclude: cfg.Exclude}
	opts := pipeline.BatchOptions{
		Workers:          flagWorkers,
		DryRun:           dryRun,
		DropStrayClosing: cfg.DropStrayClosing,
	}
	report, err := pipeline.RunBatch(cmd.Context(), files, tagfix.NewPolicy(cfg.OptionalTags...), opts, cliLogger())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range report.Files {
		printFile(out, f)
	}

	verb := "rewritten"
	if dryRun {
		verb = "would change"
	}
	summaryColor.Fprintf(out, "%d files, %d %s, %d failed\n", len(report.Files), report.Changed, verb, report.Failed)

	switch {
	case report.Failed > 0:
		return fmt.Errorf("%d files failed", report.Failed)
	case dryRun && report.Changed > 0:
		return errWouldChange
	}
	return nil
}

func printFile(w io.Writer, f pipeline.FileReport) {
	if f.Error == "" && !f.Changed && len(f.Diagnostics) == 0 {
		return
	}
	nameColor.Fprintln(w, f.Name)
	if f.Error != "" {
		errColor.Fprintf(w, "  error: %s\n", f.Error)
	}
	for _, d := range f.Diagnostics {
		c := color.New(color.Reset)
		if d.Severity >= doctree.SeverityWarning {
			c = warnColor
		}
		c.Fprintf(w, "  %s\n", d)
	}
	printDiff(w, f.Diff)
}

func printDiff(w io.Writer, diffs []diffpatch.Diff) {
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			line = strings.TrimSuffix(line, "\n")
			switch d.Type {
			case diffpatch.DiffInsert:
				addColor.Fprintf(w, "  + %s\n", line)
			case diffpatch.DiffDelete:
				delColor.Fprintf(w, "  - %s\n", line)
			}
		}
	}
}
