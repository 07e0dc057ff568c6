package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/mdxprep/internal/config"
	"github.com/spf13/cobra"
)

// Flag variables shared by the commands.
var (
	flagConfig       string
	flagVerbose      bool
	flagOptionalTags []string
	flagWorkers      int
	flagDropStray    bool
	flagExclude      []string
)

var rootCmd = &cobra.Command{
	Use:   "mdxprep",
	Short: "mdxprep: prepare Markdown with embedded HTML/JSX for MDX compilers",
	Long: `mdxprep rewrites Markdown files that mix raw HTML or JSX tags with Markdown
so that a JSX-aware renderer can compile them: block-level tags get blank
lines around them, optional tags are converted to Markdown, and unclosed
tags are closed.

Usage:
  mdxprep clean <dir> [flags]
  mdxprep check <dir> [flags]
  mdxprep serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug output")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// addPolicyFlags registers the flags that tune a run over files.
func addPolicyFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&flagOptionalTags, "optional-tags", nil, "Tags that may be converted to Markdown (e.g. br,img,em)")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "Files processed in parallel (default: number of CPUs)")
	cmd.Flags().BoolVar(&flagDropStray, "drop-stray", false, "Remove every closing tag without an opening tag")
	cmd.Flags().StringSliceVar(&flagExclude, "exclude", nil, "Glob patterns of files or directories to skip")
}

// loadConfig reads the environment, then the config file, then flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Load()
	if flagConfig != "" {
		if err := config.LoadFile(flagConfig, &cfg); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("optional-tags") {
		cfg.OptionalTags = flagOptionalTags
	}
	if flags.Changed("drop-stray") {
		cfg.DropStrayClosing = flagDropStray
	}
	if flags.Changed("exclude") {
		cfg.Exclude = flagExclude
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func cliLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
