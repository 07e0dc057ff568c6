package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/dgallion1/mdxprep/internal/doctree"
	"github.com/dgallion1/mdxprep/internal/parser"
	"github.com/dgallion1/mdxprep/internal/tagfix"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/sync/errgroup"
)

// Files is the file collaborator a batch reads from and writes to.
type Files interface {
	List(ctx context.Context) ([]string, error)
	Read(name string) (string, error)
	Write(name, text string) error
}

// BatchOptions configure RunBatch.
type BatchOptions struct {
	// Workers bounds the documents processed at once. Zero means GOMAXPROCS.
	Workers int
	// DryRun computes diffs instead of writing files.
	DryRun           bool
	DropStrayClosing bool
}

// FileReport is the outcome for one file of a batch.
type FileReport struct {
	Name        string               `json:"name"`
	Changed     bool                 `json:"changed"`
	Written     bool                 `json:"written"`
	Diagnostics []doctree.Diagnostic `json:"diagnostics,omitempty"`
	Error       string               `json:"error,omitempty"`
	// ParseFailure is set when the file could not be parsed; it is left
	// untouched.
	ParseFailure bool             `json:"parse_failure,omitempty"`
	Diff         []diffpatch.Diff `json:"-"`
	Duration     time.Duration    `json:"duration"`
}

// BatchReport summarizes a batch. Failed files never stop the others.
type BatchReport struct {
	Files   []FileReport `json:"files"`
	Changed int          `json:"changed"`
	Failed  int          `json:"failed"`
}

// RunBatch processes every file the collaborator lists. A failure is
// recorded on its file and processing continues; only listing errors and
// cancellation end the batch early.
func RunBatch(ctx context.Context, files Files, policy tagfix.Policy, opts BatchOptions, log *slog.Logger) (BatchReport, error) {
	names, err := files.List(ctx)
	if err != nil {
		return BatchReport{}, fmt.Errorf("list files: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Each goroutine owns one slot, so no lock is needed.
	reports := make([]FileReport, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(workers, len(names))))
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = processFile(files, name, policy, opts, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchReport{}, err
	}

	report := BatchReport{Files: reports}
	for _, r := range reports {
		if r.Error != "" {
			report.Failed++
		}
		if r.Changed {
			report.Changed++
		}
	}
	return report, nil
}

func processFile(files Files, name string, policy tagfix.Policy, opts BatchOptions, log *slog.Logger) (r FileReport) {
	start := time.Now()
	r.Name = name
	defer func() { r.Duration = time.Since(start) }()
	log = log.With("file", name)

	text, err := files.Read(name)
	if err != nil {
		log.Error("read failed", "error", err)
		r.Error = err.Error()
		return r
	}

	res, err := Process(text, policy, WithDropStrayClosing(opts.DropStrayClosing))
	if err != nil {
		r.ParseFailure = errors.Is(err, parser.ErrParse)
		if r.ParseFailure {
			log.Warn("parse failed, leaving file untouched", "error", err)
		} else {
			log.Error("processing failed", "error", err)
		}
		r.Error = err.Error()
		return r
	}
	r.Diagnostics = res.Diagnostics
	r.Changed = res.Changed
	for _, d := range res.Diagnostics {
		log.Debug("diagnostic", "pos", d.Pos.String(), "severity", d.Severity.String(), "message", d.Message)
	}
	if !res.Changed {
		return r
	}

	if opts.DryRun {
		r.Diff = LineDiff(text, res.Text)
		return r
	}
	if err := files.Write(name, res.Text); err != nil {
		log.Error("write failed", "error", err)
		r.Error = err.Error()
		return r
	}
	r.Written = true
	log.Info("rewrote file", "diagnostics", len(res.Diagnostics))
	return r
}

// LineDiff returns a line-level diff of two texts.
func LineDiff(from, to string) []diffpatch.Diff {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffMain(a, b, false)
	return dmp.DiffCharsToLines(diffs, lines)
}
