package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Worker processes the documents of one job at a time.
type Worker struct {
	stats *Stats
	log   *slog.Logger
}

func NewWorker(stats *Stats, log *slog.Logger) *Worker {
	return &Worker{stats: stats, log: log}
}

// Process cleans every document of job. Documents are independent: a
// failure is recorded on its result and the rest still run.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	job.SetStatus(StatusProcessing, "cleaning")

	docs := job.Documents()
	failed := 0
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			log.Warn("job cancelled", "processed", i, "total", len(docs))
			job.AddError(err.Error())
			job.SetStatus(StatusFailed, "cancelled")
			return
		}

		res := w.processDocument(job, doc)
		if res.Error != "" {
			failed++
			log.Error("document failed", "name", doc.Name, "error", res.Error)
			job.AddError(doc.Name + ": " + res.Error)
		}
		job.SetResult(i, res)
	}

	log.Info("job complete", "documents", len(docs), "failed", failed)
	switch {
	case failed == 0:
		job.SetStatus(StatusCompleted, "done")
	case failed < len(docs):
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusFailed, "done")
	}
}

func (w *Worker) processDocument(job *Job, doc Document) DocumentResult {
	start := time.Now()
	r := DocumentResult{Name: doc.Name}

	res, err := Process(doc.Text, job.policy, job.opts...)
	if err != nil {
		w.stats.Record(time.Since(start), OutcomeFailed)
		r.Error = err.Error()
		return r
	}

	outcome := OutcomeUnchanged
	if res.Changed {
		outcome = OutcomeChanged
	}
	w.stats.Record(time.Since(start), outcome)

	r.Text = res.Text
	r.Changed = res.Changed
	r.ContentHash = ContentHashHex([]byte(res.Text))
	r.Diagnostics = res.Diagnostics
	return r
}
