package refresher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sitemanager/core-go/internal/metrics"
	"sitemanager/core-go/internal/sqlcgen"
	"sitemanager/core-go/internal/tree"
)

// Dataset names accepted by storage.
const (
	DatasetTree    = "tree"
	DatasetDevices = "devices"
)

// Refresh outcomes reported to metrics.
const (
	OutcomeOK            = "ok"
	OutcomeUnchanged     = "unchanged"
	OutcomeStorageError  = "storage_error"
	OutcomePipelineError = "pipeline_error"
)

// Queries is the minimal DB interface the refresher needs. *sqlcgen.Queries satisfies it.
type Queries interface {
	ListDatasets(ctx context.Context) ([]sqlcgen.Dataset, error)
}

// Snapshot is one processed view of the stored datasets. Snapshots are never mutated after
// they are published; readers must not modify Nodes.
type Snapshot struct {
	Revision   uuid.UUID
	Nodes      []*tree.Node
	Counts     tree.AlarmCounts
	ComputedAt time.Time
}

type Worker struct {
	log          zerolog.Logger
	q            Queries
	proc         *tree.Processor
	pollInterval time.Duration
	metrics      *metrics.Metrics
	now          func() time.Time

	mu     sync.Mutex
	inputs string
	latest atomic.Pointer[Snapshot]
}

type Options struct {
	PollInterval time.Duration
}

func New(log zerolog.Logger, q Queries, proc *tree.Processor, opts Options, m *metrics.Metrics) *Worker {
	pi := opts.PollInterval
	if pi <= 0 {
		pi = 30 * time.Second
	}
	if proc == nil {
		proc = tree.NewProcessor(log, nil, m)
	}
	return &Worker{
		log:          log,
		q:            q,
		proc:         proc,
		pollInterval: pi,
		metrics:      m,
		now:          time.Now,
	}
}

// Latest returns the most recently published snapshot, or nil before the first refresh.
func (w *Worker) Latest() *Snapshot {
	if w == nil {
		return nil
	}
	return w.latest.Load()
}

// RefreshNow recomputes the snapshot immediately. Dataset writers call it so that readers
// observe their change without waiting for the next poll.
func (w *Worker) RefreshNow(ctx context.Context) error {
	if w == nil || w.q == nil {
		return nil
	}
	_, err := w.runOnce(ctx)
	return err
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.q == nil {
		return
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	var consecutiveFailures int
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if _, err := w.runOnce(ctx); err != nil {
			consecutiveFailures++
		} else {
			consecutiveFailures = 0
		}

		timer.Reset(backoffDuration(w.pollInterval, consecutiveFailures))
	}
}

func backoffDuration(base time.Duration, failures int) time.Duration {
	if base <= 0 {
		base = 30 * time.Second
	}
	if failures <= 0 {
		return base
	}

	if failures > 6 {
		failures = 6
	}
	d := base * time.Duration(1<<failures)
	if d > 2*time.Minute {
		return 2 * time.Minute
	}
	return d
}

// runOnce reads the datasets and publishes a new snapshot when they changed since the last
// publication. It reports whether a snapshot was published.
func (w *Worker) runOnce(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rows, err := w.q.ListDatasets(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("refresher failed to list datasets")
		w.metrics.IncRefreshRun(OutcomeStorageError)
		return false, err
	}

	var treeJSON, devicesJSON string
	for _, row := range rows {
		switch row.Name {
		case DatasetTree:
			treeJSON = row.Body
		case DatasetDevices:
			devicesJSON = row.Body
		}
	}

	inputs := treeJSON + "\x00" + devicesJSON
	if w.latest.Load() != nil && inputs == w.inputs {
		w.metrics.IncRefreshRun(OutcomeUnchanged)
		return false, nil
	}

	outcome := OutcomeOK
	nodes, err := w.proc.Process(treeJSON, devicesJSON)
	if err != nil {
		// Stored datasets are served fail-soft: a broken tree reads as empty until fixed.
		w.log.Error().Err(err).Msg("refresher pipeline failed; publishing empty tree")
		nodes = []*tree.Node{}
		outcome = OutcomePipelineError
	}

	snap := &Snapshot{
		Revision:   uuid.New(),
		Nodes:      nodes,
		Counts:     tree.CountAlarms(nodes),
		ComputedAt: w.now().UTC(),
	}
	w.inputs = inputs
	w.latest.Store(snap)

	w.metrics.IncRefreshRun(outcome)
	w.metrics.SetAlarmCounts(snap.Counts)
	w.log.Debug().
		Str("revision", snap.Revision.String()).
		Int("nodes", tree.Count(nodes)).
		Int("alarms", snap.Counts.Total).
		Msg("snapshot refreshed")
	return true, nil
}
