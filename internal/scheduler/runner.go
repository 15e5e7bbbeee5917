package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// RescanFunc runs one discovery pass and reports how many speakers it saw.
type RescanFunc func(ctx context.Context) (int, int64, error)

// Runner periodically rescans the network on a cron schedule so the
// registry tracks speakers that move IP or power-cycle.
type Runner struct {
	logger  *log.Logger
	rescan  RescanFunc
	timeout time.Duration
	cron    *cron.Cron
	entry   cron.EntryID
}

func NewRunner(logger *log.Logger, rescan RescanFunc, timeout time.Duration) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		logger:  logger,
		rescan:  rescan,
		timeout: timeout,
		cron:    cron.New(),
	}
}

// Start schedules rescans with a standard 5-field cron spec. An empty spec
// disables periodic rescans.
func (r *Runner) Start(spec string) error {
	if spec == "" {
		r.logger.Print("Periodic rescan disabled")
		return nil
	}

	entry, err := r.cron.AddFunc(spec, r.runOnce)
	if err != nil {
		return err
	}
	r.entry = entry
	r.cron.Start()
	r.logger.Printf("Periodic rescan scheduled spec=%q", spec)
	return nil
}

// Stop halts the schedule, waiting for an in-flight rescan to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// NextRun reports when the next rescan fires, zero when disabled.
func (r *Runner) NextRun() time.Time {
	if r.entry == 0 {
		return time.Time{}
	}
	return r.cron.Entry(r.entry).Next
}

func (r *Runner) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	found, durationMs, err := r.rescan(ctx)
	if err != nil {
		r.logger.Printf("Scheduled rescan failed: %v", err)
		return
	}
	r.logger.Printf("Scheduled rescan complete found=%d duration_ms=%d", found, durationMs)
}
