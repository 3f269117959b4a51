package merge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"stitch/internal/command"
	"stitch/internal/history"
	"stitch/internal/logging"
	"stitch/internal/notifications"
	"stitch/internal/prefs"
	"stitch/internal/retention"
)

// Admitter takes ownership of source files after a successful merge.
type Admitter interface {
	AdmitAll(srcs []string) retention.AdmitResult
}

// DefaultRevealTimeout bounds how long a file manager may take to open the
// merged output before the job completes without it.
const DefaultRevealTimeout = 5 * time.Second

// Revealer shows a file in the platform file manager.
type Revealer interface {
	Reveal(ctx context.Context, path string) error
}

// Recorder persists job outcomes.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Locker is held for the whole run so the segment list cannot change under
// the running tool.
type Locker interface {
	Lock()
	Unlock()
}

// Request describes one merge.
type Request struct {
	Folder        string
	Inputs        []string
	Output        string
	Program       string
	Shell         string
	PredictedSize int64
	Prefs         prefs.Snapshot
	Set           Locker
}

// Controller runs at most one merge at a time.
type Controller struct {
	runner    Runner
	notifier  notifications.Notifier
	revealer  Revealer
	revealFor time.Duration
	recorder  Recorder
	retention func(dir string) Admitter
	logger    *slog.Logger
	lockPath  string
	now       func() time.Time

	mu     sync.Mutex
	status Status
	active *activeJob
	last   *Job
}

type activeJob struct {
	job       *Job
	req       Request
	cancelled atomic.Bool
	closing   bool
	cancel    context.CancelFunc
	stop      func() bool
	flock     *flock.Flock
	done      chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier delivers lifecycle messages.
func WithNotifier(n notifications.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithRevealer reveals the output after a successful merge.
func WithRevealer(r Revealer) Option {
	return func(c *Controller) { c.revealer = r }
}

// WithRevealTimeout changes how long Reveal may block. Non-positive values
// keep DefaultRevealTimeout.
func WithRevealTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.revealFor = d
		}
	}
}

// WithRecorder records every finished job.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithRetention overrides how the retention store for a directory is built.
func WithRetention(factory func(dir string) Admitter) Option {
	return func(c *Controller) {
		if factory != nil {
			c.retention = factory
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInstanceLock makes Start also take an advisory file lock at path, so
// two processes cannot merge at once.
func WithInstanceLock(path string) Option {
	return func(c *Controller) { c.lockPath = path }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds an idle controller.
func New(runner Runner, opts ...Option) *Controller {
	c := &Controller{
		runner:    runner,
		notifier:  notifications.Noop(),
		logger:    logging.NewNop(),
		now:       time.Now,
		status:    StatusIdle,
		revealFor: DefaultRevealTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runner == nil {
		c.runner = NewExecRunner(0)
	}
	c.logger = logging.NewComponentLogger(c.logger, "merge")
	if c.retention == nil {
		logger := c.logger
		c.retention = func(dir string) Admitter {
			return retention.NewStore(dir, retention.WithLogger(logger))
		}
	}
	return c
}

// Status reports the current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Current returns a copy of the running job, or the last finished one.
func (c *Controller) Current() *Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked()
}

func (c *Controller) currentLocked() *Job {
	if c.active != nil {
		return c.active.job.clone()
	}
	return c.last.clone()
}

// Done is closed when the running job has fully finished. With no job
// running it is already closed.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return c.active.done
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Wait blocks until the running job finishes and returns it.
func (c *Controller) Wait(ctx context.Context) (*Job, error) {
	select {
	case <-c.Done():
		return c.Current(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Start validates req and launches the tool. Validation failures move the
// controller to StatusError without spawning anything. ErrBusy leaves the
// state untouched.
func (c *Controller) Start(ctx context.Context, req Request) (*Job, error) {
	c.mu.Lock()
	if c.status == StatusRunning {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	lock, err := c.acquireInstanceLock()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	job := &Job{
		ID:            uuid.NewString(),
		Folder:        req.Folder,
		Inputs:        append([]string(nil), req.Inputs...),
		Output:        req.Output,
		PredictedSize: req.PredictedSize,
		StartedAt:     c.now(),
		ExitCode:      -1,
	}
	parent := ctx
	ctx = logging.WithJobID(context.WithoutCancel(ctx), job.ID)

	if guardErr := c.validate(req); guardErr != nil {
		releaseInstanceLock(lock)
		return nil, c.failLocked(ctx, job, guardErr)
	}

	inv, err := command.Build(req.Program, req.Inputs, req.Output)
	if err != nil {
		releaseInstanceLock(lock)
		return nil, c.failLocked(ctx, job, err)
	}
	inv = inv.ViaShell(req.Shell)
	job.Invocation = inv

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	proc, err := c.runner.Start(runCtx, inv)
	if err != nil {
		cancel()
		releaseInstanceLock(lock)
		return nil, c.failLocked(ctx, job, &SpawnError{Program: inv.Program, Err: err})
	}

	if req.Set != nil {
		req.Set.Lock()
	}
	job.Status = StatusRunning
	a := &activeJob{job: job, req: req, cancel: cancel, flock: lock, done: make(chan struct{})}
	a.stop = context.AfterFunc(parent, func() { c.cancelJob(a) })
	c.status = StatusRunning
	c.active = a
	snapshot := job.clone()
	c.mu.Unlock()

	logging.WithContext(ctx, c.logger).InfoContext(ctx, "merge started",
		logging.Int("segments", len(job.Inputs)),
		logging.String("output", job.Output),
		logging.String("command", inv.String()),
		logging.Bytes("predicted_size", job.PredictedSize),
	)
	c.record(ctx, snapshot)
	go c.supervise(ctx, a, proc)
	return snapshot, nil
}

// Cancel asks the running tool to stop. It returns false when nothing is
// running or the job is already finishing.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	a := c.active
	c.mu.Unlock()
	if a == nil {
		return false
	}
	return c.cancelJob(a)
}

func (c *Controller) cancelJob(a *activeJob) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != a || a.closing {
		return false
	}
	if a.cancelled.Swap(true) {
		return true
	}
	a.cancel()
	c.logger.Info("cancel requested", logging.String(logging.FieldJobID, a.job.ID))
	return true
}

func (c *Controller) validate(req Request) error {
	if len(req.Inputs) == 0 {
		return ErrEmptyInput
	}
	if req.Output == "" {
		return command.ErrNoOutput
	}
	if _, err := os.Lstat(req.Output); err == nil {
		return &OutputCollisionError{Path: req.Output}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("check output %s: %w", req.Output, err)
	}
	return nil
}

// failLocked publishes a job that never ran. c.mu must be held; it is
// released before notifying.
func (c *Controller) failLocked(ctx context.Context, job *Job, err error) error {
	job.Status = StatusError
	job.Err = err
	job.FinishedAt = c.now()
	c.status = StatusError
	c.last = job
	snapshot := job.clone()
	c.mu.Unlock()

	logging.WarnWithContext(logging.WithContext(ctx, c.logger), "merge rejected", "merge_rejected",
		logging.Error(err),
		logging.String("output", job.Output),
		logging.String(logging.FieldErrorHint, rejectHint(err)),
	)
	c.notify(ctx, notifications.FailedMessage(err))
	c.record(ctx, snapshot)
	return err
}

func rejectHint(err error) string {
	var collision *OutputCollisionError
	var spawn *SpawnError
	switch {
	case errors.Is(err, ErrEmptyInput):
		return "add .flv segments to the folder or pick another folder"
	case errors.As(err, &collision):
		return "pass --name or --output-dir to write somewhere else"
	case errors.As(err, &spawn):
		return "install the merge tool or set merge.binary in the config"
	default:
		return "check the request and try again"
	}
}

func (c *Controller) supervise(ctx context.Context, a *activeJob, proc Process) {
	res := proc.Wait()
	a.stop()
	a.cancel()

	c.mu.Lock()
	a.closing = true
	cancelled := a.cancelled.Load()
	c.mu.Unlock()

	job := a.job.clone()
	job.FinishedAt = c.now()
	job.ExitCode = res.ExitCode
	logger := logging.WithContext(ctx, c.logger)

	var msg notifications.Message
	switch {
	case cancelled:
		job.Status = StatusIdle
		job.Cancelled = true
		msg = notifications.CancelledMessage(job.Output)
		logger.InfoContext(ctx, "merge cancelled", logging.Duration("elapsed", job.Duration()))
	case res.Success():
		job.Status = StatusSuccess
		if info, err := os.Stat(job.Output); err == nil {
			job.OutputSize = info.Size()
			job.OutputSizeKnown = true
		} else {
			logging.WarnWithContext(logger, "merged output not readable", "output_stat_failed",
				logging.Error(err),
				logging.String("output", job.Output),
				logging.String(logging.FieldImpact, "merged size is unknown"),
			)
		}
		if a.req.Prefs.DeleteSourcesAfterMerge {
			result := c.retention(a.req.Prefs.RetentionDir).AdmitAll(job.Inputs)
			job.Retention = &result
			for _, failure := range result.Errors {
				logging.WarnWithContext(logger, "source not moved to retention", "retention_move_failed",
					logging.Error(failure.Err),
					logging.String("source", failure.Path),
					logging.String(logging.FieldImpact, "source stays in the recording folder"),
				)
			}
		}
		if c.revealer != nil {
			revealCtx, cancel := context.WithTimeout(ctx, c.revealFor)
			if err := c.revealer.Reveal(revealCtx, job.Output); err != nil {
				logger.DebugContext(ctx, "reveal failed", logging.Error(err))
			}
			cancel()
		}
		size := ""
		if job.OutputSizeKnown {
			size = humanize.IBytes(uint64(job.OutputSize))
		}
		msg = notifications.SucceededMessage(job.Output, len(job.Inputs), size)
		logger.InfoContext(ctx, "merge finished",
			logging.Duration("elapsed", job.Duration()),
			logging.Bytes("output_size", job.OutputSize),
		)
	default:
		job.Status = StatusError
		job.Err = &ProcessError{Program: job.Invocation.Program, ExitCode: res.ExitCode, Stderr: res.Stderr, Err: res.Err}
		msg = notifications.FailedMessage(job.Err)
		logging.ErrorWithContext(logger, "merge failed", "merge_failed",
			logging.Error(job.Err),
			logging.Int("exit_code", res.ExitCode),
			logging.String(logging.FieldErrorHint, "inspect the segments; the stderr tail is in the job error"),
		)
	}

	c.mu.Lock()
	if c.active == a {
		c.status = job.Status
		c.active = nil
		c.last = job
	}
	c.mu.Unlock()
	if a.req.Set != nil {
		a.req.Set.Unlock()
	}
	releaseInstanceLock(a.flock)

	c.notify(ctx, msg)
	c.record(ctx, job)
	close(a.done)
}

func (c *Controller) notify(ctx context.Context, msg notifications.Message) {
	if err := c.notifier.Notify(ctx, msg); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "notification failed", "notify_failed",
			logging.Error(err),
			logging.String("event", string(msg.Event)),
			logging.String(logging.FieldImpact, "user was not alerted"),
		)
	}
}

func (c *Controller) record(ctx context.Context, job *Job) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, historyEntry(job)); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "history record failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job missing from history"),
		)
	}
}

func (c *Controller) acquireInstanceLock() (*flock.Flock, error) {
	if c.lockPath == "" {
		return nil, nil
	}
	lock := flock.New(c.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire merge lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return lock, nil
}

func releaseInstanceLock(lock *flock.Flock) {
	if lock != nil {
		_ = lock.Unlock()
	}
}

func historyEntry(job *Job) history.Entry {
	e := history.Entry{
		ID:             job.ID,
		Folder:         job.Folder,
		Inputs:         job.Inputs,
		Output:         job.Output,
		Status:         historyStatus(job),
		PredictedBytes: job.PredictedSize,
		StartedAt:      job.StartedAt,
	}
	if len(job.Invocation.Args) > 0 {
		e.Command = job.Invocation.String()
	}
	if job.Err != nil {
		e.Error = job.Err.Error()
	}
	if job.ExitCode >= 0 {
		code := job.ExitCode
		e.ExitCode = &code
	}
	if job.OutputSizeKnown {
		size := job.OutputSize
		e.OutputBytes = &size
	}
	if job.Retention != nil {
		e.RetainedCount = len(job.Retention.Moved)
		e.RetainFailures = len(job.Retention.Errors)
	}
	if !job.FinishedAt.IsZero() {
		finished := job.FinishedAt
		e.FinishedAt = &finished
	}
	return e
}

// History statuses.
const (
	HistoryRunning   = "running"
	HistorySucceeded = "succeeded"
	HistoryFailed    = "failed"
	HistoryCancelled = "cancelled"
)

func historyStatus(job *Job) string {
	switch {
	case job.Cancelled:
		return HistoryCancelled
	case job.Status == StatusRunning:
		return HistoryRunning
	case job.Status == StatusSuccess:
		return HistorySucceeded
	default:
		return HistoryFailed
	}
}
