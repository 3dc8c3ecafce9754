// Package schedule runs catalog commands on cron schedules. Each firing
// resolves the command afresh; failures are logged and never retried.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/kingrea/apiprobe/internal/catalog"
	"github.com/kingrea/apiprobe/internal/config"
	"github.com/kingrea/apiprobe/internal/invoke"
)

// Dispatcher sends one command. *invoke.Invoker implements it.
type Dispatcher interface {
	Invoke(ctx context.Context, categoryKey, apiName string) (invoke.Result, error)
}

// Logger matches logging.Logger.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// JobStatus reports the state of a registered job.
type JobStatus struct {
	config.ScheduleConfig
	Runs      int
	Failures  int
	LastRun   time.Time
	LastError string
	Next      time.Time
}

type job struct {
	cfg    config.ScheduleConfig
	entry  rcron.EntryID
	status JobStatus
}

// Runner owns a cron scheduler and the jobs registered on it.
type Runner struct {
	dispatcher Dispatcher
	catalog    *catalog.Catalog
	logger     Logger
	clock      func() time.Time
	cron       *rcron.Cron
	parser     rcron.Parser

	mu      sync.Mutex
	jobs    map[string]*job
	order   []string
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger records firings and failures.
func WithLogger(l Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock controls the LastRun timestamps.
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// New returns a Runner that validates jobs against cat and fires them through d.
func New(cat *catalog.Catalog, d Dispatcher, opts ...Option) *Runner {
	r := &Runner{
		dispatcher: d,
		catalog:    cat,
		logger:     nopLogger{},
		clock:      time.Now,
		parser:     rcron.NewParser(rcron.Minute | rcron.Hour | rcron.Dom | rcron.Month | rcron.Dow | rcron.Descriptor),
		jobs:       map[string]*job{},
		ctx:        context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.cron = rcron.New(rcron.WithParser(r.parser))
	return r
}

// Validate checks a schedule's cron spec and that its command exists.
func (r *Runner) Validate(cfg config.ScheduleConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return errors.New("schedule: name is required")
	}
	if _, err := r.parser.Parse(cfg.Spec); err != nil {
		return fmt.Errorf("schedule %s: invalid spec %q: %w", cfg.Name, cfg.Spec, err)
	}
	if _, err := r.catalog.FindAPI(cfg.Category, cfg.API); err != nil {
		return fmt.Errorf("schedule %s: %w", cfg.Name, err)
	}
	return nil
}

// Add registers a job. It can be called before or after Start.
func (r *Runner) Add(cfg config.ScheduleConfig) error {
	if err := r.Validate(cfg); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[cfg.Name]; exists {
		return fmt.Errorf("schedule: duplicate name %s", cfg.Name)
	}
	name := cfg.Name
	id, err := r.cron.AddFunc(cfg.Spec, func() { r.fire(name) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	r.jobs[name] = &job{cfg: cfg, entry: id, status: JobStatus{ScheduleConfig: cfg}}
	r.order = append(r.order, name)
	return nil
}

// Start begins firing jobs until ctx is cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.running = true
	count := len(r.jobs)
	r.mu.Unlock()
	r.cron.Start()
	r.logger.Printf("schedule: started with %d jobs", count)
}

// Stop halts the scheduler and waits for running jobs to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	r.mu.Unlock()
	cancel()
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		r.logger.Printf("schedule: stop timeout waiting for running jobs")
	}
	r.logger.Printf("schedule: stopped")
}

// Run fires the named job immediately, outside its schedule.
func (r *Runner) Run(name string) error {
	r.mu.Lock()
	_, ok := r.jobs[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("schedule: unknown job %s", name)
	}
	return r.fire(name)
}

// Jobs lists registered jobs in registration order.
func (r *Runner) Jobs() []JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]JobStatus, 0, len(r.order))
	for _, name := range r.order {
		j := r.jobs[name]
		status := j.status
		status.Next = r.cron.Entry(j.entry).Next
		out = append(out, status)
	}
	return out
}

func (r *Runner) fire(name string) error {
	r.mu.Lock()
	j, ok := r.jobs[name]
	ctx := r.ctx
	r.mu.Unlock()
	if !ok {
		return nil
	}
	r.logger.Printf("schedule: firing %s (%s.%s)", name, j.cfg.Category, j.cfg.API)
	result, err := r.dispatcher.Invoke(ctx, j.cfg.Category, j.cfg.API)

	r.mu.Lock()
	defer r.mu.Unlock()
	j.status.Runs++
	j.status.LastRun = r.clock()
	if err != nil {
		j.status.Failures++
		j.status.LastError = err.Error()
		r.logger.Printf("schedule: %s failed: %v", name, err)
		return err
	}
	j.status.LastError = ""
	r.logger.Printf("schedule: %s delivered as %s", name, result.Receipt.MessageID)
	return nil
}
