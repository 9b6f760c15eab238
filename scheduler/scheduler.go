package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TaskFunc is the work run on each tick
type TaskFunc func(ctx context.Context) error

// Task is a named background job on a cron schedule (with seconds)
type Task struct {
	Name     string
	Schedule string
	Run      TaskFunc
	Timeout  time.Duration

	cronID cron.EntryID
}

// TaskStats records how a task has fared so far
type TaskStats struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Runs     int64     `json:"runs"`
	Failures int64     `json:"failures"`
	LastRun  time.Time `json:"last_run"`
	LastErr  string    `json:"last_error,omitempty"`
	NextRun  time.Time `json:"next_run"`
}

// Scheduler runs the maintenance jobs of the voting backend
type Scheduler struct {
	cron   *cron.Cron
	tasks  map[string]*Task
	stats  map[string]*TaskStats
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
}

// NewScheduler creates a scheduler whose tasks never overlap with themselves
func NewScheduler(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		tasks:  make(map[string]*Task),
		stats:  make(map[string]*TaskStats),
		logger: logger.Named("scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule registers a task. Names must be unique.
func (s *Scheduler) Schedule(task *Task) error {
	if task.Name == "" || task.Run == nil {
		return fmt.Errorf("invalid task: name and run func are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.Name]; exists {
		return fmt.Errorf("task %s already exists", task.Name)
	}

	id, err := s.cron.AddFunc(task.Schedule, func() { s.execute(task) })
	if err != nil {
		return fmt.Errorf("scheduling task %s: %w", task.Name, err)
	}
	task.cronID = id
	s.tasks[task.Name] = task
	s.stats[task.Name] = &TaskStats{Name: task.Name, Schedule: task.Schedule}

	s.logger.Info("task scheduled",
		zap.String("task", task.Name),
		zap.String("schedule", task.Schedule))
	return nil
}

// Start runs the registered tasks on their schedules
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.Int("tasks", len(s.tasks)))
	s.cron.Start()
}

// Stop waits for running tasks to finish
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
}

// RunNow executes a task immediately, outside its schedule
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	task, ok := s.tasks[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("task %s not found", name)
	}
	return s.execute(task)
}

func (s *Scheduler) execute(task *Task) error {
	ctx := s.ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := task.Run(ctx)

	s.mu.Lock()
	st := s.stats[task.Name]
	st.Runs++
	st.LastRun = start
	st.LastErr = ""
	if err != nil {
		st.Failures++
		st.LastErr = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("task failed", zap.String("task", task.Name), zap.Error(err))
	} else {
		s.logger.Debug("task completed", zap.String("task", task.Name), zap.Duration("took", time.Since(start)))
	}
	return err
}

// Stats returns a snapshot per task
func (s *Scheduler) Stats() []TaskStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TaskStats, 0, len(s.stats))
	for name, st := range s.stats {
		snapshot := *st
		snapshot.NextRun = s.cron.Entry(s.tasks[name].cronID).Next
		out = append(out, snapshot)
	}
	return out
}
