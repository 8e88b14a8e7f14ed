package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CycleReport summarizes one notification cycle.
type CycleReport struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Index        uint64
	OverdueTasks int
	Users        int
	Sent         int
	Skipped      int
	Failed       int
	Error        string
	Results      []DispatchResult
}

func (r CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SchedulerStatus is a point-in-time view for operators.
type SchedulerStatus struct {
	Running           bool
	Processing        bool
	NotificationIndex uint64
	Interval          time.Duration
	NextRun           time.Time
	LastCycle         *CycleReport
}

type SchedulerOptions struct {
	Interval     time.Duration
	CycleTimeout time.Duration
	Clock        Clock
}

// SchedulerService runs the overdue check and dispatch on a fixed interval.
// Only one cycle runs at a time; a tick that finds a cycle in progress is
// skipped. The state is process-local: two instances against the same
// database would both send.
type SchedulerService struct {
	mu        sync.Mutex
	cron      *cron.Cron
	entryID   cron.EntryID
	lastCycle *CycleReport

	interval     time.Duration
	cycleTimeout time.Duration
	now          Clock

	finder     *OverdueService
	dispatcher *Dispatcher
	log        zerolog.Logger

	processing atomic.Bool
}

func NewSchedulerService(finder *OverdueService, dispatcher *Dispatcher, opts SchedulerOptions, log zerolog.Logger) (*SchedulerService, error) {
	if finder == nil || dispatcher == nil {
		return nil, errors.New("scheduler: finder and dispatcher are required")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if opts.Clock == nil {
		opts.Clock = systemClock
	}
	return &SchedulerService{
		interval:     opts.Interval,
		cycleTimeout: opts.CycleTimeout,
		now:          opts.Clock,
		finder:       finder,
		dispatcher:   dispatcher,
		log:          log,
	}, nil
}

// Start registers the recurring timer. Calling it while running is a no-op.
func (s *SchedulerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}
	s.cron = cron.New()
	s.entryID = s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(s.tick))
	s.cron.Start()
	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
}

// Stop cancels the timer. A cycle already in progress is allowed to finish;
// Stop waits for it until ctx is done.
func (s *SchedulerService) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.entryID = 0
	s.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info().Msg("scheduler stopped")
}

func (s *SchedulerService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

func (s *SchedulerService) Processing() bool {
	return s.processing.Load()
}

func (s *SchedulerService) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SchedulerStatus{
		Running:           s.cron != nil,
		Processing:        s.processing.Load(),
		NotificationIndex: s.dispatcher.NotificationIndex(),
		Interval:          s.interval,
	}
	if s.cron != nil && s.entryID != 0 {
		st.NextRun = s.cron.Entry(s.entryID).Next
	}
	if s.lastCycle != nil {
		last := *s.lastCycle
		st.LastCycle = &last
	}
	return st
}

func (s *SchedulerService) tick() {
	ctx := context.Background()
	if s.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cycleTimeout)
		defer cancel()
	}
	s.RunCycle(ctx)
}

// RunCycle runs one check-and-dispatch cycle now. It returns ran=false
// without doing anything when another cycle is in progress; a cycle that
// panics still reports ran=true with the panic in report.Error.
func (s *SchedulerService) RunCycle(ctx context.Context) (report CycleReport, ran bool) {
	if !s.processing.CompareAndSwap(false, true) {
		s.log.Info().Msg("previous cycle still processing; tick skipped")
		return CycleReport{}, false
	}
	ran = true

	report = CycleReport{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
		Index:     s.dispatcher.NotificationIndex(),
	}
	log := s.log.With().Str("run_id", report.RunID).Uint64("index", report.Index).Logger()

	defer func() {
		if r := recover(); r != nil {
			report.Error = fmt.Sprintf("panic: %v", r)
			log.Error().Interface("panic", r).Msg("cycle panicked")
		}
		report.FinishedAt = s.now()
		s.dispatcher.Advance()
		s.processing.Store(false)

		last := report
		s.mu.Lock()
		s.lastCycle = &last
		s.mu.Unlock()

		log.Info().
			Int("overdue", report.OverdueTasks).
			Int("users", report.Users).
			Int("sent", report.Sent).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed).
			Dur("took", report.Duration()).
			Msg("cycle finished")
	}()

	groups, err := s.finder.GetOverdueTasksGroupedByUser(ctx)
	if err != nil {
		// The finder already logged; continue with its empty fallback.
		report.Error = err.Error()
	}
	report.Users = groups.Len()
	for _, userID := range groups.Users() {
		report.OverdueTasks += len(groups.Tasks(userID))
	}

	report.Results = s.dispatcher.SendNotificationsToUsers(ctx, groups)
	for _, res := range report.Results {
		switch {
		case res.Skipped:
			report.Skipped++
		case res.Success:
			report.Sent++
		default:
			report.Failed++
		}
	}
	return report, true
}
