package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Scheduler runs one job on a fixed interval. Ticks never overlap: a tick
// that fires while the previous run is still going is skipped, and RunNow
// shares the same guard.
type Scheduler struct {
	cron     *cron.Cron
	job      cron.Job
	interval time.Duration

	mu      sync.Mutex
	stopped bool
	manual  sync.WaitGroup
}

func New(interval time.Duration, job func()) *Scheduler {
	logger := cronLogger{logger: log.With().Str("component", "scheduler").Logger()}
	chain := cron.NewChain(
		cron.SkipIfStillRunning(logger),
		cron.Recover(logger),
	)
	wrapped := chain.Then(cron.FuncJob(job))

	c := cron.New(cron.WithLogger(logger))
	c.Schedule(cron.Every(interval), wrapped)

	return &Scheduler{
		cron:     c,
		job:      wrapped,
		interval: interval,
	}
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	log.Info().Dur("interval", s.interval).Msg("Starting scheduler")
	s.cron.Start()
}

// RunNow runs the job on the calling goroutine, or returns immediately if a
// run is already in progress or the scheduler has been stopped.
func (s *Scheduler) RunNow() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		log.Debug().Msg("Scheduler stopped, skipping manual run")
		return
	}
	s.manual.Add(1)
	s.mu.Unlock()

	defer s.manual.Done()
	s.job.Run()
}

// Stop halts future ticks and waits up to timeout for a running job to
// finish.
func (s *Scheduler) Stop(timeout time.Duration) error {
	log.Info().Msg("Stopping scheduler")
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.manual.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("Scheduler stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("scheduler did not stop within %s", timeout)
	}
}

// cronLogger routes cron's logging onto zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
