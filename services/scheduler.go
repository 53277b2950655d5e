// services/scheduler.go
package services

import (
	"log"

	"github.com/go-co-op/gocron/v2"
)

// EngineScheduler is the periodic trigger for all due-item processing. The
// engine has no internal loop of its own: these jobs are the only thing
// that drives time forward, and each invocation is re-entrant (the CAS
// status checks make overlapping runs harmless).
type EngineScheduler struct {
	Movements *MovementScheduler
	Queues    *QueueService
	Villages  *VillageService
	Config    *Config
	Clock     Clock

	sched gocron.Scheduler
}

func NewEngineScheduler(movements *MovementScheduler, queues *QueueService, villages *VillageService, cfg *Config, clock Clock) *EngineScheduler {
	return &EngineScheduler{
		Movements: movements,
		Queues:    queues,
		Villages:  villages,
		Config:    cfg,
		Clock:     clock,
	}
}

// Start registers and launches the tick jobs.
func (s *EngineScheduler) Start() {
	sched, _ := gocron.NewScheduler()
	s.sched = sched
	sched.Start()

	// Movement arrivals and returns
	_, _ = sched.NewJob(
		gocron.DurationJob(s.Config.MovementTickInterval),
		gocron.NewTask(func() {
			if n := s.Movements.ProcessDueMovements(s.Clock.Now()); n > 0 {
				log.Printf("[Scheduler] ✅ Resolved %d movement(s)", n)
			}
		}),
	)

	// Construction and training completions
	_, _ = sched.NewJob(
		gocron.DurationJob(s.Config.QueueTickInterval),
		gocron.NewTask(func() {
			now := s.Clock.Now()
			if n := s.Queues.ProcessDueBuildQueue(now); n > 0 {
				log.Printf("[Scheduler] ✅ Completed %d construction(s)", n)
			}
			if n := s.Queues.ProcessDueTrainingQueue(now); n > 0 {
				log.Printf("[Scheduler] ✅ Completed %d training run(s)", n)
			}
		}),
	)

	// Background production accrual keeps balances fresh for villages
	// nobody is reading or attacking.
	_, _ = sched.NewJob(
		gocron.DurationJob(s.Config.AccrualTickInterval),
		gocron.NewTask(func() {
			if err := s.Villages.AccrueAll(s.Clock.Now()); err != nil {
				log.Printf("[Scheduler] ❌ Production accrual failed: %v", err)
			}
		}),
	)
}

// Stop shuts the underlying scheduler down.
func (s *EngineScheduler) Stop() {
	if s.sched != nil {
		_ = s.sched.Shutdown()
	}
}
