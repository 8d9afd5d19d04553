package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"ReportMapper/internal/config"
	"ReportMapper/internal/logger"
)

// Sweeper is what the scheduler cleans; session.Manager satisfies it.
type Sweeper interface {
	CleanupExpiredSessions() int
}

type SweepConfig struct {
	Schedule string
	TimeZone string
}

func NewDefaultSweepConfig() *SweepConfig {
	return &SweepConfig{
		Schedule: config.DefaultSweepSchedule,
		TimeZone: config.DefaultTimeZone,
	}
}

// SessionSweeper removes expired editor sessions on a cron schedule.
type SessionSweeper struct {
	config  map[string]interface{}
	target  Sweeper
	cfg     *SweepConfig
	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewSessionSweeper reads "sweep_schedule" and "timezone" from cfg.
func NewSessionSweeper(cfg map[string]interface{}, target Sweeper) *SessionSweeper {
	sc := NewDefaultSweepConfig()
	if cfg != nil {
		if schedule, ok := cfg["sweep_schedule"].(string); ok && schedule != "" {
			sc.Schedule = schedule
		}
		if tz, ok := cfg["timezone"].(string); ok && tz != "" {
			sc.TimeZone = tz
		}
	}
	return &SessionSweeper{config: cfg, target: target, cfg: sc}
}

func (s *SessionSweeper) Name() string {
	return "sweeper"
}

func (s *SessionSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, err := time.LoadLocation(s.cfg.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	id, err := c.AddFunc(s.cfg.Schedule, s.RunOnce)
	if err != nil {
		return fmt.Errorf("unable to schedule session sweeper: %w", err)
	}
	s.cron = c
	s.entryID = id
	c.Start()

	logger.L().WithFields(logrus.Fields{"schedule": s.cfg.Schedule, "timezone": loc.String()}).Info("session sweeper started")
	return nil
}

// RunOnce sweeps immediately.
func (s *SessionSweeper) RunOnce() {
	if s.target == nil {
		return
	}
	if n := s.target.CleanupExpiredSessions(); n > 0 {
		logger.L().WithField("removed", n).Info("expired editor sessions removed")
	}
}

// Next is the next scheduled run, zero before Start.
func (s *SessionSweeper) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

func (s *SessionSweeper) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return nil
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	logger.L().Info("session sweeper stopped")
	return nil
}
