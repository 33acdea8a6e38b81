package export

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs Artifacts.Sweep on a cron schedule.
type Sweeper struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewSweeper schedules sweeps of artifacts. schedule accepts standard cron
// expressions and descriptors such as "@every 30s".
func NewSweeper(artifacts *Artifacts, schedule string, logger *zap.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if n := artifacts.Sweep(); n > 0 {
			logger.Info("released expired export artifacts", zap.Int("count", n))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule artifact sweep %q: %w", schedule, err)
	}

	return &Sweeper{cron: c, logger: logger}, nil
}

// Start begins running sweeps in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
