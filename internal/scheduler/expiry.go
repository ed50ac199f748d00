// Package scheduler runs the periodic card expiry sweep.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CardExpirer is the slice of the card engine the sweeper needs.
type CardExpirer interface {
	ExpireCards(ctx context.Context) (int64, error)
}

// ExpirySweeper flips ACTIVE cards past their expiry date to EXPIRED on a
// cron schedule.
type ExpirySweeper struct {
	cards CardExpirer
	log   *logrus.Logger
}

// NewExpirySweeper creates a new expiry sweeper
func NewExpirySweeper(cards CardExpirer, log *logrus.Logger) *ExpirySweeper {
	return &ExpirySweeper{cards: cards, log: log}
}

// Run performs one sweep.
func (s *ExpirySweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.cards.ExpireCards(ctx)
	if err != nil {
		s.log.Errorf("Card expiry sweep failed: %v", err)
		return
	}
	if count > 0 {
		s.log.Infof("Card expiry sweep: %d cards expired", count)
	}
}

// Start schedules the sweep and returns the running cron instance.
func (s *ExpirySweeper) Start(schedule string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, s.Run); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
