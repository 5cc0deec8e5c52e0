package scheduler

import (
	"context"
	"errors"
	"time"

	billingdomain "github.com/fckfck97/cie-corpoindustrial/internal/billing/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/clock"
	notifierdomain "github.com/fckfck97/cie-corpoindustrial/internal/notifier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const authSource = "scheduler"

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	BillingSvc  billingdomain.Service
	NotifierSvc notifierdomain.Service
	Config      Config `optional:"true"`
}

type Scheduler struct {
	log         *zap.Logger
	cfg         Config
	clock       clock.Clock
	billingSvc  billingdomain.Service
	notifierSvc notifierdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.BillingSvc == nil || p.NotifierSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:         p.Log.Named("scheduler"),
		cfg:         p.Config.withDefaults(),
		clock:       p.Clock,
		billingSvc:  p.BillingSvc,
		notifierSvc: p.NotifierSvc,
	}, nil
}

// RunOnce executes one billing pass: activate the target month's rows, then
// send any due delinquency reminders. On the last day of the month the next
// month is activated so its rows exist before the first reminder fires.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	err = errors.Join(err, s.runJob(parent, "activate", s.activateJob))
	err = errors.Join(err, s.runJob(parent, "delinquency_notifications", s.notifyJob))
	return err
}

func (s *Scheduler) activateJob(ctx context.Context) error {
	today := clock.Today(s.clock)
	mode := billingdomain.ModeCurrent
	if today.AddDate(0, 0, 1).Month() != today.Month() {
		mode = billingdomain.ModeNext
	}

	resp, err := s.billingSvc.Activate(ctx, billingdomain.ActivateRequest{
		Mode:       mode,
		AuthSource: authSource,
	})
	if err != nil {
		return err
	}
	s.log.Info("activation pass",
		zap.String("mode", resp.Mode),
		zap.Int("year", resp.Year),
		zap.Int("month", resp.Month),
		zap.Int("processed", resp.Processed),
	)
	return nil
}

func (s *Scheduler) notifyJob(ctx context.Context) error {
	resp, err := s.notifierSvc.Run(ctx, notifierdomain.RunRequest{AuthSource: authSource})
	if err != nil {
		return err
	}
	s.log.Info("notification pass",
		zap.Int64("overdue_updated", resp.Meta.OverdueMoved),
		zap.Int("sent", resp.Meta.SentCount),
		zap.Int("skipped", resp.Meta.SkippedCount),
	)
	return nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	start := s.clock.Now()
	err := fn(ctx)
	if err != nil {
		s.log.Warn("job failed",
			zap.String("job", name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
