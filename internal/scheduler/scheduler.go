package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"CryptoDashboard/internal/model"
	"CryptoDashboard/internal/notifier"
)

// Runner evaluates the portfolio. Cycle is the scheduled evaluation; Run and
// Refresh serve on-demand reads.
type Runner interface {
	Run(ctx context.Context) (*model.Report, error)
	Refresh(ctx context.Context) (*model.Report, error)
	Cycle(ctx context.Context) (*model.Report, error)
}

// Notifier delivers messages and alert events.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
	Dispatch(ctx context.Context, events []model.AlertEvent) int
	Enabled() bool
}

// Scheduler runs evaluation cycles on a cron schedule and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Pipeline Runner
	Notifier Notifier
	// DispatchAlerts sends each cycle's alert events through Notifier.
	DispatchAlerts bool
	Ctx            context.Context

	log zerolog.Logger
}

// NewScheduler creates a new Scheduler. Overlapping cycles are skipped rather than
// queued.
func NewScheduler(ctx context.Context, p Runner, n Notifier, dispatchAlerts bool, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:           cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		Pipeline:       p,
		Notifier:       n,
		DispatchAlerts: dispatchAlerts,
		Ctx:            ctx,
		log:            log.With().Str("component", "scheduler").Logger(),
	}
}

// Register schedules the evaluation cycle.
func (s *Scheduler) Register(cycleCron string) error {
	if _, err := s.Cron.AddFunc(cycleCron, s.cycle); err != nil {
		return fmt.Errorf("register cycle task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes one cycle immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.cycle()
}

func (s *Scheduler) cycle() {
	s.log.Info().Msg("running evaluation cycle")
	report, err := s.Pipeline.Cycle(s.Ctx)
	if errors.Is(err, model.ErrConfigMissing) {
		// Already reported at startup; nothing changes until restart.
		s.log.Debug().Err(err).Msg("evaluation cycle skipped")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("evaluation cycle failed")
		s.trySend(fmt.Sprintf("❌ Portfolio evaluation failed: %v", err))
		return
	}
	if !s.DispatchAlerts || len(report.Alerts) == 0 {
		return
	}
	sent := s.Notifier.Dispatch(s.Ctx, report.Alerts)
	s.log.Info().Int("alerts", len(report.Alerts)).Int("sent", sent).Msg("alerts dispatched")
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	var cmd string
	if fields := strings.Fields(command); len(fields) > 0 {
		cmd = strings.ToLower(fields[0])
	}
	// Group chats address commands as /cmd@botname.
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}

	var format func(*model.Report) string
	run := s.Pipeline.Run
	switch cmd {
	case "/portfolio", "/start":
		format = notifier.FormatSummary
	case "/holdings":
		format = notifier.FormatHoldings
	case "/top":
		format = notifier.FormatMovers
	case "/alerts":
		format = notifier.FormatAlerts
	case "/refresh":
		format = notifier.FormatSummary
		run = s.Pipeline.Refresh
	default:
		return "Available commands:\n• /portfolio\n• /holdings\n• /top\n• /alerts\n• /refresh"
	}

	report, err := run(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("command", cmd).Msg("command failed")
		return fmt.Sprintf("❌ %v", err)
	}
	return format(report)
}

func (s *Scheduler) trySend(text string) {
	if !s.Notifier.Enabled() {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
