package triage

import (
	"context"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/incidentd/internal/incident"
)

// Notifier delivers a completed triage result to an external channel.
type Notifier interface {
	Send(ctx context.Context, res *Result) error
}

// SubmitResult is the outcome of submitting an incident for triage.
type SubmitResult struct {
	IncidentID string
}

// Service is the business boundary for triage operations. Webhook
// handlers submit incidents here; the triage run itself happens
// asynchronously.
type Service struct {
	runner   *Runner
	notifier Notifier
	logger   log.Logger
}

// NewService creates a new triage service. notifier may be nil.
func NewService(runner *Runner, notifier Notifier, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		runner:   runner,
		notifier: notifier,
		logger:   logger,
	}
}

// Submit accepts an incident for triage and returns immediately. The run
// proceeds in the background, detached from the request's cancellation.
func (s *Service) Submit(ctx context.Context, inc *incident.Incident) *SubmitResult {
	s.runner.metrics.observeSubmit("accepted")

	// kick off async triage detached from the request lifetime
	go s.runTriage(context.WithoutCancel(ctx), inc)

	return &SubmitResult{IncidentID: inc.ID}
}

// Run executes a triage synchronously, notifying on completion. The CLI
// uses this path; the webhook API goes through Submit.
func (s *Service) Run(ctx context.Context, inc *incident.Incident, opts RunOptions) (*Result, error) {
	res, err := s.runner.Run(ctx, inc, opts)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, res)
	return res, nil
}

func (s *Service) runTriage(ctx context.Context, inc *incident.Incident) {
	L := s.logger.With("incident_id", inc.ID, "trigger", string(inc.Trigger))

	res, err := s.runner.Run(ctx, inc, RunOptions{})
	if err != nil {
		L.Error(ctx, err, "triage run failed")
		return
	}
	s.notify(ctx, res)
}

// notify is best effort: a notification failure never fails the run.
func (s *Service) notify(ctx context.Context, res *Result) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, res); err != nil {
		s.logger.Warn(ctx, "notification failed", "incident_id", res.IncidentID, "error", err)
	}
}
