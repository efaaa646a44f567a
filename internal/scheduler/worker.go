package scheduler

import (
	"context"
	"fmt"

	"leadscore_backend/internal/leadscore/scoring"
	"leadscore_backend/platform/apperr"
	"leadscore_backend/platform/config"
	"leadscore_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Rescorer recalculates a lead's score from its stored attributes.
type Rescorer interface {
	RescoreLead(ctx context.Context, leadID uuid.UUID) (scoring.LeadScore, error)
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	rescorer Rescorer
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, rescorer Rescorer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(rescorer, log)
	w.server = server
	return w, nil
}

func newWorker(rescorer Rescorer, log *logger.Logger) *Worker {
	w := &Worker{
		mux:      asynq.NewServeMux(),
		rescorer: rescorer,
		log:      log,
	}
	w.mux.HandleFunc(TaskRescoreLead, w.handleRescoreLead)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleRescoreLead(ctx context.Context, task *asynq.Task) error {
	leadID, err := ParseRescoreLeadPayload(task)
	if err != nil {
		return err
	}

	score, err := w.rescorer.RescoreLead(ctx, leadID)
	if apperr.Is(err, apperr.KindNotFound) {
		w.log.Info("rescore skipped, lead no longer exists", "leadId", leadID)
		return nil
	}
	if err != nil {
		w.log.TaskFailed(task.Type(), leadID.String(), err)
		return err
	}

	w.log.Debug("lead rescored", "leadId", leadID, "compositeScore", score.CompositeScore)
	return nil
}
