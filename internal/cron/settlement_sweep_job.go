package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/swapmeet-backend/internal/settlement"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
)

type sweeper interface {
	SweepPending(ctx context.Context, params settlement.SweepParams) (*settlement.SweepResult, error)
}

type SettlementSweepJobParams struct {
	Logger     *logger.Logger
	Settlement sweeper
	Sweep      settlement.SweepParams
}

// NewSettlementSweepJob reconciles checkout sessions whose confirmation never
// arrived through the redirect or the webhook.
func NewSettlementSweepJob(params SettlementSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	return &settlementSweepJob{logg: params.Logger, settlement: params.Settlement, params: params.Sweep}, nil
}

type settlementSweepJob struct {
	logg       *logger.Logger
	settlement sweeper
	params     settlement.SweepParams
}

func (j *settlementSweepJob) Name() string { return "settlement-sweep" }

func (j *settlementSweepJob) Run(ctx context.Context) error {
	res, err := j.settlement.SweepPending(ctx, j.params)
	if err != nil {
		return fmt.Errorf("settlement sweep: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"scanned":  res.Scanned,
		"settled":  res.Settled,
		"not_paid": res.NotPaid,
		"failed":   res.Failed,
	}), "settlement sweep complete")
	return nil
}
