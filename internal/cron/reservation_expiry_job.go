package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/gatepass/gatepass-backend/pkg/logger"
)

const reservationExpiryBatchSize = 100

// ReservationExpiryJobParams configure the pending order expiry sweep.
type ReservationExpiryJobParams struct {
	Logger    *logger.Logger
	Orders    overdueExpirer
	BatchSize int
}

type overdueExpirer interface {
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}

// NewReservationExpiryJob builds the cron job that cancels pending orders
// whose reservation window has lapsed and returns their holds to inventory.
func NewReservationExpiryJob(params ReservationExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = reservationExpiryBatchSize
	}
	return &reservationExpiryJob{
		logg:  params.Logger,
		svc:   params.Orders,
		batch: batch,
		now:   time.Now,
	}, nil
}

type reservationExpiryJob struct {
	logg  *logger.Logger
	svc   overdueExpirer
	batch int
	now   func() time.Time
}

func (j *reservationExpiryJob) Name() string { return "reservation-expiry" }

func (j *reservationExpiryJob) Run(ctx context.Context) error {
	started := j.now().UTC()
	expired, err := j.svc.ExpireOverdue(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("reservation expiry sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"expired":     expired,
		"batch_size":  j.batch,
		"duration_ms": j.now().UTC().Sub(started).Milliseconds(),
	})
	j.logg.Info(logCtx, "reservation expiry sweep complete")
	return nil
}
