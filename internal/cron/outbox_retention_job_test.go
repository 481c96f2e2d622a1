package cron

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/internal/testutil"
	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	"github.com/shopbridge/shopbridge-backend/pkg/logger"
	"github.com/shopbridge/shopbridge-backend/pkg/outbox"
)

func seedOutboxEvent(t *testing.T, conn *gorm.DB, publishedAt *time.Time) {
	t.Helper()
	row := models.OutboxEvent{
		EventType:     enums.EventPurchasePaymentRecorded,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		PublishedAt:   publishedAt,
	}
	if err := conn.Create(&row).Error; err != nil {
		t.Fatalf("seed outbox event: %v", err)
	}
}

func TestOutboxRetentionPrunesAcrossBatches(t *testing.T) {
	conn := testutil.OpenDB(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-2 * 24 * time.Hour)

	for i := 0; i < outboxDeleteBatch+3; i++ {
		seedOutboxEvent(t, conn, &old)
	}
	seedOutboxEvent(t, conn, &recent)
	seedOutboxEvent(t, conn, nil)

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:         testutil.NewTxRunner(conn),
		Repository: outbox.NewRepository(conn),
		Clock:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var remaining int64
	if err := conn.Model(&models.OutboxEvent{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 2 {
		t.Fatalf("expected the recent and undelivered rows to survive, got %d rows", remaining)
	}
}

type failingPruner struct{}

func (failingPruner) DeletePublishedBefore(*gorm.DB, time.Time, int) (int64, error) {
	return 0, errors.New("db down")
}

func TestOutboxRetentionPropagatesError(t *testing.T) {
	conn := testutil.OpenDB(t)
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:         testutil.NewTxRunner(conn),
		Repository: failingPruner{},
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewOutboxRetentionJobValidatesParams(t *testing.T) {
	if _, err := NewOutboxRetentionJob(OutboxRetentionJobParams{}); err == nil {
		t.Fatal("expected missing logger to fail")
	}
}
