package notification_log

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSave_FillsDefaultsAndUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	svc := New(store.NewMemoryCallbackLogStore(), zap.NewNop().Sugar())

	entry := &models.PaymentNotificationLog{Provider: "mpesa", CorrelationID: "ws_CO_1", Status: models.PaymentNotificationLogStatusReceived}
	svc.Save(ctx, entry)
	require.NotEmpty(t, entry.ID)
	assert.WithinDuration(t, time.Now(), entry.ReceivedAt, time.Second)

	entry.Status = models.PaymentNotificationLogStatusHandled
	svc.Save(ctx, entry)
	svc.Save(ctx, nil)

	logs, err := svc.ListByCorrelationID(ctx, "ws_CO_1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.PaymentNotificationLogStatusHandled, logs[0].Status)
}

type brokenStore struct{ store.CallbackLogStore }

func (brokenStore) Save(context.Context, *models.PaymentNotificationLog) error {
	return errors.New("disk full")
}

func TestSave_ErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	svc := New(brokenStore{}, zap.New(core).Sugar())

	svc.Save(context.Background(), &models.PaymentNotificationLog{Provider: "generic"})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to save notification log", logs.All()[0].Message)
}
