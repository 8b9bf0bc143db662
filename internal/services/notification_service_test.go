package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "invoicer/internal/errors"
	"invoicer/internal/logger"
	"invoicer/internal/models"
)

func TestNotificationService_NotifyAndList(t *testing.T) {
	svc := NewNotificationService(0, logger.NewNopLogger())

	first := svc.Notify(models.TitleSuccess, "Invoice saved successfully", models.NotificationVariantDefault)
	second := svc.Notify(models.TitleError, "Failed to save invoice", models.NotificationVariantDestructive)

	list := svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, first, list[0])
	assert.Equal(t, second, list[1])
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.IsDestructive())
	assert.True(t, second.IsDestructive())
}

func TestNotificationService_CapacityDropsOldest(t *testing.T) {
	svc := NewNotificationService(3, logger.NewNopLogger())

	for i := 0; i < 5; i++ {
		svc.Notify(models.TitleSuccess, fmt.Sprintf("n%d", i), models.NotificationVariantDefault)
	}

	list := svc.List()
	require.Len(t, list, 3)
	assert.Equal(t, "n2", list[0].Description)
	assert.Equal(t, "n4", list[2].Description)
}

func TestNotificationService_Prune(t *testing.T) {
	svc := NewNotificationService(0, logger.NewNopLogger()).(*notificationService)
	base := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		svc.Notify(models.TitleSuccess, fmt.Sprintf("n%d", i), models.NotificationVariantDefault)
	}

	removed := svc.Prune(base.Add(2 * time.Minute))

	assert.Equal(t, 2, removed)
	list := svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, "n2", list[0].Description)
}

func TestNotificationService_ListIsCopy(t *testing.T) {
	svc := NewNotificationService(0, logger.NewNopLogger())
	svc.Notify(models.TitleSuccess, "original", models.NotificationVariantDefault)

	list := svc.List()
	list[0].Description = "changed"

	assert.Equal(t, "original", svc.List()[0].Description)
}

func TestSimulatedMailer(t *testing.T) {
	mailer := NewSimulatedMailer(logger.NewNopLogger())
	inv := models.NewDefaultInvoice(time.Now())

	err := mailer.SendInvoice(context.Background(), inv)
	assert.True(t, ierr.IsValidation(err))

	inv.ClientEmail = "ap@globex.test"
	assert.NoError(t, mailer.SendInvoice(context.Background(), inv))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, mailer.SendInvoice(ctx, inv), context.Canceled)
}
