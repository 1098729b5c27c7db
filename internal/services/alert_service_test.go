package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"gekosync/internal/config"
	"gekosync/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSyncAlert_DisabledIsNoOp(t *testing.T) {
	svc := NewAlertService(config.SMTPConfig{Enabled: false})

	err := svc.SendSyncAlert(context.Background(), &models.SyncHealthRecord{ID: uuid.New()})
	assert.NoError(t, err)
}

func TestSendSyncAlert_NoRecipientsConfigured(t *testing.T) {
	svc := NewAlertService(config.SMTPConfig{Enabled: true})

	err := svc.SendSyncAlert(context.Background(), &models.SyncHealthRecord{ID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipients")
}

func TestAlertTemplate_RendersRunDetail(t *testing.T) {
	svc := NewAlertService(config.SMTPConfig{Enabled: true})

	duration := 12.345
	record := &models.SyncHealthRecord{
		ID:              uuid.New(),
		SyncType:        models.SyncTypeScheduled,
		Status:          models.SyncStatusPartialSuccess,
		APIURL:          "https://feeds.example.com/geko.xml",
		DurationSeconds: &duration,
		ErrorCount:      1,
		ItemsProcessed:  map[string]int{"products": 42},
		Errors: []models.SyncError{
			{Type: models.SyncErrorValidation, Message: "invalid EAN dropped: 123", Context: "P1", Timestamp: time.Now()},
		},
	}

	var body bytes.Buffer
	err := svc.tmpl.Execute(&body, alertView{Record: record, Duration: duration})
	require.NoError(t, err)

	html := body.String()
	assert.Contains(t, html, record.ID.String())
	assert.Contains(t, html, "partial_success")
	assert.Contains(t, html, "12.35s")
	assert.Contains(t, html, "products: 42")
	assert.Contains(t, html, "[validation_error] invalid EAN dropped: 123 (P1)")
}
