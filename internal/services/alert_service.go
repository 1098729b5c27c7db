package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	"gekosync/internal/config"
	"gekosync/internal/models"

	"gopkg.in/gomail.v2"
)

// AlertService sends the degraded-run email over SMTP. When alerting is
// disabled in config, SendSyncAlert is a logged no-op.
type AlertService struct {
	cfg  config.SMTPConfig
	tmpl *template.Template
}

func NewAlertService(cfg config.SMTPConfig) *AlertService {
	return &AlertService{
		cfg:  cfg,
		tmpl: template.Must(template.New("sync-alert").Parse(alertBodyTemplate)),
	}
}

// SendSyncAlert composes and delivers the HTML alert for one finished run.
func (s *AlertService) SendSyncAlert(ctx context.Context, record *models.SyncHealthRecord) error {
	if !s.cfg.Enabled {
		log.Printf("DEBUG: alerting disabled, skipping alert for sync %s", record.ID)
		return nil
	}
	if len(s.cfg.Recipients) == 0 {
		return fmt.Errorf("no alert recipients configured")
	}

	severity := "WARNING"
	if record.Status == models.SyncStatusFailed {
		severity = "FAILURE"
	}
	subject := fmt.Sprintf("[Catalog] GEKO Sync %s - %s", severity, time.Now().UTC().Format(time.RFC3339))

	duration := 0.0
	if record.DurationSeconds != nil {
		duration = *record.DurationSeconds
	}

	var body bytes.Buffer
	if err := s.tmpl.Execute(&body, alertView{Record: record, Duration: duration}); err != nil {
		return fmt.Errorf("render alert body: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.Recipients...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}

	log.Printf("Alert email sent for sync %s (%s)", record.ID, severity)
	return nil
}

type alertView struct {
	Record   *models.SyncHealthRecord
	Duration float64
}

const alertBodyTemplate = `<html>
<body>
<h2>GEKO catalog sync needs attention</h2>
<table border="0" cellpadding="4">
<tr><td><b>Sync ID</b></td><td>{{.Record.ID}}</td></tr>
<tr><td><b>Type</b></td><td>{{.Record.SyncType}}</td></tr>
<tr><td><b>Status</b></td><td>{{.Record.Status}}</td></tr>
<tr><td><b>Source</b></td><td>{{.Record.APIURL}}</td></tr>
<tr><td><b>Duration</b></td><td>{{printf "%.2f" .Duration}}s</td></tr>
<tr><td><b>Error count</b></td><td>{{.Record.ErrorCount}}</td></tr>
</table>
{{if .Record.ItemsProcessed}}
<h3>Items processed</h3>
<ul>
{{range $entity, $count := .Record.ItemsProcessed}}<li>{{$entity}}: {{$count}}</li>
{{end}}</ul>
{{end}}
{{if .Record.Errors}}
<h3>Errors</h3>
<ul>
{{range .Record.Errors}}<li>[{{.Type}}] {{.Message}}{{if .Context}} ({{.Context}}){{end}}</li>
{{end}}</ul>
{{end}}
</body>
</html>`
