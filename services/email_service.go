package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/packlane/packlane-backend/config"
	"github.com/packlane/packlane-backend/logger"
	"github.com/packlane/packlane-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"
)

const shareInvitationTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #222;">
  <h2>You've been invited to a packing checklist</h2>
  <p>{{.InviterName}} shared the packing checklist for <strong>{{.TripName}}</strong> with you.</p>
  <p>Open it here: <a href="{{.ChecklistURL}}">{{.ChecklistURL}}</a></p>
  <p style="color: #888; font-size: 12px;">If you weren't expecting this email you can ignore it.</p>
</body>
</html>`

type emailMetrics struct {
	sendLatency prometheus.Histogram
	errorCount  prometheus.Counter
	sentCount   prometheus.Counter
}

var (
	emailMetricsInstance *emailMetrics
	emailMetricsOnce     sync.Once
)

func newEmailMetrics(reg prometheus.Registerer) *emailMetrics {
	emailMetricsOnce.Do(func() {
		emailMetricsInstance = &emailMetrics{
			sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "packlane_email_send_duration_seconds",
				Help:    "Time taken to send emails",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
			}),
			errorCount: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "packlane_email_errors_total",
				Help: "Total number of email sending errors",
			}),
			sentCount: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "packlane_emails_sent_total",
				Help: "Total number of emails sent",
			}),
		}
		reg.MustRegister(emailMetricsInstance.sendLatency)
		reg.MustRegister(emailMetricsInstance.errorCount)
		reg.MustRegister(emailMetricsInstance.sentCount)
	})
	return emailMetricsInstance
}

// EmailService sends share-invitation emails through Resend.
type EmailService struct {
	config  *config.EmailConfig
	client  *resend.Client
	metrics *emailMetrics
}

func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return NewEmailServiceWithRegistry(cfg, prometheus.DefaultRegisterer)
}

func NewEmailServiceWithRegistry(cfg *config.EmailConfig, reg prometheus.Registerer) *EmailService {
	return &EmailService{
		config:  cfg,
		client:  resend.NewClient(cfg.ResendAPIKey),
		metrics: newEmailMetrics(reg),
	}
}

// SendShareInvitation renders and sends the checklist-share invitation.
func (s *EmailService) SendShareInvitation(ctx context.Context, data types.ShareEmailData) error {
	startTime := time.Now()
	log := logger.GetLogger()
	defer func() {
		s.metrics.sendLatency.Observe(time.Since(startTime).Seconds())
	}()

	for _, field := range []string{"InviterName", "TripName", "ChecklistURL"} {
		if _, ok := data.TemplateData[field]; !ok {
			s.metrics.errorCount.Inc()
			err := fmt.Errorf("missing required template field: %s", field)
			log.Errorw("Invalid share-invitation template data", "error", err)
			return err
		}
	}

	tmpl, err := template.New("share_invitation").Parse(shareInvitationTemplate)
	if err != nil {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var htmlContent bytes.Buffer
	if err := tmpl.Execute(&htmlContent, data.TemplateData); err != nil {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("failed to execute template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress),
		To:      []string{data.To},
		Subject: data.Subject,
		Html:    htmlContent.String(),
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to send share-invitation email",
			"error", err,
			"to", logger.MaskEmail(data.To))
		return fmt.Errorf("email send failed: %w", err)
	}

	s.metrics.sentCount.Inc()
	log.Infow("Share-invitation email sent",
		"to", logger.MaskEmail(data.To),
		"subject", data.Subject)
	return nil
}
