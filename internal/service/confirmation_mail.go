package service

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"

	"github.com/noah-isme/bookwyrm-admin/internal/dto"
	"github.com/noah-isme/bookwyrm-admin/pkg/jobs"
	"github.com/noah-isme/bookwyrm-admin/pkg/mailer"
)

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// ConfirmationMailer delivers queued confirmation emails.
type ConfirmationMailer struct {
	sender  mailSender
	baseURL string
	metrics *MetricsService
	logger  *zap.Logger
}

// NewConfirmationMailer constructs a ConfirmationMailer. baseURL is the instance root,
// for example https://books.example.net.
func NewConfirmationMailer(sender mailSender, baseURL string, metrics *MetricsService, logger *zap.Logger) *ConfirmationMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfirmationMailer{sender: sender, baseURL: baseURL, metrics: metrics, logger: logger}
}

// Handle is a jobs.Handler for JobTypeConfirmationEmail jobs.
func (m *ConfirmationMailer) Handle(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeConfirmationEmail {
		m.logger.Warn("ignoring unknown job type", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}

	var payload dto.ConfirmationMail
	if err := job.Decode(&payload); err != nil {
		// Retrying cannot fix a malformed payload.
		m.logger.Error("dropping confirmation job", zap.String("job_id", job.ID), zap.Error(err))
		m.metrics.RecordJob(job.Type, err)
		return nil
	}

	link := fmt.Sprintf("%s/confirm-email/%s", m.baseURL, payload.Token)
	err := m.sender.Send(ctx, mailer.Message{
		To:       payload.Email,
		Subject:  "Confirm your email address",
		TextBody: fmt.Sprintf("Hi %s,\n\nConfirm your email address to finish creating your account:\n%s\n", payload.Username, link),
		HTMLBody: fmt.Sprintf(`<p>Hi %s,</p><p>Confirm your email address to finish creating your account:</p><p><a href="%s">%s</a></p>`,
			html.EscapeString(payload.Username), link, link),
	})
	m.metrics.RecordJob(job.Type, err)
	return err
}
