package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agendaville/backend/config"
	"github.com/agendaville/backend/internal/emaillogs"
	"github.com/agendaville/backend/pkg/queue"
	"github.com/agendaville/backend/pkg/storage"
)

// Processor consumes queued jobs: outbound email delivery and cleanup of
// orphaned storage objects.
type Processor struct {
	emailLogs *emaillogs.Repository
	s3        *storage.S3
	queue     *queue.Queue
	email     config.EmailConfig
	logger    *zap.Logger
}

// NewProcessor creates a job processor.
func NewProcessor(emailLogs *emaillogs.Repository, s3 *storage.S3, q *queue.Queue, email config.EmailConfig, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{emailLogs: emailLogs, s3: s3, queue: q, email: email, logger: logger}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEmail:
		return p.processEmail(ctx, job)
	case queue.JobTypeStorageCleanup:
		return p.processCleanup(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *Processor) processEmail(ctx context.Context, job *queue.Job) error {
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := p.sendSMTP(payload.RecipientEmail, payload.Subject, payload.BodyHTML); err != nil {
		if dbErr := p.emailLogs.MarkFailed(ctx, payload.EmailLogID, err.Error()); dbErr != nil {
			p.logger.Error("mark email failed error", zap.Error(dbErr))
		}
		return fmt.Errorf("send email: %w", err)
	}
	if err := p.emailLogs.MarkSent(ctx, payload.EmailLogID); err != nil {
		p.logger.Error("mark email sent error", zap.Error(err), zap.String("email_log_id", payload.EmailLogID.String()))
	}
	p.logger.Info("email sent",
		zap.String("email_type", payload.EmailType),
		zap.String("recipient", payload.RecipientEmail))
	return nil
}

func (p *Processor) processCleanup(ctx context.Context, job *queue.Job) error {
	var payload queue.StorageCleanupPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var cleaned []string
	for _, key := range payload.Keys {
		if key == "" {
			continue
		}
		if err := p.s3.Remove(ctx, key); err != nil {
			p.logger.Warn("storage remove failed", zap.Error(err), zap.String("key", key))
			continue
		}
		cleaned = append(cleaned, key)
	}
	if err := p.queue.MarkCleaned(ctx, cleaned); err != nil {
		p.logger.Warn("mark cleaned failed", zap.Error(err))
	}
	if len(cleaned) < len(payload.Keys) {
		return fmt.Errorf("cleanup incomplete: %d/%d keys removed", len(cleaned), len(payload.Keys))
	}
	p.logger.Info("storage cleanup completed", zap.Int("keys", len(cleaned)))
	return nil
}

// sendSMTP delivers a single HTML email. When SMTP is not configured the
// message is logged and treated as sent so local development does not fill
// the DLQ.
func (p *Processor) sendSMTP(recipient, subject, bodyHTML string) error {
	if p.email.SMTPHost == "" {
		p.logger.Info("SMTP not configured, skipping delivery",
			zap.String("recipient", recipient), zap.String("subject", subject))
		return nil
	}
	from := p.email.FromAddress
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", p.email.FromName, from)
	fmt.Fprintf(&msg, "To: %s\r\n", recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(bodyHTML)

	addr := fmt.Sprintf("%s:%d", p.email.SMTPHost, p.email.SMTPPort)
	var auth smtp.Auth
	if p.email.SMTPUser != "" {
		auth = smtp.PlainAuth("", p.email.SMTPUser, p.email.SMTPPass, p.email.SMTPHost)
	}
	return smtp.SendMail(addr, auth, from, []string{recipient}, []byte(msg.String()))
}

// SweepPendingCleanup re-enqueues storage keys whose cleanup jobs were lost.
// Wired to the daily cron in the worker binary.
func (p *Processor) SweepPendingCleanup(ctx context.Context) {
	keys, err := p.queue.PendingCleanupKeys(ctx)
	if err != nil {
		p.logger.Warn("pending cleanup scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	p.logger.Info("re-enqueueing pending storage cleanup", zap.Int("keys", len(keys)))
	if err := p.queue.EnqueueStorageCleanup(ctx, queue.StorageCleanupPayload{Keys: keys}); err != nil {
		p.logger.Error("re-enqueue cleanup failed", zap.Error(err))
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			// BLPop surfaces cancellation as an error; exit without the
			// retry backoff.
			if ctx.Err() != nil {
				p.logger.Info("worker stopping")
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
