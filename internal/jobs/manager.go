// Package jobs は非同期ジョブ（レポート出力・メール通知）の投入と
// 実行を管理します。
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/yourusername/sentinel-safe/internal/config"
	"github.com/yourusername/sentinel-safe/internal/mailer"
	"github.com/yourusername/sentinel-safe/internal/report"
	"github.com/yourusername/sentinel-safe/internal/visitor"
)

const (
	taskTypeReport = "report:visitors"
	taskTypeMail   = "mail:send"

	queueReports = "reports"
	queueMail    = "mail"
)

// Manager はジョブの投入と状態管理を担います。
type Manager struct {
	cfg     *config.Config
	client  *asynq.Client
	server  *asynq.Server
	mux     *asynq.ServeMux
	store   *Store
	reports *report.Service
	mail    *mailer.Mailer
	logger  *log.Logger
}

// NewManager は Manager を初期化します。
func NewManager(cfg *config.Config, reports *report.Service, mail *mailer.Mailer, store *Store, logger *log.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if reports == nil {
		return nil, errors.New("report service is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	opt, err := asynq.ParseRedisURI(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				queueReports: 1,
				queueMail:    2,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		cfg:     cfg,
		client:  client,
		server:  server,
		mux:     mux,
		store:   store,
		reports: reports,
		mail:    mail,
		logger:  logger,
	}
	mux.HandleFunc(taskTypeReport, manager.handleReportTask)
	mux.HandleFunc(taskTypeMail, manager.handleMailTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && err != asynq.ErrServerClosed {
			m.logf("asynq server stopped with error: %v", err)
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	m.client.Close()
	return nil
}

// EnqueueReport は来訪者レポート出力ジョブをキューに投入し、
// 発行したジョブIDを返します。
func (m *Manager) EnqueueReport(ctx context.Context, filter visitor.ListFilter) (string, error) {
	payload := &ReportPayload{
		JobID:  uuid.NewString(),
		Search: filter.Search,
		Action: filter.Action,
	}

	record := &Record{
		JobID:  payload.JobID,
		Kind:   "report",
		Status: StatusQueued,
		Progress: ProgressInfo{
			Percent: 0,
			Stage:   "queued",
		},
	}
	if err := m.store.Upsert(ctx, record); err != nil {
		return "", err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	task := asynq.NewTask(taskTypeReport, body, asynq.Queue(queueReports))
	if _, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(1)); err != nil {
		return "", err
	}
	return payload.JobID, nil
}

// NotifyVisitor は来訪者記録の通知メールをキューに投入します。
// visitor.Notifier を満たします。
func (m *Manager) NotifyVisitor(ctx context.Context, toEmail string, v visitor.Visitor) error {
	if toEmail == "" {
		return errors.New("notification recipient is empty")
	}

	payload := &MailPayload{
		To: toEmail,
		Visitor: &mailer.VisitorDetails{
			Name:        v.Name,
			Date:        v.Date,
			Time:        v.Time,
			Reason:      v.Reason,
			ActionTaken: v.ActionTaken,
		},
	}
	if v.ActionTaken == visitor.ActionReported {
		payload.Kind = MailEmergencyAlert
		payload.Message = fmt.Sprintf("A suspicious visitor '%s' has been reported. Reason: %s", v.Name, v.Reason)
	} else {
		payload.Kind = MailVisitorNotice
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := asynq.NewTask(taskTypeMail, body, asynq.Queue(queueMail))
	_, err = m.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
	return err
}

// GetRecord はジョブ情報を取得します。
func (m *Manager) GetRecord(ctx context.Context, jobID string) (*Record, error) {
	return m.store.Get(ctx, jobID)
}

func (m *Manager) handleReportTask(ctx context.Context, task *asynq.Task) error {
	var payload ReportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	if payload.JobID == "" {
		return fmt.Errorf("missing jobId in payload")
	}

	result, err := m.reports.Generate(ctx, payload.JobID, payload.Filter(), func(stage string, percent int) {
		if err := m.store.UpdateProgress(ctx, payload.JobID, ProgressInfo{
			Stage:   stage,
			Percent: percent,
		}); err != nil {
			m.logf("failed to update progress job=%s: %v", payload.JobID, err)
		}
	})
	if err != nil {
		m.logf("report job failed job=%s: %v", payload.JobID, err)
		return m.store.MarkFailed(ctx, payload.JobID, &ErrorInfo{
			Code:    "REPORT_FAILED",
			Message: "Failed to generate visitor report",
		})
	}

	downloadURL := fmt.Sprintf("/api/jobs/%s/download", result.JobID)
	return m.store.MarkDone(ctx, payload.JobID, downloadURL, result.RowCount)
}

func (m *Manager) handleMailTask(ctx context.Context, task *asynq.Task) error {
	var payload MailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	if m.mail == nil || !m.mail.Enabled() {
		m.logf("mail not configured, dropping %s to %s", payload.Kind, payload.To)
		return nil
	}

	var msg mailer.Message
	switch payload.Kind {
	case MailEmergencyAlert:
		msg = mailer.EmergencyAlert(payload.To, payload.Message)
	case MailVisitorNotice:
		if payload.Visitor == nil {
			return fmt.Errorf("visitor details missing in mail payload")
		}
		msg = mailer.VisitorNotification(payload.To, *payload.Visitor)
	default:
		return fmt.Errorf("unknown mail kind: %s", payload.Kind)
	}

	if err := m.mail.Send(ctx, msg); err != nil {
		m.logf("failed to send %s to %s: %v", payload.Kind, payload.To, err)
		return err
	}
	return nil
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
