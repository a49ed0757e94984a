package jobs

import (
	"time"

	"github.com/yourusername/sentinel-safe/internal/mailer"
	"github.com/yourusername/sentinel-safe/internal/visitor"
)

// Status はジョブの実行状態を表します。
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "done"
	StatusFailed    Status = "error"
)

// ProgressInfo は進捗の補足情報を表します。
type ProgressInfo struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage,omitempty"`
}

// ErrorInfo はジョブ失敗時のエラー情報を保持します。
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Record は追跡対象ジョブ（レポート出力）の現在状態を表します。
// メール送信ジョブは投げ切りのため記録を残しません。
type Record struct {
	JobID       string       `json:"jobId"`
	Kind        string       `json:"kind"`
	Status      Status       `json:"status"`
	Progress    ProgressInfo `json:"progress"`
	DownloadURL string       `json:"downloadUrl,omitempty"`
	RowCount    int          `json:"rowCount,omitempty"`
	Error       *ErrorInfo   `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	ExpiresAt   time.Time    `json:"expiresAt"`
}

// ReportPayload は来訪者レポート出力ジョブのペイロードです。
type ReportPayload struct {
	JobID  string `json:"jobId"`
	Search string `json:"search,omitempty"`
	Action string `json:"action,omitempty"`
}

// Filter はペイロードを来訪者ストアの絞り込み条件へ変換します。
func (p *ReportPayload) Filter() visitor.ListFilter {
	return visitor.ListFilter{
		Search: p.Search,
		Action: p.Action,
	}
}

// MailKind はメール通知の種別です。
type MailKind string

const (
	MailVisitorNotice  MailKind = "visitor_notice"
	MailEmergencyAlert MailKind = "emergency_alert"
)

// MailPayload はメール送信ジョブのペイロードです。
type MailPayload struct {
	Kind    MailKind               `json:"kind"`
	To      string                 `json:"to"`
	Visitor *mailer.VisitorDetails `json:"visitor,omitempty"`
	Message string                 `json:"message,omitempty"`
}
