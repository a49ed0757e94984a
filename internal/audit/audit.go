// Package audit はアプリケーションログ・セキュリティイベント・
// 利用者操作履歴の記録を提供します。記録はリクエスト処理を
// ブロックしないよう非同期で行い、失敗してもリクエストを失敗させません。
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

const queueSize = 256

type sink int

const (
	sinkApp sink = iota
	sinkSecurity
	sinkActivity
)

type entry struct {
	sink sink
	line string
}

// Logger は3系統のログ（アプリ/セキュリティ/アクティビティ）への
// 書き込みをまとめたロガーです。
type Logger struct {
	app      *log.Logger
	security *log.Logger
	activity *log.Logger

	queue chan entry
	done  chan struct{}

	closers []io.Closer
}

// New はログディレクトリ配下に3つのログファイルを開き、Logger を作成します。
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	l := &Logger{
		queue: make(chan entry, queueSize),
		done:  make(chan struct{}),
	}

	for _, target := range []struct {
		name string
		dst  **log.Logger
	}{
		{"app.log", &l.app},
		{"security.log", &l.security},
		{"activity.log", &l.activity},
	} {
		f, err := os.OpenFile(filepath.Join(dir, target.name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			l.closeFiles()
			return nil, fmt.Errorf("failed to open %s: %w", target.name, err)
		}
		l.closers = append(l.closers, f)
		*target.dst = log.New(f, "", log.LstdFlags)
	}

	go l.run()
	return l, nil
}

// NewWithWriters は任意の書き込み先を使う Logger を作成します（テスト用）。
func NewWithWriters(app, security, activity io.Writer) *Logger {
	l := &Logger{
		app:      log.New(app, "", 0),
		security: log.New(security, "", 0),
		activity: log.New(activity, "", 0),
		queue:    make(chan entry, queueSize),
		done:     make(chan struct{}),
	}
	go l.run()
	return l
}

// NewNop はどこにも書かない Logger を作成します。
func NewNop() *Logger {
	return NewWithWriters(io.Discard, io.Discard, io.Discard)
}

// Close はキューに残った記録を書き切ってからファイルを閉じます。
func (l *Logger) Close() error {
	close(l.queue)
	<-l.done
	l.closeFiles()
	return nil
}

// Info は情報ログを記録します。
func (l *Logger) Info(message string, context map[string]any) {
	l.enqueue(sinkApp, format("INFO", message, context))
}

// Warning は警告ログを記録します。
func (l *Logger) Warning(message string, context map[string]any) {
	l.enqueue(sinkApp, format("WARNING", message, context))
}

// Error はエラーログを記録します。内部詳細はここにのみ残し、
// 利用者には汎用メッセージだけを返します。
func (l *Logger) Error(message string, context map[string]any) {
	l.enqueue(sinkApp, format("ERROR", message, context))
}

// Security はセキュリティイベントを記録します。アプリログと
// セキュリティログの両方に残します。
func (l *Logger) Security(message string, context map[string]any) {
	line := format("SECURITY", message, context)
	l.enqueue(sinkApp, line)
	l.enqueue(sinkSecurity, line)
}

// Activity は利用者の操作履歴を記録します。
func (l *Logger) Activity(userID int64, action, detail, ip string) {
	message := fmt.Sprintf("User %d - %s", userID, action)
	if detail != "" {
		message += " - " + detail
	}
	l.enqueue(sinkApp, format("ACTIVITY", message, nil))
	l.enqueue(sinkActivity, fmt.Sprintf("[IP: %s] %s", ip, message))
}

func (l *Logger) enqueue(s sink, line string) {
	// 満杯時は捨てる。監査ログのためにリクエストを待たせない。
	select {
	case l.queue <- entry{sink: s, line: line}:
	default:
	}
}

func (l *Logger) run() {
	defer close(l.done)
	for e := range l.queue {
		switch e.sink {
		case sinkSecurity:
			l.security.Print(e.line)
		case sinkActivity:
			l.activity.Print(e.line)
		default:
			l.app.Print(e.line)
		}
	}
}

func (l *Logger) closeFiles() {
	for _, c := range l.closers {
		_ = c.Close()
	}
}

func format(level, message string, context map[string]any) string {
	if len(context) == 0 {
		return fmt.Sprintf("[%s] %s", level, message)
	}
	encoded, err := json.Marshal(context)
	if err != nil {
		return fmt.Sprintf("[%s] %s", level, message)
	}
	return fmt.Sprintf("[%s] %s | Context: %s", level, message, encoded)
}
