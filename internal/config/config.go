// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// セッション設定
	SessionSecret          string // フラッシュクッキー署名用の秘密鍵
	SessionRedisURL        string // セッションストア用Redis接続URL
	SessionLifetimeMinutes int    // セッションの絶対有効期限（分）
	SessionIdleMinutes     int    // 無操作タイムアウト（分）
	RememberMeDays         int    // Remember Me クッキーの有効日数

	// ログイン試行制限設定
	LoginMaxAttempts   int // ロックアウトまでの失敗回数
	LoginWindowSeconds int // 失敗回数を数えるウィンドウ（秒）

	// データベース設定
	DatabaseURL string // PostgreSQL接続URL

	// ジョブ/キュー設定
	QueueRedisURL       string // Asynq用Redis接続URL
	ReportExpireMinutes int    // レポートジョブの有効期限（分）

	// メール設定
	SMTPHost     string // SMTPサーバーのホスト名
	SMTPPort     string // SMTPサーバーのポート番号
	SMTPUser     string // SMTP認証ユーザー
	SMTPPass     string // SMTP認証パスワード
	SMTPFrom     string // 送信元メールアドレス
	SMTPFromName string // 送信元表示名

	// ログ設定
	LogDir string // 監査ログの出力先ディレクトリ
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// セッション設定
		SessionSecret:          getEnv("SESSION_SECRET", ""),
		SessionRedisURL:        getEnv("SESSION_REDIS_URL", "redis://127.0.0.1:6379/1"),
		SessionLifetimeMinutes: getEnvAsInt("SESSION_LIFETIME_MINUTES", 720), // 12時間
		SessionIdleMinutes:     getEnvAsInt("SESSION_IDLE_MINUTES", 30),
		RememberMeDays:         getEnvAsInt("REMEMBER_ME_DAYS", 30),

		// ログイン試行制限設定
		LoginMaxAttempts:   getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindowSeconds: getEnvAsInt("LOGIN_WINDOW_SECONDS", 900), // 15分

		// データベース設定
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// ジョブ/キュー設定
		QueueRedisURL:       getEnv("QUEUE_REDIS_URL", "redis://127.0.0.1:6379/0"),
		ReportExpireMinutes: getEnvAsInt("REPORT_EXPIRE_MINUTES", 30),

		// メール設定
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPass:     getEnv("SMTP_PASS", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Sentinel Safe"),

		// ログ設定
		LogDir: getEnv("LOG_DIR", "logs"),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	// ローカル開発では外部サービス設定は任意
	// 本番環境では厳格にチェックする想定
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required in release mode")
		}
		if c.SessionRedisURL == "" {
			return fmt.Errorf("SESSION_REDIS_URL is required in release mode")
		}
		if c.QueueRedisURL == "" {
			return fmt.Errorf("QUEUE_REDIS_URL is required in release mode")
		}
	}

	if c.LoginMaxAttempts <= 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must be positive")
	}
	if c.LoginWindowSeconds <= 0 {
		return fmt.Errorf("LOGIN_WINDOW_SECONDS must be positive")
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
