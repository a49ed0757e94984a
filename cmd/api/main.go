// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/sentinel-safe/internal/audit"
	"github.com/yourusername/sentinel-safe/internal/auth"
	"github.com/yourusername/sentinel-safe/internal/config"
	"github.com/yourusername/sentinel-safe/internal/flash"
	"github.com/yourusername/sentinel-safe/internal/mailer"
	"github.com/yourusername/sentinel-safe/internal/report"
	"github.com/yourusername/sentinel-safe/internal/user"
	"github.com/yourusername/sentinel-safe/internal/visitor"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// 監査ログの初期化
	auditLog, err := audit.New(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to open audit logs: %v", err)
	}
	defer auditLog.Close()

	// データベース接続プール
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer pool.Close()

	// セッション・レート制限用Redis
	sessionOpt, err := redis.ParseURL(cfg.SessionRedisURL)
	if err != nil {
		log.Fatalf("Failed to parse SESSION_REDIS_URL: %v", err)
	}
	sessionRedis := redis.NewClient(sessionOpt)
	defer sessionRedis.Close()

	lifetime := time.Duration(cfg.SessionLifetimeMinutes) * time.Minute
	idle := time.Duration(cfg.SessionIdleMinutes) * time.Minute
	sessionManager := auth.NewSessionManager(auth.NewRedisSessionStore(sessionRedis, lifetime), lifetime, idle)
	limiter := auth.NewLimiter(
		auth.NewRedisAttemptStore(sessionRedis),
		cfg.LoginMaxAttempts,
		time.Duration(cfg.LoginWindowSeconds)*time.Second,
	)

	cookies := auth.CookieConfig{
		Secure:           cfg.GinMode == gin.ReleaseMode,
		SessionMaxAge:    lifetime,
		RememberMeMaxAge: time.Duration(cfg.RememberMeDays) * 24 * time.Hour,
	}

	userStore := user.NewPostgresStore(pool)
	visitorStore := visitor.NewPostgresStore(pool)

	// バックグラウンドジョブ（レポート出力・メール通知）
	reportService := report.NewService(visitorStore)
	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Pass:     cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	jobManager, err := setupJobs(cfg, reportService, mail)
	if err != nil {
		log.Fatalf("Failed to set up jobs: %v", err)
	}
	jobManager.StartWorkers()
	defer func() { _ = jobManager.Shutdown(ctx) }()

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// フラッシュメッセージ用クッキーセッション（認証状態は持たない）
	flashStore := cookie.NewStore([]byte(cfg.SessionSecret))
	flashStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteStrictMode,
	})
	router.Use(sessions.Sessions(flash.SessionName, flashStore))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		auth.CSRFHeader,
	}
	// フロントエンドがレスポンスヘッダーから CSRF トークンを読み取れるように公開
	corsConfig.ExposeHeaders = []string{auth.CSRFHeader}
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	flow := auth.NewFlow(userStore, sessionManager, limiter, auditLog, cookies)
	visitorHandlers := visitor.NewHandlers(visitorStore, jobManager, auditLog)
	setupRoutes(router, flow, visitorHandlers, jobManager, reportService)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "sentinel-safe-api",
		"version": "0.1.0",
	})
}
