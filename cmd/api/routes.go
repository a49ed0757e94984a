package main

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/sentinel-safe/internal/auth"
	"github.com/yourusername/sentinel-safe/internal/jobs"
	"github.com/yourusername/sentinel-safe/internal/report"
	"github.com/yourusername/sentinel-safe/internal/visitor"
)

// setupRoutes は認証フローと各ハンドラーの配線を行います。
func setupRoutes(router *gin.Engine, flow *auth.Flow, visitors *visitor.Handlers, jobManager *jobs.Manager, reports *report.Service) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	// 認証前でも叩ける経路。GET はCSRFトークンの払い出しを兼ねる。
	router.GET("/login", flow.PageToken)
	router.GET("/signup", flow.PageToken)
	router.POST("/login", flow.Login)
	router.POST("/signup", flow.Signup)
	router.POST("/logout",
		flow.RequireLogin(),
		flow.VerifyCSRF("/dashboard"),
		flow.Logout,
	)

	// フォーム送信＋リダイレクトで動く画面系の経路
	forms := router.Group("")
	forms.Use(flow.RequireLogin(), flow.VerifyCSRF("/visitors"))
	{
		forms.POST("/visitors", visitors.Save)
		forms.POST("/visitors/:id", visitors.EditSave)
		forms.POST("/visitors/:id/delete", visitors.Delete)
	}

	// JSONを返すAPI系の経路
	api := router.Group("/api")
	api.Use(flow.RequireLoginAPI(), flow.VerifyCSRFAPI())
	{
		api.GET("/dashboard", visitors.Dashboard)
		api.GET("/visitors", visitors.List)
		api.POST("/reports/visitors", reportEnqueueHandler(jobManager))
		api.GET("/jobs/:id", jobStatusHandler(jobManager))
		api.GET("/jobs/:id/download", jobDownloadHandler(reports))
	}
}
