// Package flash はリダイレクトをまたぐ一度きりの表示メッセージを提供します。
// 認証状態は一切持たず、クッキーセッションには表示用文字列だけを置きます。
package flash

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// SessionName はフラッシュ用クッキーセッションの名前です。
	SessionName = "ss_flash"

	keyError   = "error_message"
	keySuccess = "success_message"
)

// Error はエラーメッセージを次のリクエストまで保持します。
func Error(c *gin.Context, message string) {
	set(c, keyError, message)
}

// Success は成功メッセージを次のリクエストまで保持します。
func Success(c *gin.Context, message string) {
	set(c, keySuccess, message)
}

// Take は保持中のメッセージを取り出して消去します。
func Take(c *gin.Context) (errorMsg, successMsg string) {
	session := sessions.Default(c)
	if v, ok := session.Get(keyError).(string); ok {
		errorMsg = v
	}
	if v, ok := session.Get(keySuccess).(string); ok {
		successMsg = v
	}
	if errorMsg != "" || successMsg != "" {
		session.Delete(keyError)
		session.Delete(keySuccess)
		_ = session.Save()
	}
	return errorMsg, successMsg
}

func set(c *gin.Context, key, message string) {
	session := sessions.Default(c)
	session.Set(key, message)
	_ = session.Save()
}
