package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/sentinel-safe/internal/flash"
)

// ContextSessionKey はハンドラー間でセッションを共有するためのキーです。
const ContextSessionKey = "auth.session"

// SessionFromContext は RequireLogin が格納したセッションを取り出します。
func SessionFromContext(c *gin.Context) *Session {
	if v, ok := c.Get(ContextSessionKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return nil
}

// RequireLogin はログイン済みセッションを検証するミドルウェアを返します。
// 未ログインはログイン画面へリダイレクトします。
func (f *Flow) RequireLogin() gin.HandlerFunc {
	return f.requireLogin(func(c *gin.Context) {
		f.audit.Security("Unauthorized access attempt", map[string]any{"ip": c.ClientIP(), "path": c.Request.URL.Path})
		f.cookies.ClearSession(c)
		c.Redirect(http.StatusFound, loginPath)
		c.Abort()
	})
}

// RequireLoginAPI は RequireLogin のAPI用版で、未ログインを401で返します。
func (f *Flow) RequireLoginAPI() gin.HandlerFunc {
	return f.requireLogin(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":    "UNAUTHORIZED",
			"message": "Login required",
		})
	})
}

func (f *Flow) requireLogin(reject gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := f.currentSession(c)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) {
				f.audit.Error("session store unavailable", map[string]any{"error": err.Error()})
			}
			reject(c)
			return
		}
		if session.UserID == 0 {
			// 認証前セッション（CSRFトークン配布用）はログイン扱いにしない
			reject(c)
			return
		}

		if err := f.sessions.Touch(c.Request.Context(), session.ID); err != nil {
			f.audit.Warning("failed to touch session", map[string]any{"error": err.Error()})
		}

		c.Set(ContextSessionKey, session)
		c.Next()
	}
}

// VerifyCSRF は状態変更リクエストのCSRFトークンを検証するミドルウェアを
// 返します。失敗時はセキュリティイベントを記録し、redirectPath へ
// フラッシュメッセージ付きで戻します。RequireLogin の後段に置きます。
func (f *Flow) VerifyCSRF(redirectPath string) gin.HandlerFunc {
	return f.verifyCSRF(func(c *gin.Context) {
		flash.Error(c, msgInvalidRequest)
		c.Redirect(http.StatusFound, redirectPath)
		c.Abort()
	})
}

// VerifyCSRFAPI は VerifyCSRF のAPI用版で、失敗を403で返します。
func (f *Flow) VerifyCSRFAPI() gin.HandlerFunc {
	return f.verifyCSRF(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"code":    "CSRF_INVALID",
			"message": msgInvalidRequest,
		})
	})
}

func (f *Flow) verifyCSRF(reject gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		session := SessionFromContext(c)
		if !VerifyCSRFToken(session, presentedCSRFToken(c)) {
			context := map[string]any{"ip": c.ClientIP(), "path": c.Request.URL.Path}
			if session != nil {
				context["user_id"] = session.UserID
			}
			f.audit.Security("CSRF token validation failed", context)
			reject(c)
			return
		}
		c.Next()
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
