package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookieName はセッション識別子を運ぶクッキーの名前です。
	SessionCookieName = "ss_session"

	// Remember Me クッキー。ユーザー名と表示名の2値を持ちます。
	RememberUsernameCookie = "u_name"
	RememberNameCookie     = "name"
)

// CookieConfig はクッキー属性の設定です。Secure はTLS終端の有無を
// 反映させます（本番モードで true）。
type CookieConfig struct {
	Secure           bool
	SessionMaxAge    time.Duration
	RememberMeMaxAge time.Duration
}

// SetSession はセッションクッキーを発行します。値は不透明な識別子のみです。
func (cc CookieConfig) SetSession(c *gin.Context, sessionID string) {
	cc.set(c, SessionCookieName, sessionID, cc.SessionMaxAge)
}

// ClearSession はセッションクッキーを破棄します。
func (cc CookieConfig) ClearSession(c *gin.Context) {
	cc.clear(c, SessionCookieName)
}

// SetRememberMe は利用者の明示的な要求時のみ発行する長寿命クッキーです。
// 生存期間はセッションとは独立です。
func (cc CookieConfig) SetRememberMe(c *gin.Context, username, name string) {
	cc.set(c, RememberUsernameCookie, username, cc.RememberMeMaxAge)
	cc.set(c, RememberNameCookie, name, cc.RememberMeMaxAge)
}

// ClearRememberMe は Remember Me クッキーを破棄します。
func (cc CookieConfig) ClearRememberMe(c *gin.Context) {
	cc.clear(c, RememberUsernameCookie)
	cc.clear(c, RememberNameCookie)
}

func (cc CookieConfig) set(c *gin.Context, name, value string, maxAge time.Duration) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (cc CookieConfig) clear(c *gin.Context, name string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
