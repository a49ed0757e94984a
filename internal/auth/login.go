package auth

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/sentinel-safe/internal/audit"
	"github.com/yourusername/sentinel-safe/internal/flash"
	"github.com/yourusername/sentinel-safe/internal/user"
)

// 利用者に見せるメッセージ。失敗理由はどの経路でも同じ文言に収束させ、
// アカウントの存在を推測させないようにします。ロックアウトだけは
// 残り時間を開示します。
const (
	msgInvalidRequest     = "Invalid request. Please try again."
	msgMissingCredentials = "Please enter both email and password."
	msgInvalidCredentials = "Invalid email or password. Please try again."
	msgSystemError        = "System error. Please try again later."
)

const (
	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

// Flow はログイン処理の状態機械を構成するオーケストレーターです。
// CSRF検証 → レート制限 → 資格情報照合 → セッション再発行の順に進み、
// すべての失敗経路はフラッシュメッセージ付きのリダイレクトに収束します。
type Flow struct {
	users    user.Store
	sessions *SessionManager
	limiter  *Limiter
	audit    *audit.Logger
	cookies  CookieConfig
}

// NewFlow は Flow を作成します。
func NewFlow(users user.Store, sessions *SessionManager, limiter *Limiter, auditLog *audit.Logger, cookies CookieConfig) *Flow {
	return &Flow{
		users:    users,
		sessions: sessions,
		limiter:  limiter,
		audit:    auditLog,
		cookies:  cookies,
	}
}

// PageToken は GET /login, GET /signup のハンドラーです。
// 認証前セッションを用意してCSRFトークンを払い出します。
// ページ本体の描画はフロントエンドが担います。
func (f *Flow) PageToken(c *gin.Context) {
	ctx := c.Request.Context()

	session, err := f.currentSession(c)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		f.systemError(c, "failed to load session", err, nil)
		return
	}

	// ログイン済みならダッシュボードへ
	if session != nil && session.UserID != 0 {
		c.Redirect(http.StatusFound, dashboardPath)
		return
	}

	if session == nil {
		session, err = f.sessions.Create(ctx, SessionOwner{})
		if err != nil {
			f.systemError(c, "failed to create pre-auth session", err, nil)
			return
		}
		f.cookies.SetSession(c, session.ID)
	}

	token, err := f.sessions.IssueCSRFToken(ctx, session.ID)
	if err != nil {
		f.systemError(c, "failed to issue csrf token", err, nil)
		return
	}

	errorMsg, successMsg := flash.Take(c)
	c.Header(CSRFHeader, token)
	c.JSON(http.StatusOK, gin.H{
		"csrfToken":      token,
		"errorMessage":   errorMsg,
		"successMessage": successMsg,
	})
}

// Login は POST /login のハンドラーです。
func (f *Flow) Login(c *gin.Context) {
	ctx := c.Request.Context()
	ip := c.ClientIP()

	// CSRF検証。認証前セッションに束縛されたトークンと照合する。
	session, err := f.currentSession(c)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		f.systemError(c, "failed to load session during login", err, nil)
		return
	}
	if !VerifyCSRFToken(session, presentedCSRFToken(c)) {
		f.audit.Security("CSRF token validation failed for login attempt", map[string]any{"ip": ip})
		f.rejectLogin(c, msgInvalidRequest)
		return
	}

	email := NormalizeEmail(c.PostForm("email"))
	password := c.PostForm("password")
	if email == "" || password == "" {
		f.rejectLogin(c, msgMissingCredentials)
		return
	}

	// レート制限の事前チェック。ロックアウト中は照合を行わない。
	decision, err := f.limiter.Check(ctx, email)
	if err != nil {
		f.systemError(c, "rate limit store unavailable", err, map[string]any{"email": email})
		return
	}
	if !decision.Allowed {
		f.audit.Security("Login attempt blocked due to rate limiting", map[string]any{"email": email, "ip": ip})
		f.rejectLogin(c, lockoutMessage(decision.RetryAfter))
		return
	}

	// 資格情報の照合。存在しないメールと誤ったパスワードは同じ文言で拒否する。
	u, err := f.users.FindByEmail(ctx, email)
	if err != nil {
		f.systemError(c, "Login database error: "+err.Error(), err, map[string]any{"email": email})
		return
	}
	if u == nil {
		f.credentialFailure(c, ctx, email, ip, "user not found")
		return
	}
	if !VerifyPassword(password, u.PasswordHash) {
		f.credentialFailure(c, ctx, email, ip, "invalid password")
		return
	}

	// 認証成功。カウンターを消し、セッション識別子を再発行する。
	if err := f.limiter.Reset(ctx, email); err != nil {
		f.audit.Warning("failed to reset rate limit after login", map[string]any{"email": email})
	}

	session.UserID = u.ID
	session.Name = u.Name
	session.Username = u.Username
	session.Email = u.Email
	rotated, err := f.sessions.Regenerate(ctx, session)
	if err != nil {
		f.systemError(c, "failed to regenerate session", err, map[string]any{"email": email})
		return
	}
	f.cookies.SetSession(c, rotated.ID)

	if c.PostForm("remember") != "" {
		f.cookies.SetRememberMe(c, u.Username, u.Name)
	}

	f.audit.Activity(u.ID, "LOGIN", "Successful login", ip)
	f.audit.Info("User logged in successfully", map[string]any{"user_id": u.ID, "email": email})

	flash.Success(c, "Welcome back, "+u.Name+"!")
	c.Redirect(http.StatusFound, dashboardPath)
}

// Logout は POST /logout のハンドラーです。RequireLogin と VerifyCSRF の
// 後段で動きます。
func (f *Flow) Logout(c *gin.Context) {
	session := SessionFromContext(c)

	if err := f.sessions.Destroy(c.Request.Context(), session.ID); err != nil {
		f.systemError(c, "failed to destroy session", err, map[string]any{"user_id": session.UserID})
		return
	}
	f.cookies.ClearSession(c)
	f.cookies.ClearRememberMe(c)

	f.audit.Activity(session.UserID, "LOGOUT", "User logged out", c.ClientIP())

	flash.Success(c, "You have been logged out.")
	c.Redirect(http.StatusFound, loginPath)
}

// Signup は POST /signup のハンドラーです。
func (f *Flow) Signup(c *gin.Context) {
	ctx := c.Request.Context()
	ip := c.ClientIP()

	session, err := f.currentSession(c)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		f.systemError(c, "failed to load session during signup", err, nil)
		return
	}
	if !VerifyCSRFToken(session, presentedCSRFToken(c)) {
		f.audit.Security("CSRF token validation failed for signup", map[string]any{"ip": ip})
		f.rejectTo(c, "/signup", msgInvalidRequest)
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	username := strings.TrimSpace(c.PostForm("username"))
	email := NormalizeEmail(c.PostForm("email"))
	password := c.PostForm("password")
	confirm := c.PostForm("confirm_password")

	if verr := validateSignup(name, username, email, password, confirm); verr != nil {
		f.audit.Warning("Signup validation failed", map[string]any{"errors": verr.Fields})
		f.rejectTo(c, "/signup", joinFieldErrors(verr))
		return
	}

	for _, check := range []struct {
		column, value, message string
	}{
		{"email", email, "Email is already taken"},
		{"username", username, "Username is already taken"},
	} {
		taken, err := f.users.ExistsByColumn(ctx, "users", check.column, check.value, 0)
		if err != nil {
			f.systemError(c, "Signup uniqueness check failed: "+err.Error(), err, map[string]any{"email": email})
			return
		}
		if taken {
			f.rejectTo(c, "/signup", check.message)
			return
		}
	}

	hash, err := HashPassword(password)
	if err != nil {
		f.systemError(c, "failed to hash password", err, nil)
		return
	}

	id, err := f.users.Insert(ctx, &user.User{
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		f.systemError(c, "User registration failed: "+err.Error(), err, map[string]any{"username": username, "email": email})
		return
	}

	f.audit.Activity(id, "SIGNUP", "New user registered", ip)
	f.audit.Info("New user registered successfully", map[string]any{"username": username, "email": email})

	flash.Success(c, "Registration successful! You can now log in.")
	c.Redirect(http.StatusFound, loginPath)
}

// currentSession はクッキーのセッション識別子から有効なセッションを引きます。
func (f *Flow) currentSession(c *gin.Context) (*Session, error) {
	id, err := c.Cookie(SessionCookieName)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return f.sessions.Get(c.Request.Context(), id)
}

func (f *Flow) credentialFailure(c *gin.Context, ctx context.Context, email, ip, reason string) {
	if err := f.limiter.RecordFailure(ctx, email); err != nil {
		f.audit.Warning("failed to record login failure", map[string]any{"email": email})
	}
	f.audit.Security("Failed login attempt - "+reason, map[string]any{"email": email, "ip": ip})
	f.rejectLogin(c, msgInvalidCredentials)
}

func (f *Flow) rejectLogin(c *gin.Context, message string) {
	f.rejectTo(c, loginPath, message)
}

func (f *Flow) rejectTo(c *gin.Context, path, message string) {
	flash.Error(c, message)
	c.Redirect(http.StatusFound, path)
}

// systemError はストア障害などの内部エラーです。詳細はサーバー側にだけ残し、
// 利用者には汎用メッセージを返して拒否します（フェイルクローズ）。
func (f *Flow) systemError(c *gin.Context, logMessage string, err error, context map[string]any) {
	if context == nil {
		context = map[string]any{}
	}
	context["error"] = err.Error()
	f.audit.Error(logMessage, context)
	f.rejectLogin(c, msgSystemError)
}

func presentedCSRFToken(c *gin.Context) string {
	if token := c.PostForm(CSRFFormField); token != "" {
		return token
	}
	return c.GetHeader(CSRFHeader)
}

func lockoutMessage(retryAfter time.Duration) string {
	minutes := int((retryAfter + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return "Too many failed login attempts. Please try again in " +
		strconv.Itoa(minutes) + " " + unit + "."
}

func validateSignup(name, username, email, password, confirm string) *ValidationError {
	fields := map[string]string{}

	if name == "" {
		fields["name"] = "Name is required"
	}
	if username == "" {
		fields["username"] = "Username is required"
	}
	switch {
	case email == "":
		fields["email"] = "Email is required"
	default:
		if _, err := mail.ParseAddress(email); err != nil {
			fields["email"] = "Email must be a valid email address"
		}
	}
	if password == "" {
		fields["password"] = "Password is required"
	} else if violations := CheckPasswordPolicy(password); len(violations) > 0 {
		messages := make([]string, 0, len(violations))
		for _, v := range violations {
			messages = append(messages, v.Message)
		}
		fields["password"] = strings.Join(messages, "; ")
	}
	if password != confirm {
		fields["confirm_password"] = "Passwords do not match"
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func joinFieldErrors(verr *ValidationError) string {
	// 表示順を安定させるためフィールドの定義順で並べる
	order := []string{"name", "username", "email", "password", "confirm_password"}
	var messages []string
	for _, field := range order {
		if msg, ok := verr.Fields[field]; ok {
			messages = append(messages, msg)
		}
	}
	return strings.Join(messages, " ")
}
