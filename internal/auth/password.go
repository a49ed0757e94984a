package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PolicyViolation はパスワードポリシー違反の1件を表します。
type PolicyViolation struct {
	Rule    string // 機械判定用のルール名
	Message string // 利用者に表示するメッセージ
}

const minPasswordLength = 8

// HashPassword は保存用のbcryptハッシュを生成します。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword は平文パスワードを保存済みハッシュと照合します。
// 不明なハッシュ形式はエラーにせず false を返します。
func VerifyPassword(password, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}

// CheckPasswordPolicy はパスワード強度を検証し、違反したルールを
// すべて返します。呼び出し側が一度に全件表示できるようにするためです。
func CheckPasswordPolicy(password string) []PolicyViolation {
	var violations []PolicyViolation

	if len(password) < minPasswordLength {
		violations = append(violations, PolicyViolation{
			Rule:    "min_length",
			Message: "Password must be at least 8 characters long",
		})
	}
	if !strings.ContainsFunc(password, isUpperASCII) {
		violations = append(violations, PolicyViolation{
			Rule:    "uppercase",
			Message: "Password must contain at least one uppercase letter",
		})
	}
	if !strings.ContainsFunc(password, isLowerASCII) {
		violations = append(violations, PolicyViolation{
			Rule:    "lowercase",
			Message: "Password must contain at least one lowercase letter",
		})
	}
	if !strings.ContainsFunc(password, isDigitASCII) {
		violations = append(violations, PolicyViolation{
			Rule:    "digit",
			Message: "Password must contain at least one number",
		})
	}
	if !strings.ContainsFunc(password, func(r rune) bool {
		return !isUpperASCII(r) && !isLowerASCII(r) && !isDigitASCII(r)
	}) {
		violations = append(violations, PolicyViolation{
			Rule:    "special",
			Message: "Password must contain at least one special character",
		})
	}

	return violations
}

func isUpperASCII(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLowerASCII(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigitASCII(r rune) bool { return r >= '0' && r <= '9' }
