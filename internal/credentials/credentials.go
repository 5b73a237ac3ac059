package credentials

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"time"

	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// 重置令牌的熵为 32 字节，编码后以 URL 安全的形式出现在邮件链接中
const resetTokenBytes = 32

// 测试中会替换这个变量来模拟时钟
var timeNow = time.Now

func SetPassword(user *domain.User, plaintext string) error {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(passwordHash)
	return nil
}

// CheckPassword 校验明文密码，哈希为空时直接返回 false 而不是报错
func CheckPassword(user *domain.User, plaintext string) bool {
	if user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plaintext)) == nil
}

// GenerateResetToken 生成新的重置令牌并覆盖旧令牌，返回令牌用于邮件发送
func GenerateResetToken(user *domain.User, ttl time.Duration) (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	token := base64.RawURLEncoding.EncodeToString(buf)
	expiry := timeNow().Add(ttl)

	user.ResetToken = &token
	user.ResetTokenExpiry = &expiry

	return token, nil
}

// VerifyResetToken 校验重置令牌，要求令牌非空、内容一致且未过期。
// 比较使用常数时间算法，避免通过响应时间猜测令牌内容。
// 校验本身不消耗令牌，令牌的作废由调用方在修改密码时完成。
func VerifyResetToken(user *domain.User, token string) bool {
	if user.ResetToken == nil || *user.ResetToken == "" || token == "" {
		return false
	}
	if user.ResetTokenExpiry == nil || !user.ResetTokenExpiry.After(timeNow()) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*user.ResetToken), []byte(token)) == 1
}

// ClearResetToken 作废当前令牌，重置密码成功后必须调用
func ClearResetToken(user *domain.User) {
	user.ResetToken = nil
	user.ResetTokenExpiry = nil
}
