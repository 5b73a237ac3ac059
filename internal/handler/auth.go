package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/credentials"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/domain"
)

const sessionCookieName = "__payslip_portal_token"

type AuthClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// publishMail 将邮件任务序列化后发送到消息队列，由 cmd/mail 消费
func (h *Handler) publishMail(msg domain.MailMessage) error {
	mailData, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return h.mailChannel.PublishWithContext(
		ctx,
		"",
		"email_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        mailData,
		},
	)
}

// SessionProbe 报告当前会话状态，前端据此决定渲染登录页还是跳转面板
func (h *Handler) SessionProbe(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		h.successResponse(w, r, "未登录", nil)
		return
	}

	claims := &AuthClaims{}
	if _, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(h.config.JWT.Secret), nil
	}); err != nil {
		h.successResponse(w, r, "未登录", nil)
		return
	}

	h.successResponse(w, r, "已登录", map[string]string{"role": claims.Role})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoginID  string `json:"loginId" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 登录标识可以是员工编号或邮箱。
	// 标识不存在和密码错误必须返回同一条消息，防止账号枚举。
	user, err := h.repository.GetUserByLoginID(req.LoginID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.errorResponse(w, r, domain.ErrInvalidCredentials.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if !credentials.CheckPassword(user, req.Password) {
		h.errorResponse(w, r, domain.ErrInvalidCredentials.Error())
		return
	}

	// 生成 JWT，jti 用于登出时吊销会话
	expiration := time.Now().Add(time.Duration(h.config.JWT.Expiration) * time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(user.Role()),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Subject:   strconv.FormatInt(user.ID, 10),
		},
	})
	ss, err := token.SignedString([]byte(h.config.JWT.Secret))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 通过 http-only 的 cookie 返回给客户端
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    ss,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, cookie)

	h.successResponse(w, r, "登录成功", user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	// 会话令牌如果仍然有效，把 jti 写入吊销名单直到令牌自然过期
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		claims := &AuthClaims{}
		if _, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(h.config.JWT.Secret), nil
		}); err == nil && claims.ExpiresAt != nil {
			ttl := time.Until(claims.ExpiresAt.Time)
			if ttl > 0 {
				ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationTimeout)*time.Second)
				defer cancel()

				if err := h.redisClient.Set(ctx, revokedJTIKey(claims.ID), 1, ttl).Err(); err != nil {
					h.internalServerError(w, r, err)
					return
				}
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:    sessionCookieName,
		Value:   "",
		Expires: time.Now().Add(-time.Hour),
		Path:    "/",
	})

	h.successResponse(w, r, "登出成功", nil)
}

func (h *Handler) RequireResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoginID string `json:"loginId" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, err := h.repository.GetUserByLoginID(req.LoginID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// 这里虽然已经知道了用户不存在，但是为了安全起见，还是告诉客户端邮件已发送，以防止接口被滥用
			h.successResponse(w, r, "重置密码链接已通过邮件发送", nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 生成重置令牌并持久化，旧令牌直接被覆盖
	token, err := credentials.GenerateResetToken(user, time.Duration(h.config.ResetToken.Expiration)*time.Second)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.repository.UpdateUser(user); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	resetLink := fmt.Sprintf("%s/reset_password?loginId=%s&token=%s", h.config.Email.PortalBaseURL, user.EmployeeID, token)

	if err := h.publishMail(domain.MailMessage{
		Type: "reset_password",
		To:   user.Email,
		Data: domain.ResetPasswordMailData{
			FullName:   user.LastName + user.FirstName,
			ResetLink:  resetLink,
			Expiration: h.config.ResetToken.Expiration / 60,
		},
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "重置密码链接已通过邮件发送", nil)
}

func (h *Handler) ConfirmResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoginID  string `json:"loginId" validate:"required"`
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, err := h.repository.GetUserByLoginID(req.LoginID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.errorResponse(w, r, "重置令牌无效或已过期")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if !credentials.VerifyResetToken(user, req.Token) {
		h.errorResponse(w, r, "重置令牌无效或已过期")
		return
	}

	// 新密码和令牌作废在同一次更新中写入，令牌只能使用一次
	if err := credentials.SetPassword(user, req.Password); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	credentials.ClearResetToken(user)

	if err := h.repository.UpdateUser(user); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "重置密码成功", nil)
}
