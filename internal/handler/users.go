package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/credentials"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/utils"
)

// CreateUserForm 对应建号页面的 GET 请求，表单由前端渲染，这里只确认权限
func (h *Handler) CreateUserForm(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "允许创建用户", nil)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID  string `json:"employeeId" validate:"required"`
		Email       string `json:"email" validate:"required,email"`
		FirstName   string `json:"firstName" validate:"required"`
		LastName    string `json:"lastName" validate:"required"`
		PhoneNumber string `json:"phoneNumber"`
		Password    string `json:"password"`
		IsAdmin     bool   `json:"isAdmin"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 不提供初始密码时随机生成一个，通过邮件发给员工
	if req.Password == "" {
		req.Password = utils.GenerateRandomPassword(h.config.NewUser.PasswordLength)
	}

	// 员工编号和邮箱分别检查，冲突时明确告知是哪个字段重复
	isExists, err := h.repository.CheckEmployeeIDIfExists(req.EmployeeID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if isExists {
		h.errorResponse(w, r, domain.ErrDuplicateEmployeeID.Error())
		return
	}

	isExists, err = h.repository.CheckEmailIfExists(req.Email)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if isExists {
		h.errorResponse(w, r, domain.ErrDuplicateEmail.Error())
		return
	}

	user := &domain.User{
		EmployeeID:  req.EmployeeID,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		IsAdmin:     req.IsAdmin,
	}
	if err := credentials.SetPassword(user, req.Password); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.repository.CreateUser(user); err != nil {
		// 预检查和插入之间可能有并发请求抢先占用，约束冲突在这里兜底
		switch {
		case errors.Is(err, domain.ErrDuplicateEmployeeID), errors.Is(err, domain.ErrDuplicateEmail):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 将初始凭据通过邮件发给员工
	if err := h.publishMail(domain.MailMessage{
		Type: "create_user",
		To:   user.Email,
		Data: domain.CreateUserMailData{
			FullName:   user.LastName + user.FirstName,
			EmployeeID: user.EmployeeID,
			Password:   req.Password,
		},
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "用户创建成功", user)
}

func (h *Handler) AdminResetPassword(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	var req struct {
		NewPassword string `json:"newPassword" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 管理员重置不需要旧密码确认
	if err := credentials.SetPassword(user, req.NewPassword); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.repository.UpdateUser(user); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "重置密码成功", nil)
}

// cleanupFiles 在数据库删除提交后尽力清理对象存储，
// 失败只记录日志，不影响已经完成的删除
func (h *Handler) cleanupFiles(filePaths []string) {
	if len(filePaths) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.S3.OperationTimeout)*time.Second)
	defer cancel()

	if err := h.store.Delete(ctx, filePaths); err != nil {
		slog.Error("清理工资单文件失败", "error", err)
	}
}

func (h *Handler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	// 防止管理员删除自己的账号
	if user.ID == myInfo.ID {
		h.errorResponse(w, r, domain.ErrSelfDeletion.Error())
		return
	}

	filePaths, err := h.repository.DeleteUserCascade(user.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.errorResponse(w, r, "用户不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.cleanupFiles(filePaths)

	h.successResponse(w, r, "用户及其所有工资单已删除", nil)
}

func (h *Handler) AdminDeleteAllUsers(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	filePaths, err := h.repository.DeleteAllUsersExcept(myInfo.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.cleanupFiles(filePaths)

	h.successResponse(w, r, "除当前管理员外的所有用户及所有工资单已删除", nil)
}
