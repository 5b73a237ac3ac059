package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/storage"
)

// AdminDashboard 返回所有员工及其工资单，工资单按上传时间倒序
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	employees, err := h.repository.GetAllEmployees()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	allUsers, err := h.repository.GetAllUsers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	employeePayslips := make([]*domain.EmployeePayslips, 0, len(employees))
	for _, employee := range employees {
		payslips, err := h.repository.GetPayslipsByUserID(employee.ID, true)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		employeePayslips = append(employeePayslips, &domain.EmployeePayslips{
			Employee: employee,
			Payslips: payslips,
		})
	}

	h.successResponse(w, r, "获取管理员面板数据成功", map[string]any{
		"employees": employeePayslips,
		"allUsers":  allUsers,
	})
}

func (h *Handler) UploadPayslip(w http.ResponseWriter, r *http.Request) {
	// ParseMultipartForm 的参数只限制内存缓冲，超出部分会落盘，
	// 请求体总大小要靠 MaxBytesReader 拦截
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(h.config.Upload.MaxFileSize); err != nil {
		h.badRequest(w, r, errors.New("上传表单无效"))
		return
	}

	targetUserID, err := strconv.ParseInt(r.FormValue("userId"), 10, 64)
	if err != nil {
		h.badRequest(w, r, errors.New("用户ID无效"))
		return
	}

	monthYear := r.FormValue("monthYear")
	if monthYear == "" {
		h.badRequest(w, r, errors.New("月份不能为空"))
		return
	}

	file, header, err := r.FormFile("payslip")
	if err != nil {
		h.badRequest(w, r, errors.New("缺少工资单文件"))
		return
	}
	defer file.Close()

	// 确认目标用户存在
	targetUser, err := h.repository.GetUserByID(targetUserID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.errorResponse(w, r, "用户不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 文件名先净化再拼入对象键，防止路径穿越
	key := storage.PayslipKey(targetUser.ID, header.Filename)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.S3.OperationTimeout)*time.Second)
	defer cancel()

	if err := h.store.Put(ctx, key, file, contentType); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	payslip := &domain.Payslip{
		UserID:    targetUser.ID,
		FilePath:  key,
		MonthYear: monthYear,
	}
	if err := h.repository.CreatePayslip(payslip); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 通知员工有新的工资单
	if err := h.publishMail(domain.MailMessage{
		Type: "payslip_uploaded",
		To:   targetUser.Email,
		Data: domain.PayslipUploadedMailData{
			FullName:  targetUser.LastName + targetUser.FirstName,
			MonthYear: payslip.MonthYear,
		},
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "工资单上传成功", payslip)
}

// DownloadPayslip 返回带签名的临时下载链接，员工只能下载自己的工资单
func (h *Handler) DownloadPayslip(w http.ResponseWriter, r *http.Request) {
	payslip := r.Context().Value(PayslipCtxKey).(*domain.Payslip)

	role := domain.Role(r.Context().Value(RoleCtxKey).(string))
	if role != domain.RoleAdmin {
		sub, err := strconv.ParseInt(r.Context().Value(SubCtxKey).(string), 10, 64)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if payslip.UserID != sub {
			h.errorResponse(w, r, domain.ErrForbidden.Error())
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.S3.OperationTimeout)*time.Second)
	defer cancel()

	url, err := h.store.PresignGet(ctx, payslip.FilePath)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取下载链接成功", map[string]string{"url": url})
}
