package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/domain"
)

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	h.successResponse(w, r, "获取个人信息成功", myInfo)
}

// EmployeeDashboard 返回当前员工自己的工资单，按 id 正序
func (h *Handler) EmployeeDashboard(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	payslips, err := h.repository.GetPayslipsByUserID(myInfo.ID, false)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取工资单列表成功", payslips)
}
