package seed

import (
	"log/slog"
	"math/rand"

	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/repository"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/storage"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/utils"
)

// SeedUsers 插入 n 个随机员工账号，密码统一使用配置中的种子密码
func SeedUsers(r *repository.Repository, n int, password string, emailDomain string) int {
	cnt := 0
	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(password, emailDomain)
		if err != nil {
			slog.Error("无法生成随机用户", slog.String("error", err.Error()))
			continue
		}

		if err := r.CreateUser(user); err != nil {
			slog.Error("无法插入用户", slog.String("error", err.Error()))
			continue
		}

		cnt++
	}

	return cnt
}

// SeedPayslips 为每个非管理员用户插入若干随机工资单记录。
// 这里只写数据库记录，不上传真实文件，对象键指向不存在的测试文件。
func SeedPayslips(r *repository.Repository, maxPerUser int) int {
	employees, err := r.GetAllEmployees()
	if err != nil {
		slog.Error("无法获取员工列表", slog.String("error", err.Error()))
		return 0
	}

	cnt := 0
	for _, employee := range employees {
		n := rand.Intn(maxPerUser) + 1
		for i := 0; i < n; i++ {
			monthYear := utils.GenerateRandomMonthYear()
			payslip := &domain.Payslip{
				UserID:    employee.ID,
				FilePath:  storage.PayslipKey(employee.ID, monthYear+".pdf"),
				MonthYear: monthYear,
			}
			if err := r.CreatePayslip(payslip); err != nil {
				slog.Error("无法插入工资单", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}
	}

	return cnt
}
