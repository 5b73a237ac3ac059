package domain

import (
	"time"
)

type Payslip struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	FilePath   string    `json:"filePath"`
	MonthYear  string    `json:"monthYear"` // 格式为 YYYY-MM
	UploadDate time.Time `json:"uploadDate"`
}

// EmployeePayslips 用于管理员面板，将员工和其工资单关联在一起返回
type EmployeePayslips struct {
	Employee *User      `json:"employee"`
	Payslips []*Payslip `json:"payslips"`
}
