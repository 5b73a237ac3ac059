package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"普通文件名", "payslip-2025-01.pdf", "payslip-2025-01.pdf"},
		{"带路径", "dir/sub/payslip.pdf", "payslip.pdf"},
		{"windows 路径", `C:\Users\evil\payslip.pdf`, "payslip.pdf"},
		{"路径穿越", "../../etc/passwd", "passwd"},
		{"纯点号", "..", "payslip"},
		{"空字符串", "", "payslip"},
		{"空格和特殊字符", "工资单 2025 01.pdf", "____2025_01.pdf"},
		{"保留安全字符", "a_b-c.1.pdf", "a_b-c.1.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestPayslipKey(t *testing.T) {
	assert.Equal(t, "payslips/42/jan.pdf", PayslipKey(42, "jan.pdf"))
	assert.Equal(t, "payslips/7/passwd", PayslipKey(7, "../../etc/passwd"))
}
