package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type CreateUserMailData struct {
	FullName   string `json:"fullName"`
	EmployeeID string `json:"employeeId"`
	Password   string `json:"password"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	ResetLink  string `json:"resetLink"`
	Expiration int    `json:"expiration"` // 以分钟为单位
}

type PayslipUploadedMailData struct {
	FullName  string `json:"fullName"`
	MonthYear string `json:"monthYear"`
}
