package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/storage"
)

// MailPublisher 是邮件队列的发布接口，*amqp.Channel 实现了它，测试中用假实现替换
type MailPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Repository 列出 handler 依赖的存储操作，由 repository.Repository 实现
type Repository interface {
	CreateUser(user *domain.User) error
	GetUserByID(id int64) (*domain.User, error)
	GetUserByLoginID(loginID string) (*domain.User, error)
	GetAllUsers() ([]*domain.User, error)
	GetAllEmployees() ([]*domain.User, error)
	UpdateUser(user *domain.User) error
	DeleteUserCascade(id int64) ([]string, error)
	DeleteAllUsersExcept(keepID int64) ([]string, error)
	CheckEmployeeIDIfExists(employeeID string) (bool, error)
	CheckEmailIfExists(email string) (bool, error)
	CreatePayslip(payslip *domain.Payslip) error
	GetPayslipByID(id int64) (*domain.Payslip, error)
	GetPayslipsByUserID(userID int64, descByUploadDate bool) ([]*domain.Payslip, error)
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  Repository
	translator  ut.Translator
	mailChannel MailPublisher
	redisClient *redis.Client
	store       storage.PayslipStore

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo Repository, mailCh MailPublisher, rdb *redis.Client, store storage.PayslipStore) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,
		store:       store,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 登录与密码重置不要求会话
	h.Mux.Get("/", h.SessionProbe)
	h.Mux.Post("/", h.Login)
	h.Mux.Get("/logout", h.Logout)
	h.Mux.Route("/auth/reset-password", func(r chi.Router) {
		r.Post("/require", h.RequireResetPassword)
		r.Post("/confirm", h.ConfirmResetPassword)
	})

	// 以下路由必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.With(h.myInfo).Get("/profile", h.Profile)
		r.With(h.requireRole(false)).With(h.myInfo).Get("/employee_dashboard", h.EmployeeDashboard)
		r.With(h.payslipInfo).Get("/payslips/{id}/download", h.DownloadPayslip)

		// 管理员操作
		r.Group(func(r chi.Router) {
			r.Use(h.requireRole(true))
			r.Use(h.myInfo)

			r.Get("/admin_dashboard", h.AdminDashboard)
			r.Post("/upload_payslip", h.UploadPayslip)
			r.Get("/create_user", h.CreateUserForm)
			r.Post("/create_user", h.CreateUser)
			r.With(h.userInfo).Post("/admin_reset_password/{userID}", h.AdminResetPassword)
			r.With(h.userInfo).Post("/admin_delete_user/{userID}", h.AdminDeleteUser)
			r.Post("/admin_delete_all_users", h.AdminDeleteAllUsers)
		})
	})
}
