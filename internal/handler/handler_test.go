package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/credentials"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/domain"
)

/**********************************************
 * 测试替身
 **********************************************/

type fakeRepo struct {
	users      map[int64]*domain.User
	payslips   map[int64]*domain.Payslip
	nextUserID int64
	nextSlipID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:      make(map[int64]*domain.User),
		payslips:   make(map[int64]*domain.Payslip),
		nextUserID: 1,
		nextSlipID: 1,
	}
}

func (f *fakeRepo) CreateUser(user *domain.User) error {
	for _, u := range f.users {
		if u.EmployeeID == user.EmployeeID {
			return domain.ErrDuplicateEmployeeID
		}
		if u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}
	user.ID = f.nextUserID
	user.Version = 1
	f.nextUserID++
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeRepo) GetUserByID(id int64) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeRepo) GetUserByLoginID(loginID string) (*domain.User, error) {
	for _, u := range f.users {
		if u.EmployeeID == loginID || u.Email == loginID {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRepo) GetAllUsers() ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(f.users))
	for _, u := range f.users {
		clone := *u
		users = append(users, &clone)
	}
	return users, nil
}

func (f *fakeRepo) GetAllEmployees() ([]*domain.User, error) {
	employees := make([]*domain.User, 0)
	for _, u := range f.users {
		if !u.IsAdmin {
			clone := *u
			employees = append(employees, &clone)
		}
	}
	return employees, nil
}

func (f *fakeRepo) UpdateUser(user *domain.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	user.Version++
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeRepo) DeleteUserCascade(id int64) ([]string, error) {
	if _, ok := f.users[id]; !ok {
		return nil, domain.ErrNotFound
	}
	filePaths := make([]string, 0)
	for slipID, slip := range f.payslips {
		if slip.UserID == id {
			filePaths = append(filePaths, slip.FilePath)
			delete(f.payslips, slipID)
		}
	}
	delete(f.users, id)
	return filePaths, nil
}

func (f *fakeRepo) DeleteAllUsersExcept(keepID int64) ([]string, error) {
	filePaths := make([]string, 0)
	for slipID, slip := range f.payslips {
		filePaths = append(filePaths, slip.FilePath)
		delete(f.payslips, slipID)
	}
	for id := range f.users {
		if id != keepID {
			delete(f.users, id)
		}
	}
	return filePaths, nil
}

func (f *fakeRepo) CheckEmployeeIDIfExists(employeeID string) (bool, error) {
	for _, u := range f.users {
		if u.EmployeeID == employeeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CheckEmailIfExists(email string) (bool, error) {
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CreatePayslip(payslip *domain.Payslip) error {
	payslip.ID = f.nextSlipID
	f.nextSlipID++
	clone := *payslip
	f.payslips[payslip.ID] = &clone
	return nil
}

func (f *fakeRepo) GetPayslipByID(id int64) (*domain.Payslip, error) {
	slip, ok := f.payslips[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *slip
	return &clone, nil
}

func (f *fakeRepo) GetPayslipsByUserID(userID int64, descByUploadDate bool) ([]*domain.Payslip, error) {
	payslips := make([]*domain.Payslip, 0)
	for _, slip := range f.payslips {
		if slip.UserID == userID {
			clone := *slip
			payslips = append(payslips, &clone)
		}
	}
	return payslips, nil
}

type fakeStore struct {
	putKeys []string
	deleted []string
}

func (f *fakeStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	f.putKeys = append(f.putKeys, key)
	return nil
}

func (f *fakeStore) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://files.local/" + key, nil
}

func (f *fakeStore) Delete(ctx context.Context, keys []string) error {
	f.deleted = append(f.deleted, keys...)
	return nil
}

type fakePublisher struct {
	messages []domain.MailMessage
}

func (f *fakePublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	var mailMessage domain.MailMessage
	if err := json.Unmarshal(msg.Body, &mailMessage); err != nil {
		return err
	}
	f.messages = append(f.messages, mailMessage)
	return nil
}

/**********************************************
 * 测试基础设施
 **********************************************/

type testEnv struct {
	handler   *Handler
	cfg       *config.Config
	repo      *fakeRepo
	store     *fakeStore
	publisher *fakePublisher
	redis     *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 3600
	cfg.ResetToken.Expiration = 3600
	cfg.Redis.OperationTimeout = 5
	cfg.S3.OperationTimeout = 5
	cfg.RabbitMQ.PublishTimeout = 5
	cfg.Upload.MaxFileSize = 1 << 20
	cfg.NewUser.PasswordLength = 12
	cfg.Email.PortalBaseURL = "https://payslips.local"

	repo := newFakeRepo()
	store := &fakeStore{}
	publisher := &fakePublisher{}

	h, err := NewHandler(cfg, repo, publisher, rdb, store)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testEnv{
		handler:   h,
		cfg:       cfg,
		repo:      repo,
		store:     store,
		publisher: publisher,
		redis:     mr,
	}
}

func (e *testEnv) addUser(t *testing.T, employeeID, email, password string, isAdmin bool) *domain.User {
	t.Helper()

	user := &domain.User{
		EmployeeID: employeeID,
		Email:      email,
		FirstName:  "三",
		LastName:   "张",
		IsAdmin:    isAdmin,
	}
	require.NoError(t, credentials.SetPassword(user, password))
	require.NoError(t, e.repo.CreateUser(user))
	return user
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.handler.Mux.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

// login 登录并返回会话 cookie
func (e *testEnv) login(t *testing.T, loginID, password string) *http.Cookie {
	t.Helper()

	rec, resp := e.do(t, http.MethodPost, "/", map[string]string{"loginId": loginID, "password": password})
	require.True(t, resp.Success, "登录失败: %s", resp.Message)

	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("响应中没有会话 cookie")
	return nil
}

/**********************************************
 * 登录与会话
 **********************************************/

func TestLogin_ByEmployeeIDAndEmail(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "E1", "e1@x.com", "pw1", false)

	_, resp := env.do(t, http.MethodPost, "/", map[string]string{"loginId": "E1", "password": "pw1"})
	assert.True(t, resp.Success)

	_, resp = env.do(t, http.MethodPost, "/", map[string]string{"loginId": "e1@x.com", "password": "pw1"})
	assert.True(t, resp.Success)
}

func TestLogin_GenericFailureMessage(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "E1", "e1@x.com", "pw1", false)

	// 标识不存在和密码错误必须返回完全一致的消息
	_, wrongPassword := env.do(t, http.MethodPost, "/", map[string]string{"loginId": "E1", "password": "bad"})
	_, unknownUser := env.do(t, http.MethodPost, "/", map[string]string{"loginId": "nobody", "password": "bad"})

	assert.False(t, wrongPassword.Success)
	assert.False(t, unknownUser.Success)
	assert.Equal(t, wrongPassword.Message, unknownUser.Message)
}

func TestLogin_RejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "E1", "e1@x.com", "pw1", false)

	// 拼错的字段名直接报错，而不是被静默丢弃后返回含糊的校验错误
	_, resp := env.do(t, http.MethodPost, "/", map[string]any{
		"loginId": "E1", "password": "pw1", "remember": true,
	})
	assert.False(t, resp.Success)
}

func TestProtectedRouteWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	_, resp := env.do(t, http.MethodGet, "/profile", nil)
	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrUnauthorized.Error(), resp.Message)
}

func TestLogout_RevokesSession(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "E1", "e1@x.com", "pw1", false)
	cookie := env.login(t, "E1", "pw1")

	// 登出前 cookie 可以访问受保护路由
	_, resp := env.do(t, http.MethodGet, "/profile", nil, cookie)
	require.True(t, resp.Success)

	_, resp = env.do(t, http.MethodGet, "/logout", nil, cookie)
	require.True(t, resp.Success)

	// 登出后同一个 cookie 必须被拒绝
	_, resp = env.do(t, http.MethodGet, "/profile", nil, cookie)
	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrUnauthorized.Error(), resp.Message)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "E1", "e1@x.com", "pw1", false)
	cookie := env.login(t, "E1", "pw1")

	_, resp := env.do(t, http.MethodGet, "/profile", nil, cookie)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "E1", data["employeeId"])
	assert.Equal(t, "e1@x.com", data["email"])
	// 密码哈希绝不能出现在响应中
	_, hasHash := data["passwordHash"]
	assert.False(t, hasHash)
}

/**********************************************
 * 角色控制
 **********************************************/

func TestAdminRoutes_ForbiddenForEmployee(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "E1", "e1@x.com", "pw1", false)
	cookie := env.login(t, "E1", "pw1")

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/admin_dashboard"},
		{http.MethodPost, "/create_user"},
		{http.MethodPost, "/upload_payslip"},
		{http.MethodPost, "/admin_reset_password/1"},
		{http.MethodPost, "/admin_delete_user/1"},
		{http.MethodPost, "/admin_delete_all_users"},
	}

	for _, p := range paths {
		_, resp := env.do(t, p.method, p.path, nil, cookie)
		assert.False(t, resp.Success, "%s %s 不应该放行", p.method, p.path)
		assert.Equal(t, domain.ErrForbidden.Error(), resp.Message)
	}

	// 确认没有副作用
	assert.Len(t, env.repo.users, 1)
	assert.Len(t, env.repo.payslips, 0)
}

func TestEmployeeDashboard_ForbiddenForAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "A1", "a1@x.com", "pw", true)
	cookie := env.login(t, "A1", "pw")

	_, resp := env.do(t, http.MethodGet, "/employee_dashboard", nil, cookie)
	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrForbidden.Error(), resp.Message)
}

/**********************************************
 * 用户管理
 **********************************************/

func TestCreateUser_ScenarioAndDuplicates(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "A1", "a1@x.com", "pw", true)
	cookie := env.login(t, "A1", "pw")

	newUser := map[string]any{
		"employeeId": "E1",
		"email":      "e1@x.com",
		"firstName":  "三",
		"lastName":   "张",
		"password":   "pw1",
	}

	_, resp := env.do(t, http.MethodPost, "/create_user", newUser, cookie)
	require.True(t, resp.Success, resp.Message)

	// 同员工编号不同邮箱
	dup := map[string]any{
		"employeeId": "E1",
		"email":      "other@x.com",
		"firstName":  "四",
		"lastName":   "李",
		"password":   "pw2",
	}
	_, resp = env.do(t, http.MethodPost, "/create_user", dup, cookie)
	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrDuplicateEmployeeID.Error(), resp.Message)

	// 同邮箱不同员工编号
	dup["employeeId"] = "E2"
	dup["email"] = "e1@x.com"
	_, resp = env.do(t, http.MethodPost, "/create_user", dup, cookie)
	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrDuplicateEmail.Error(), resp.Message)

	// 新用户可以用员工编号登录
	_, resp = env.do(t, http.MethodPost, "/", map[string]string{"loginId": "E1", "password": "pw1"})
	assert.True(t, resp.Success)

	// 创建成功后会发送初始凭据邮件
	require.Len(t, env.publisher.messages, 1)
	assert.Equal(t, "create_user", env.publisher.messages[0].Type)
	assert.Equal(t, "e1@x.com", env.publisher.messages[0].To)
}

func TestCreateUser_GeneratedPassword(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "A1", "a1@x.com", "pw", true)
	cookie := env.login(t, "A1", "pw")

	// 不提供初始密码时由服务端随机生成并通过邮件告知
	newUser := map[string]any{
		"employeeId": "E1",
		"email":      "e1@x.com",
		"firstName":  "三",
		"lastName":   "张",
	}
	_, resp := env.do(t, http.MethodPost, "/create_user", newUser, cookie)
	require.True(t, resp.Success, resp.Message)

	require.Len(t, env.publisher.messages, 1)
	data := env.publisher.messages[0].Data.(map[string]any)
	password := data["password"].(string)
	assert.Len(t, password, 12)

	_, resp = env.do(t, http.MethodPost, "/", map[string]string{"loginId": "E1", "password": password})
	assert.True(t, resp.Success)
}

func TestAdminResetPassword(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "A1", "a1@x.com", "pw", true)
	target := env.addUser(t, "E1", "e1@x.com", "old", false)
	cookie := env.login(t, "A1", "pw")

	path := fmt.Sprintf("/admin_reset_password/%d", target.ID)
	_, resp := env.do(t, http.MethodPost, path, map[string]string{"newPassword": "new"}, cookie)
	require.True(t, resp.Success, resp.Message)

	// 旧密码失效，新密码生效，没有旧密码确认环节
	_, resp = env.do(t, http.MethodPost, "/", map[string]string{"loginId": "E1", "password": "old"})
	assert.False(t, resp.Success)
	_, resp = env.do(t, http.MethodPost, "/", map[string]string{"loginId": "E1", "password": "new"})
	assert.True(t, resp.Success)
}

func TestAdminDeleteUser_SelfDeletionGuard(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "A1", "a1@x.com", "pw", true)
	cookie := env.login(t, "A1", "pw")

	path := fmt.Sprintf("/admin_delete_user/%d", admin.ID)
	_, resp := env.do(t, http.MethodPost, path, nil, cookie)
	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrSelfDeletion.Error(), resp.Message)
	assert.Len(t, env.repo.users, 1)
}

func TestAdminDeleteUser_CascadesOnlyTargetPayslips(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "A1", "a1@x.com", "pw", true)
	userA := env.addUser(t, "E1", "e1@x.com", "pw1", false)
	userB := env.addUser(t, "E2", "e2@x.com", "pw2", false)

	require.NoError(t, env.repo.CreatePayslip(&domain.Payslip{UserID: userA.ID, FilePath: "payslips/2/jan.pdf", MonthYear: "2025-01"}))
	require.NoError(t, env.repo.CreatePayslip(&domain.Payslip{UserID: userA.ID, FilePath: "payslips/2/feb.pdf", MonthYear: "2025-02"}))
	require.NoError(t, env.repo.CreatePayslip(&domain.Payslip{UserID: userB.ID, FilePath: "payslips/3/jan.pdf", MonthYear: "2025-01"}))

	cookie := env.login(t, "A1", "pw")
	path := fmt.Sprintf("/admin_delete_user/%d", userA.ID)
	_, resp := env.do(t, http.MethodPost, path, nil, cookie)
	require.True(t, resp.Success, resp.Message)

	// A 的两张工资单被删除且文件已清理，B 的保持原样
	assert.Len(t, env.repo.payslips, 1)
	remaining, err := env.repo.GetPayslipsByUserID(userB.ID, false)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
	assert.ElementsMatch(t, []string{"payslips/2/jan.pdf", "payslips/2/feb.pdf"}, env.store.deleted)
}

func TestAdminDeleteUser_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "A1", "a1@x.com", "pw", true)
	cookie := env.login(t, "A1", "pw")

	_, resp := env.do(t, http.MethodPost, "/admin_delete_user/999", nil, cookie)
	assert.False(t, resp.Success)
	assert.Equal(t, "用户不存在", resp.Message)
}

func TestAdminDeleteAllUsers_KeepsOnlySelf(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "A1", "a1@x.com", "pw", true)
	userA := env.addUser(t, "E1", "e1@x.com", "pw1", false)
	env.addUser(t, "E2", "e2@x.com", "pw2", false)
	require.NoError(t, env.repo.CreatePayslip(&domain.Payslip{UserID: userA.ID, FilePath: "payslips/2/jan.pdf", MonthYear: "2025-01"}))

	cookie := env.login(t, "A1", "pw")
	_, resp := env.do(t, http.MethodPost, "/admin_delete_all_users", nil, cookie)
	require.True(t, resp.Success, resp.Message)

	assert.Len(t, env.repo.users, 1)
	_, err := env.repo.GetUserByID(admin.ID)
	assert.NoError(t, err)
	assert.Len(t, env.repo.payslips, 0)
	assert.Equal(t, []string{"payslips/2/jan.pdf"}, env.store.deleted)
}

/**********************************************
 * 工资单
 **********************************************/

func uploadRequest(t *testing.T, userID int64, monthYear, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	require.NoError(t, writer.WriteField("userId", fmt.Sprintf("%d", userID)))
	require.NoError(t, writer.WriteField("monthYear", monthYear))
	part, err := writer.CreateFormFile("payslip", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return buf, writer.FormDataContentType()
}

func TestUploadPayslip(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "A1", "a1@x.com", "pw", true)
	target := env.addUser(t, "E1", "e1@x.com", "pw1", false)
	cookie := env.login(t, "A1", "pw")

	body, contentType := uploadRequest(t, target.ID, "2025-01", "../evil/jan.pdf", []byte("%PDF-1.4 test"))
	req := httptest.NewRequest(http.MethodPost, "/upload_payslip", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)

	rec := httptest.NewRecorder()
	env.handler.Mux.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.True(t, resp.Success, resp.Message)

	// 文件名被净化，对象键按用户 ID 命名空间隔离
	expectedKey := fmt.Sprintf("payslips/%d/jan.pdf", target.ID)
	assert.Equal(t, []string{expectedKey}, env.store.putKeys)

	payslips, err := env.repo.GetPayslipsByUserID(target.ID, false)
	require.NoError(t, err)
	require.Len(t, payslips, 1)
	assert.Equal(t, expectedKey, payslips[0].FilePath)
	assert.Equal(t, "2025-01", payslips[0].MonthYear)

	// 上传后会通知员工
	require.Len(t, env.publisher.messages, 1)
	assert.Equal(t, "payslip_uploaded", env.publisher.messages[0].Type)
}

func TestUploadPayslip_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "A1", "a1@x.com", "pw", true)
	target := env.addUser(t, "E1", "e1@x.com", "pw1", false)
	env.cfg.Upload.MaxFileSize = 1024
	cookie := env.login(t, "A1", "pw")

	body, contentType := uploadRequest(t, target.ID, "2025-01", "jan.pdf", bytes.Repeat([]byte("a"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/upload_payslip", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)

	rec := httptest.NewRecorder()
	env.handler.Mux.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Empty(t, env.store.putKeys)
	assert.Len(t, env.repo.payslips, 0)
}

func TestUploadPayslip_UnknownTarget(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "A1", "a1@x.com", "pw", true)
	cookie := env.login(t, "A1", "pw")

	body, contentType := uploadRequest(t, 999, "2025-01", "jan.pdf", []byte("%PDF-1.4 test"))
	req := httptest.NewRequest(http.MethodPost, "/upload_payslip", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)

	rec := httptest.NewRecorder()
	env.handler.Mux.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "用户不存在", resp.Message)
	assert.Empty(t, env.store.putKeys)
}

func TestEmployeeDashboard_ListsOwnPayslips(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "E1", "e1@x.com", "pw1", false)
	other := env.addUser(t, "E2", "e2@x.com", "pw2", false)
	require.NoError(t, env.repo.CreatePayslip(&domain.Payslip{UserID: user.ID, FilePath: "payslips/1/jan.pdf", MonthYear: "2025-01"}))
	require.NoError(t, env.repo.CreatePayslip(&domain.Payslip{UserID: other.ID, FilePath: "payslips/2/jan.pdf", MonthYear: "2025-01"}))

	cookie := env.login(t, "E1", "pw1")
	_, resp := env.do(t, http.MethodGet, "/employee_dashboard", nil, cookie)
	require.True(t, resp.Success, resp.Message)

	payslips := resp.Data.([]any)
	assert.Len(t, payslips, 1)
}

func TestDownloadPayslip_OwnershipCheck(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "A1", "a1@x.com", "pw", true)
	owner := env.addUser(t, "E1", "e1@x.com", "pw1", false)
	env.addUser(t, "E2", "e2@x.com", "pw2", false)

	slip := &domain.Payslip{UserID: owner.ID, FilePath: "payslips/2/jan.pdf", MonthYear: "2025-01"}
	require.NoError(t, env.repo.CreatePayslip(slip))
	path := fmt.Sprintf("/payslips/%d/download", slip.ID)

	// 本人可以下载
	ownerCookie := env.login(t, "E1", "pw1")
	_, resp := env.do(t, http.MethodGet, path, nil, ownerCookie)
	require.True(t, resp.Success, resp.Message)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "https://files.local/payslips/2/jan.pdf", data["url"])

	// 其他员工被拒绝
	otherCookie := env.login(t, "E2", "pw2")
	_, resp = env.do(t, http.MethodGet, path, nil, otherCookie)
	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrForbidden.Error(), resp.Message)

	// 管理员可以下载任何人的
	adminCookie := env.login(t, "A1", "pw")
	_, resp = env.do(t, http.MethodGet, path, nil, adminCookie)
	assert.True(t, resp.Success)
}

/**********************************************
 * 密码重置
 **********************************************/

func TestRequireResetPassword_NoAccountEnumeration(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "E1", "e1@x.com", "pw1", false)

	_, known := env.do(t, http.MethodPost, "/auth/reset-password/require", map[string]string{"loginId": "E1"})
	_, unknown := env.do(t, http.MethodPost, "/auth/reset-password/require", map[string]string{"loginId": "nobody"})

	assert.True(t, known.Success)
	assert.True(t, unknown.Success)
	assert.Equal(t, known.Message, unknown.Message)

	// 只有存在的账号会触发邮件
	require.Len(t, env.publisher.messages, 1)
	assert.Equal(t, "reset_password", env.publisher.messages[0].Type)
}

func TestConfirmResetPassword_SingleUse(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "E1", "e1@x.com", "old", false)

	_, resp := env.do(t, http.MethodPost, "/auth/reset-password/require", map[string]string{"loginId": "E1"})
	require.True(t, resp.Success)

	stored, err := env.repo.GetUserByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetToken)
	token := *stored.ResetToken

	// 错误的令牌被拒绝
	_, resp = env.do(t, http.MethodPost, "/auth/reset-password/confirm", map[string]string{
		"loginId": "E1", "token": "wrong", "password": "new",
	})
	assert.False(t, resp.Success)

	// 正确的令牌成功修改密码
	_, resp = env.do(t, http.MethodPost, "/auth/reset-password/confirm", map[string]string{
		"loginId": "E1", "token": token, "password": "new",
	})
	require.True(t, resp.Success, resp.Message)

	_, resp = env.do(t, http.MethodPost, "/", map[string]string{"loginId": "E1", "password": "new"})
	assert.True(t, resp.Success)

	// 令牌已作废，不能重复使用
	_, resp = env.do(t, http.MethodPost, "/auth/reset-password/confirm", map[string]string{
		"loginId": "E1", "token": token, "password": "again",
	})
	assert.False(t, resp.Success)

	stored, err = env.repo.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ResetToken)
}

/**********************************************
 * 管理员面板
 **********************************************/

func TestAdminDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "A1", "a1@x.com", "pw", true)
	user := env.addUser(t, "E1", "e1@x.com", "pw1", false)
	require.NoError(t, env.repo.CreatePayslip(&domain.Payslip{UserID: user.ID, FilePath: "payslips/2/jan.pdf", MonthYear: "2025-01"}))

	cookie := env.login(t, "A1", "pw")
	_, resp := env.do(t, http.MethodGet, "/admin_dashboard", nil, cookie)
	require.True(t, resp.Success, resp.Message)

	data := resp.Data.(map[string]any)
	employees := data["employees"].([]any)
	require.Len(t, employees, 1)
	allUsers := data["allUsers"].([]any)
	assert.Len(t, allUsers, 2)
}

/**********************************************
 * 会话探测
 **********************************************/

func TestSessionProbe(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "A1", "a1@x.com", "pw", true)

	_, resp := env.do(t, http.MethodGet, "/", nil)
	require.True(t, resp.Success)
	assert.Nil(t, resp.Data)

	cookie := env.login(t, "A1", "pw")
	_, resp = env.do(t, http.MethodGet, "/", nil, cookie)
	require.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, string(domain.RoleAdmin), data["role"])
}
