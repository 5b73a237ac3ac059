package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/domain"
)

// mapUserConstraintError 将 postgres 的唯一约束冲突翻译成业务错误。
// 唯一性虽然会在 handler 中预先检查，但并发的请求仍然可能触发约束，
// 所以这里的翻译是兜底。
func mapUserConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.ConstraintName {
		case "users_employee_id_key":
			return domain.ErrDuplicateEmployeeID
		case "users_email_key":
			return domain.ErrDuplicateEmail
		}
	}
	return err
}

func (r *Repository) CreateUser(user *domain.User) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO users (employee_id, email, first_name, last_name, phone_number, password_hash, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version
	`

	args := []any{user.EmployeeID, user.Email, user.FirstName, user.LastName, user.PhoneNumber, user.PasswordHash, user.IsAdmin}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.CreatedAt, &user.Version); err != nil {
		return mapUserConstraintError(err)
	}

	return nil
}

func (r *Repository) GetUserByID(id int64) (*domain.User, error) {
	query := `
		SELECT employee_id, email, first_name, last_name, COALESCE(phone_number, ''), password_hash, is_admin, reset_token, reset_token_expiry, created_at, version
		FROM users WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	user := &domain.User{
		ID: id,
	}

	dst := []any{&user.EmployeeID, &user.Email, &user.FirstName, &user.LastName, &user.PhoneNumber, &user.PasswordHash, &user.IsAdmin, &user.ResetToken, &user.ResetTokenExpiry, &user.CreatedAt, &user.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

// GetUserByLoginID 按登录标识查找用户，标识可以是员工编号或邮箱
func (r *Repository) GetUserByLoginID(loginID string) (*domain.User, error) {
	query := `
		SELECT id, employee_id, email, first_name, last_name, COALESCE(phone_number, ''), password_hash, is_admin, reset_token, reset_token_expiry, created_at, version
		FROM users WHERE employee_id = $1 OR email = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	user := &domain.User{}

	dst := []any{&user.ID, &user.EmployeeID, &user.Email, &user.FirstName, &user.LastName, &user.PhoneNumber, &user.PasswordHash, &user.IsAdmin, &user.ResetToken, &user.ResetTokenExpiry, &user.CreatedAt, &user.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, loginID).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

func (r *Repository) GetAllUsers() ([]*domain.User, error) {
	query := `
		SELECT id, employee_id, email, first_name, last_name, COALESCE(phone_number, ''), is_admin, created_at, version
		FROM users ORDER BY id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user := &domain.User{}
		dst := []any{&user.ID, &user.EmployeeID, &user.Email, &user.FirstName, &user.LastName, &user.PhoneNumber, &user.IsAdmin, &user.CreatedAt, &user.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *Repository) GetAllEmployees() ([]*domain.User, error) {
	query := `
		SELECT id, employee_id, email, first_name, last_name, COALESCE(phone_number, ''), created_at, version
		FROM users WHERE is_admin = false ORDER BY id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]*domain.User, 0)
	for rows.Next() {
		user := &domain.User{}
		dst := []any{&user.ID, &user.EmployeeID, &user.Email, &user.FirstName, &user.LastName, &user.PhoneNumber, &user.CreatedAt, &user.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		employees = append(employees, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return employees, nil
}

func (r *Repository) UpdateUser(user *domain.User) error {
	query := `
		UPDATE users
		SET
			email = $1,
			phone_number = $2,
			password_hash = $3,
			is_admin = $4,
			reset_token = $5,
			reset_token_expiry = $6,
			version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{user.Email, user.PhoneNumber, user.PasswordHash, user.IsAdmin, user.ResetToken, user.ResetTokenExpiry, user.ID, user.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&user.Version); err != nil {
		return mapUserConstraintError(err)
	}

	return nil
}

// DeleteUserCascade 在单个事务中先删除用户的所有工资单再删除用户本身，
// 返回被删除工资单的文件路径，供调用方清理对象存储。
func (r *Repository) DeleteUserCascade(id int64) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	filePaths, err := collectFilePaths(ctx, tx, `SELECT file_path FROM payslips WHERE user_id = $1`, id)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM payslips WHERE user_id = $1`, id); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return filePaths, nil
}

// DeleteAllUsersExcept 在单个事务中删除所有工资单以及除 keepID 外的所有用户
func (r *Repository) DeleteAllUsersExcept(keepID int64) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	filePaths, err := collectFilePaths(ctx, tx, `SELECT file_path FROM payslips`)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM payslips`); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id != $1`, keepID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return filePaths, nil
}

func collectFilePaths(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	filePaths := make([]string, 0)
	for rows.Next() {
		var filePath string
		if err := rows.Scan(&filePath); err != nil {
			return nil, err
		}
		filePaths = append(filePaths, filePath)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return filePaths, nil
}

func (r *Repository) CheckEmployeeIDIfExists(employeeID string) (bool, error) {
	isExists := false

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM users WHERE employee_id = $1)
	`
	if err := r.dbpool.QueryRowContext(ctx, query, employeeID).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}

func (r *Repository) CheckEmailIfExists(email string) (bool, error) {
	isExists := false

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)
	`
	if err := r.dbpool.QueryRowContext(ctx, query, email).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}
