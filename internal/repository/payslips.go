package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/domain"
)

func (r *Repository) CreatePayslip(payslip *domain.Payslip) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO payslips (user_id, file_path, month_year)
		VALUES ($1, $2, $3)
		RETURNING id, upload_date
	`

	args := []any{payslip.UserID, payslip.FilePath, payslip.MonthYear}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&payslip.ID, &payslip.UploadDate); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetPayslipByID(id int64) (*domain.Payslip, error) {
	query := `
		SELECT user_id, file_path, month_year, upload_date
		FROM payslips WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	payslip := &domain.Payslip{
		ID: id,
	}

	dst := []any{&payslip.UserID, &payslip.FilePath, &payslip.MonthYear, &payslip.UploadDate}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return payslip, nil
}

// GetPayslipsByUserID 返回用户的所有工资单，排序由调用方指定：
// descByUploadDate 为 true 时按上传时间倒序（管理员面板），否则按 id 正序
func (r *Repository) GetPayslipsByUserID(userID int64, descByUploadDate bool) ([]*domain.Payslip, error) {
	query := `
		SELECT id, file_path, month_year, upload_date
		FROM payslips WHERE user_id = $1 ORDER BY id
	`
	if descByUploadDate {
		query = `
			SELECT id, file_path, month_year, upload_date
			FROM payslips WHERE user_id = $1 ORDER BY upload_date DESC
		`
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payslips := make([]*domain.Payslip, 0)
	for rows.Next() {
		payslip := &domain.Payslip{
			UserID: userID,
		}
		dst := []any{&payslip.ID, &payslip.FilePath, &payslip.MonthYear, &payslip.UploadDate}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		payslips = append(payslips, payslip)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payslips, nil
}
