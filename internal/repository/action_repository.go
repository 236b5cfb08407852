package repository

import (
	"database/sql"
	"errors"
	"time"

	"stablearb/internal/models"
)

// Ошибки репозитория действий
var (
	ErrActionNotFound = errors.New("action not found")
)

// ActionRepository - работа с таблицей actions
type ActionRepository struct {
	db *sql.DB
}

// NewActionRepository создает новый экземпляр репозитория
func NewActionRepository(db *sql.DB) *ActionRepository {
	return &ActionRepository{db: db}
}

// Create создает запись о действии
func (r *ActionRepository) Create(a *models.ActionRecord) error {
	query := `
		INSERT INTO actions (target, kind, deposit_id, amount, stable_amount, unit, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	err := r.db.QueryRow(
		query,
		a.Target,
		a.Kind,
		a.DepositID,
		a.Amount,
		a.StableAmount,
		a.Unit,
		a.Status,
		a.ErrorMessage,
		a.CreatedAt,
	).Scan(&a.ID)

	if err != nil {
		return err
	}

	return nil
}

// GetByID возвращает действие по ID
func (r *ActionRepository) GetByID(id int) (*models.ActionRecord, error) {
	query := `
		SELECT id, target, kind, deposit_id, amount, stable_amount, unit, status, error_message, created_at
		FROM actions
		WHERE id = $1`

	a := &models.ActionRecord{}
	err := r.db.QueryRow(query, id).Scan(
		&a.ID,
		&a.Target,
		&a.Kind,
		&a.DepositID,
		&a.Amount,
		&a.StableAmount,
		&a.Unit,
		&a.Status,
		&a.ErrorMessage,
		&a.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrActionNotFound
		}
		return nil, err
	}

	return a, nil
}

// GetByUnit возвращает действие по юниту отправленной транзакции
func (r *ActionRepository) GetByUnit(unit string) (*models.ActionRecord, error) {
	query := `
		SELECT id, target, kind, deposit_id, amount, stable_amount, unit, status, error_message, created_at
		FROM actions
		WHERE unit = $1`

	a := &models.ActionRecord{}
	err := r.db.QueryRow(query, unit).Scan(
		&a.ID,
		&a.Target,
		&a.Kind,
		&a.DepositID,
		&a.Amount,
		&a.StableAmount,
		&a.Unit,
		&a.Status,
		&a.ErrorMessage,
		&a.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrActionNotFound
		}
		return nil, err
	}

	return a, nil
}

// GetRecent возвращает последние N действий
func (r *ActionRepository) GetRecent(limit int) ([]*models.ActionRecord, error) {
	query := `
		SELECT id, target, kind, deposit_id, amount, stable_amount, unit, status, error_message, created_at
		FROM actions
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActions(rows)
}

// GetByTarget возвращает действия для конкретного arb-контракта
func (r *ActionRepository) GetByTarget(target string, limit int) ([]*models.ActionRecord, error) {
	query := `
		SELECT id, target, kind, deposit_id, amount, stable_amount, unit, status, error_message, created_at
		FROM actions
		WHERE target = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, target, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActions(rows)
}

// GetByStatus возвращает действия с определенным статусом
func (r *ActionRepository) GetByStatus(status string) ([]*models.ActionRecord, error) {
	query := `
		SELECT id, target, kind, deposit_id, amount, stable_amount, unit, status, error_message, created_at
		FROM actions
		WHERE status = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActions(rows)
}

// UpdateStatusByUnit обновляет статус действия, найденного по юниту.
// Ответ контракта приходит с trigger_unit, а не с нашим внутренним ID,
// поэтому журнал адресуется юнитом.
func (r *ActionRepository) UpdateStatusByUnit(unit, status, errorMessage string) error {
	query := `
		UPDATE actions
		SET status = $1, error_message = $2
		WHERE unit = $3`

	result, err := r.db.Exec(query, status, errorMessage, unit)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrActionNotFound
	}

	return nil
}

// DeleteOlderThan удаляет действия старше указанной даты
func (r *ActionRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `DELETE FROM actions WHERE created_at < $1`

	result, err := r.db.Exec(query, timestamp)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Count возвращает общее количество действий
func (r *ActionRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM actions`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// CountByStatus возвращает количество действий с определенным статусом
func (r *ActionRepository) CountByStatus(status string) (int, error) {
	query := `SELECT COUNT(*) FROM actions WHERE status = $1`

	var count int
	err := r.db.QueryRow(query, status).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func scanActions(rows *sql.Rows) ([]*models.ActionRecord, error) {
	var actions []*models.ActionRecord
	for rows.Next() {
		a := &models.ActionRecord{}
		err := rows.Scan(
			&a.ID,
			&a.Target,
			&a.Kind,
			&a.DepositID,
			&a.Amount,
			&a.StableAmount,
			&a.Unit,
			&a.Status,
			&a.ErrorMessage,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return actions, nil
}
