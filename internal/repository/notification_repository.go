package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"stablearb/internal/models"
)

// Ошибки репозитория уведомлений
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// NotificationRepository - работа с таблицей notifications
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создает новое уведомление
func (r *NotificationRepository) Create(n *models.Notification) error {
	query := `
		INSERT INTO notifications (timestamp, type, severity, target, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	var meta []byte
	if n.Meta != nil {
		raw, err := json.Marshal(n.Meta)
		if err != nil {
			return err
		}
		meta = raw
	}

	err := r.db.QueryRow(
		query,
		n.Timestamp,
		n.Type,
		n.Severity,
		n.Target,
		n.Message,
		meta,
	).Scan(&n.ID)

	if err != nil {
		return err
	}

	return nil
}

// GetByID возвращает уведомление по ID
func (r *NotificationRepository) GetByID(id int) (*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, target, message, meta
		FROM notifications
		WHERE id = $1`

	n, err := scanNotification(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	return n, nil
}

// GetRecent возвращает последние N уведомлений
func (r *NotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, target, message, meta
		FROM notifications
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// GetByTarget возвращает уведомления по конкретному arb-контракту
func (r *NotificationRepository) GetByTarget(target string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, target, message, meta
		FROM notifications
		WHERE target = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, target, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// GetBySeverity возвращает уведомления указанного уровня важности
func (r *NotificationRepository) GetBySeverity(severity string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, target, message, meta
		FROM notifications
		WHERE severity = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, severity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// DeleteAll очищает журнал уведомлений
func (r *NotificationRepository) DeleteAll() error {
	query := `DELETE FROM notifications`

	_, err := r.db.Exec(query)
	return err
}

// DeleteOlderThan удаляет уведомления старше указанной даты
func (r *NotificationRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE timestamp < $1`

	result, err := r.db.Exec(query, timestamp)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Count возвращает общее количество уведомлений
func (r *NotificationRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM notifications`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// CountByType возвращает количество уведомлений определенного типа
func (r *NotificationRepository) CountByType(notificationType string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE type = $1`

	var count int
	err := r.db.QueryRow(query, notificationType).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	n := &models.Notification{}
	var meta []byte

	err := row.Scan(
		&n.ID,
		&n.Timestamp,
		&n.Type,
		&n.Severity,
		&n.Target,
		&n.Message,
		&meta,
	)
	if err != nil {
		return nil, err
	}

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &n.Meta); err != nil {
			return nil, err
		}
	}

	return n, nil
}

func scanNotifications(rows *sql.Rows) ([]*models.Notification, error) {
	var notifications []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}
