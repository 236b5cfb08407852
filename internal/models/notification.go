package models

import "time"

// Notification представляет уведомление для operator-канала
type Notification struct {
	ID        int                    `json:"id" db:"id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Type      string                 `json:"type" db:"type"`         // ACTION, UNPROFITABLE, BOUNCE, MISMATCH, ERROR
	Severity  string                 `json:"severity" db:"severity"` // info, warn, error
	Target    *string                `json:"target,omitempty" db:"target"`
	Message   string                 `json:"message" db:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы уведомлений
const (
	NotificationTypeAction       = "ACTION"       // отправлено корректирующее действие
	NotificationTypeUnprofitable = "UNPROFITABLE" // расчёт показал убыток сверх допуска округления
	NotificationTypeBounce       = "BOUNCE"       // наша транзакция отклонена контрактом
	NotificationTypeMismatch     = "MISMATCH"     // reconciliation нашла расхождение балансов
	NotificationTypeError        = "ERROR"        // прочие ошибки
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
