package service

import (
	"time"

	"stablearb/internal/bot"
	"stablearb/internal/models"
	"stablearb/internal/repository"
)

// NotificationRepositoryInterface определяет интерфейс репозитория уведомлений
type NotificationRepositoryInterface interface {
	Create(notif *models.Notification) error
	GetRecent(limit int) ([]*models.Notification, error)
	GetByTarget(target string, limit int) ([]*models.Notification, error)
	GetBySeverity(severity string, limit int) ([]*models.Notification, error)
	DeleteAll() error
	DeleteOlderThan(timestamp time.Time) (int64, error)
	Count() (int, error)
	CountByType(notifType string) (int, error)
}

// ActionRepositoryInterface определяет интерфейс репозитория действий
type ActionRepositoryInterface interface {
	Create(a *models.ActionRecord) error
	GetByUnit(unit string) (*models.ActionRecord, error)
	GetRecent(limit int) ([]*models.ActionRecord, error)
	GetByTarget(target string, limit int) ([]*models.ActionRecord, error)
	GetByStatus(status string) ([]*models.ActionRecord, error)
	UpdateStatusByUnit(unit, status, errorMessage string) error
	DeleteOlderThan(timestamp time.Time) (int64, error)
	Count() (int, error)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ NotificationRepositoryInterface = (*repository.NotificationRepository)(nil)
var _ ActionRepositoryInterface = (*repository.ActionRepository)(nil)

// WebSocketBroadcaster - интерфейс для отправки WebSocket сообщений
//
// Позволяет избежать циклических зависимостей между пакетами
// и упрощает тестирование (можно подставить mock)
type WebSocketBroadcaster interface {
	BroadcastNotification(notif *models.Notification)
	BroadcastActionUpdate(action *models.ActionRecord)
	BroadcastTargetUpdate(status *bot.TargetStatus)
}

// ============ Интерфейсы сервисов для Dependency Injection ============

// NotificationServiceInterface определяет интерфейс сервиса уведомлений
type NotificationServiceInterface interface {
	GetNotifications(severity string, limit int) ([]*models.Notification, error)
	GetNotificationsByTarget(target string, limit int) ([]*models.Notification, error)
	ClearNotifications() error
	GetNotificationCount() (int, error)
}

// ActionServiceInterface определяет интерфейс сервиса журнала действий
type ActionServiceInterface interface {
	GetActions(target string, limit int) ([]*models.ActionRecord, error)
	GetActionByUnit(unit string) (*models.ActionRecord, error)
	GetActionCount() (int, error)
}

// TargetServiceInterface определяет интерфейс сервиса таргетов
type TargetServiceInterface interface {
	Statuses() []bot.TargetStatus
	Status(target string) (bot.TargetStatus, bool)
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ NotificationServiceInterface = (*NotificationService)(nil)
var _ ActionServiceInterface = (*ActionService)(nil)
var _ TargetServiceInterface = (*TargetService)(nil)
