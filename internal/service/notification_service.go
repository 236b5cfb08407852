package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"stablearb/internal/models"
)

// NotificationService предоставляет бизнес-логику для управления уведомлениями.
//
// Отвечает за:
// - Прием уведомлений от движков (реализует интерфейс bot.Notifier)
// - Сохранение уведомлений в БД
// - Broadcast уведомлений через WebSocket
// - Получение списка уведомлений с фильтрацией
// - Очистку журнала уведомлений
//
// Типы уведомлений:
// - ACTION: отправлено корректирующее действие
// - UNPROFITABLE: расчёт показал убыток сверх допуска округления
// - BOUNCE: наша транзакция отклонена контрактом
// - MISMATCH: сверка нашла расхождение балансов пула
// - ERROR: прочие ошибки
type NotificationService struct {
	repo  NotificationRepositoryInterface
	wsHub WebSocketBroadcaster
	log   *zap.Logger
}

// NewNotificationService создает новый экземпляр NotificationService.
func NewNotificationService(repo NotificationRepositoryInterface, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{
		repo: repo,
		log:  log.Named("notifications"),
	}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast уведомлений.
//
// Вызывается после инициализации Hub в main.go:
//
//	notifService := service.NewNotificationService(notifRepo, log)
//	notifService.SetWebSocketHub(wsHub)
func (s *NotificationService) SetWebSocketHub(hub WebSocketBroadcaster) {
	s.wsHub = hub
}

// Notify принимает уведомление от движка.
//
// Реализует bot.Notifier. Движок вызывает Notify под своим mutex,
// поэтому метод не должен блокироваться надолго: ошибка записи в БД
// логируется, но не останавливает движок (лучше потерять запись в
// журнале, чем пропустить арбитражное окно).
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) {
	if err := s.repo.Create(n); err != nil {
		s.log.Error("failed to persist notification",
			zap.String("type", n.Type),
			zap.Error(err))
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastNotification(n)
	}
}

// GetNotifications возвращает список уведомлений с фильтрацией.
//
// Параметры:
// - severity: фильтр по уровню важности (info, warn, error);
//   пустая строка - все уровни
// - limit: максимальное количество записей (по умолчанию 100)
//
// Возвращает уведомления отсортированные по времени (новые сверху).
func (s *NotificationService) GetNotifications(severity string, limit int) ([]*models.Notification, error) {
	limit = clampLimit(limit)

	severity = strings.ToLower(strings.TrimSpace(severity))
	if severity != "" && isValidSeverity(severity) {
		return s.repo.GetBySeverity(severity, limit)
	}

	return s.repo.GetRecent(limit)
}

// GetNotificationsByTarget возвращает уведомления одного arb-контракта.
func (s *NotificationService) GetNotificationsByTarget(target string, limit int) ([]*models.Notification, error) {
	return s.repo.GetByTarget(target, clampLimit(limit))
}

// ClearNotifications очищает журнал уведомлений.
func (s *NotificationService) ClearNotifications() error {
	return s.repo.DeleteAll()
}

// GetNotificationCount возвращает общее количество уведомлений.
func (s *NotificationService) GetNotificationCount() (int, error) {
	return s.repo.Count()
}

// GetNotificationCountByType возвращает количество уведомлений определенного типа.
func (s *NotificationService) GetNotificationCountByType(notifType string) (int, error) {
	return s.repo.CountByType(strings.ToUpper(notifType))
}

// CleanupOld удаляет уведомления старше указанного срока хранения.
//
// Вызывается плановой задачей; журнал не должен расти бесконечно.
func (s *NotificationService) CleanupOld(retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return s.repo.DeleteOlderThan(time.Now().Add(-retention))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func isValidSeverity(severity string) bool {
	switch severity {
	case models.SeverityInfo, models.SeverityWarn, models.SeverityError:
		return true
	default:
		return false
	}
}
