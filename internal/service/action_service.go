package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"stablearb/internal/models"
	"stablearb/internal/repository"
)

// ActionService ведёт журнал корректирующих действий.
//
// Реализует интерфейс bot.ActionJournal: движок записывает каждое
// отправленное действие и обновляет его статус по ответу контракта.
// Поверх журнала сервис предоставляет чтение для API.
type ActionService struct {
	repo  ActionRepositoryInterface
	wsHub WebSocketBroadcaster
	log   *zap.Logger
}

// NewActionService создает новый экземпляр ActionService.
func NewActionService(repo ActionRepositoryInterface, log *zap.Logger) *ActionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ActionService{
		repo: repo,
		log:  log.Named("actions"),
	}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast изменений журнала.
func (s *ActionService) SetWebSocketHub(hub WebSocketBroadcaster) {
	s.wsHub = hub
}

// Record записывает отправленное действие.
//
// Реализует bot.ActionJournal. Ошибка записи логируется, но не
// возвращается движку: журнал вторичен по отношению к самому действию,
// которое уже отправлено в леджер.
func (s *ActionService) Record(ctx context.Context, a *models.ActionRecord) {
	if err := s.repo.Create(a); err != nil {
		s.log.Error("failed to persist action",
			zap.String("kind", a.Kind),
			zap.String("unit", a.Unit),
			zap.Error(err))
		return
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastActionUpdate(a)
	}
}

// UpdateStatus обновляет статус действия по юниту транзакции.
//
// Реализует bot.ActionJournal. Вызывается когда контракт ответил на
// нашу транзакцию (confirmed или bounced). Ответ на чужую транзакцию,
// которой нет в журнале, молча игнорируется.
func (s *ActionService) UpdateStatus(ctx context.Context, unit, status, errorMessage string) {
	if unit == "" {
		return
	}

	err := s.repo.UpdateStatusByUnit(unit, status, errorMessage)
	if err != nil {
		if errors.Is(err, repository.ErrActionNotFound) {
			return
		}
		s.log.Error("failed to update action status",
			zap.String("unit", unit),
			zap.String("status", status),
			zap.Error(err))
		return
	}

	if s.wsHub != nil {
		if a, err := s.repo.GetByUnit(unit); err == nil {
			s.wsHub.BroadcastActionUpdate(a)
		}
	}
}

// GetActions возвращает последние действия, опционально по одному таргету.
func (s *ActionService) GetActions(target string, limit int) ([]*models.ActionRecord, error) {
	limit = clampLimit(limit)
	if target != "" {
		return s.repo.GetByTarget(target, limit)
	}
	return s.repo.GetRecent(limit)
}

// GetActionByUnit возвращает действие по юниту транзакции.
func (s *ActionService) GetActionByUnit(unit string) (*models.ActionRecord, error) {
	return s.repo.GetByUnit(unit)
}

// GetActionCount возвращает общее количество действий в журнале.
func (s *ActionService) GetActionCount() (int, error) {
	return s.repo.Count()
}

// CleanupOld удаляет действия старше указанного срока хранения.
func (s *ActionService) CleanupOld(retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return s.repo.DeleteOlderThan(time.Now().Add(-retention))
}
