package handlers

import (
	"net/http"
	"strconv"

	"stablearb/internal/models"
	"stablearb/internal/service"
)

// NotificationHandler отвечает за управление уведомлениями
//
// Endpoints:
// - GET /api/v1/notifications - получение списка уведомлений
// - GET /api/v1/notifications?severity=warn - с фильтрацией по уровню
// - GET /api/v1/notifications?target=ADDR - по одному arb-контракту
// - GET /api/v1/notifications?limit=50 - с ограничением количества
// - DELETE /api/v1/notifications - очистка журнала уведомлений
//
// Типы уведомлений:
// - ACTION: отправлено корректирующее действие
// - UNPROFITABLE: расчёт показал убыток сверх допуска округления
// - BOUNCE: наша транзакция отклонена контрактом
// - MISMATCH: сверка нашла расхождение балансов пула
// - ERROR: прочие ошибки
type NotificationHandler struct {
	notificationService service.NotificationServiceInterface
}

// NewNotificationHandler создает новый NotificationHandler с внедрением зависимости
func NewNotificationHandler(notificationService service.NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GetNotificationsResponse представляет ответ списка уведомлений
type GetNotificationsResponse struct {
	Notifications []*models.Notification `json:"notifications"`
	Total         int                    `json:"total"`
}

// GetNotifications возвращает список уведомлений с фильтрацией
//
// GET /api/v1/notifications
//
// Query параметры:
// - severity (string): фильтр по уровню важности (info, warn, error)
// - target (string): адрес arb-контракта
// - limit (int): количество записей (по умолчанию 100, максимум 500)
//
// Примеры запросов:
// - GET /api/v1/notifications - все уведомления (последние 100)
// - GET /api/v1/notifications?severity=error - только ошибки
// - GET /api/v1/notifications?target=ARB...&limit=20 - по таргету, 20 записей
//
// HTTP коды:
// - 200 OK: успешно, возвращает массив уведомлений
// - 500 Internal Server Error: ошибка сервера
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	severity := r.URL.Query().Get("severity")
	target := r.URL.Query().Get("target")

	limit := 100
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var (
		notifications []*models.Notification
		err           error
	)
	if target != "" {
		notifications, err = h.notificationService.GetNotificationsByTarget(target, limit)
	} else {
		notifications, err = h.notificationService.GetNotifications(severity, limit)
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get notifications: "+err.Error())
		return
	}

	if notifications == nil {
		notifications = []*models.Notification{}
	}

	respondWithJSON(w, http.StatusOK, GetNotificationsResponse{
		Notifications: notifications,
		Total:         len(notifications),
	})
}

// ClearNotifications очищает журнал уведомлений
//
// DELETE /api/v1/notifications
//
// Удаляет все уведомления из базы данных. Это действие необратимо.
//
// HTTP коды:
// - 200 OK: журнал успешно очищен
// - 500 Internal Server Error: ошибка при очистке
func (h *NotificationHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationService.ClearNotifications(); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to clear notifications: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Notifications cleared successfully",
	})
}
