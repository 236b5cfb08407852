package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"stablearb/internal/models"
	"stablearb/internal/repository"
	"stablearb/internal/service"
)

// ActionHandler отвечает за чтение журнала действий
//
// Endpoints:
// - GET /api/v1/actions - последние действия
// - GET /api/v1/actions?target=ADDR - по одному arb-контракту
// - GET /api/v1/actions/{unit} - действие по юниту транзакции
//
// Назначение:
// Дает дашборду историю корректирующих действий: что отправлено,
// каким юнитом, подтверждено ли контрактом или отклонено (bounce).
type ActionHandler struct {
	actionService service.ActionServiceInterface
}

// NewActionHandler создает новый ActionHandler с внедрением зависимости
func NewActionHandler(actionService service.ActionServiceInterface) *ActionHandler {
	return &ActionHandler{
		actionService: actionService,
	}
}

// GetActionsResponse представляет ответ списка действий
type GetActionsResponse struct {
	Actions []*models.ActionRecord `json:"actions"`
	Total   int                    `json:"total"`
}

// GetActions возвращает последние действия
//
// GET /api/v1/actions
//
// Query параметры:
// - target (string): адрес arb-контракта
// - limit (int): количество записей (по умолчанию 100, максимум 500)
//
// HTTP коды:
// - 200 OK: успешно
// - 500 Internal Server Error: ошибка сервера
func (h *ActionHandler) GetActions(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")

	limit := 100
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	actions, err := h.actionService.GetActions(target, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get actions: "+err.Error())
		return
	}

	if actions == nil {
		actions = []*models.ActionRecord{}
	}

	respondWithJSON(w, http.StatusOK, GetActionsResponse{
		Actions: actions,
		Total:   len(actions),
	})
}

// GetActionByUnit возвращает действие по юниту транзакции
//
// GET /api/v1/actions/{unit}
//
// HTTP коды:
// - 200 OK: успешно
// - 404 Not Found: действия с таким юнитом нет в журнале
// - 500 Internal Server Error: ошибка сервера
func (h *ActionHandler) GetActionByUnit(w http.ResponseWriter, r *http.Request) {
	unit := mux.Vars(r)["unit"]

	action, err := h.actionService.GetActionByUnit(unit)
	if err != nil {
		if errors.Is(err, repository.ErrActionNotFound) {
			respondWithError(w, http.StatusNotFound, "Action not found: "+unit)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get action: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, action)
}
