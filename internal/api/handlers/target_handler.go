package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"stablearb/internal/service"
)

// TargetHandler отвечает за чтение состояния arb-контрактов
//
// Endpoints:
// - GET /api/v1/targets - снапшоты всех таргетов
// - GET /api/v1/targets/{address} - снапшот одного таргета
//
// Назначение:
// Дает дашборду доступ к текущему состоянию каждого движка:
// цены, дрейф, спекулятивная очередь, отслеживаемые депозиты,
// committed и projected балансы пула.
type TargetHandler struct {
	targetService service.TargetServiceInterface
}

// NewTargetHandler создает новый TargetHandler с внедрением зависимости
func NewTargetHandler(targetService service.TargetServiceInterface) *TargetHandler {
	return &TargetHandler{
		targetService: targetService,
	}
}

// GetTargets возвращает снапшоты всех таргетов
//
// GET /api/v1/targets
//
// HTTP коды:
// - 200 OK: успешно, возвращает массив снапшотов
func (h *TargetHandler) GetTargets(w http.ResponseWriter, r *http.Request) {
	statuses := h.targetService.Statuses()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"targets": statuses,
		"total":   len(statuses),
	})
}

// GetTarget возвращает снапшот одного таргета
//
// GET /api/v1/targets/{address}
//
// HTTP коды:
// - 200 OK: успешно
// - 404 Not Found: таргет с таким адресом не обслуживается
func (h *TargetHandler) GetTarget(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	status, ok := h.targetService.Status(address)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Target not found: "+address)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}
