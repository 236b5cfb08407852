package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"stablearb/internal/api/handlers"
	"stablearb/internal/api/middleware"
	"stablearb/internal/service"
	"stablearb/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	TargetService       *service.TargetService
	NotificationService *service.NotificationService
	ActionService       *service.ActionService
	Hub                 *websocket.Hub

	// bcrypt-хеш API-токена; пустой хеш отключает аутентификацию
	APITokenHash string

	Logger *zap.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /targets/
//	│   ├── GET / - снапшоты всех arb-контрактов
//	│   └── GET /{address} - снапшот одного контракта
//	├── /notifications/
//	│   ├── GET / - получить уведомления
//	│   └── DELETE / - очистить журнал
//	└── /actions/
//	    ├── GET / - журнал действий
//	    └── GET /{unit} - действие по юниту транзакции
//
// /ws/
//
//	└── /stream - WebSocket для real-time обновлений
//
// /metrics - Prometheus метрики
// /health - health check
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. Auth (только для /api/v1)
func SetupRoutes(deps *Dependencies) *mux.Router {
	log := zap.NewNop()
	if deps != nil && deps.Logger != nil {
		log = deps.Logger
	}

	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	router.Use(middleware.CORS)

	// API v1 routes
	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	if deps != nil {
		apiRouter.Use(middleware.Auth(deps.APITokenHash))
	}

	// Target routes
	if deps != nil && deps.TargetService != nil {
		targetHandler := handlers.NewTargetHandler(deps.TargetService)
		apiRouter.HandleFunc("/targets", targetHandler.GetTargets).Methods("GET")
		apiRouter.HandleFunc("/targets/{address}", targetHandler.GetTarget).Methods("GET")
	}

	// Notification routes
	if deps != nil && deps.NotificationService != nil {
		notificationHandler := handlers.NewNotificationHandler(deps.NotificationService)
		apiRouter.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
		apiRouter.HandleFunc("/notifications", notificationHandler.ClearNotifications).Methods("DELETE")
	}

	// Action routes
	if deps != nil && deps.ActionService != nil {
		actionHandler := handlers.NewActionHandler(deps.ActionService)
		apiRouter.HandleFunc("/actions", actionHandler.GetActions).Methods("GET")
		apiRouter.HandleFunc("/actions/{unit}", actionHandler.GetActionByUnit).Methods("GET")
	}

	// WebSocket route
	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
