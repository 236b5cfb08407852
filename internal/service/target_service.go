package service

import (
	"sort"
	"sync"

	"stablearb/internal/bot"
)

// TargetService - реестр работающих движков.
//
// Каждый движок привязан к одному arb-контракту и создается при старте
// процесса; реестр дает API доступ к их снапшотам и рассылает
// обновления состояния по WebSocket.
type TargetService struct {
	mu      sync.RWMutex
	engines map[string]*bot.Engine

	wsHub WebSocketBroadcaster
}

// NewTargetService создает пустой реестр
func NewTargetService() *TargetService {
	return &TargetService{
		engines: make(map[string]*bot.Engine),
	}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast снапшотов
func (s *TargetService) SetWebSocketHub(hub WebSocketBroadcaster) {
	s.wsHub = hub
}

// Register добавляет движок в реестр
func (s *TargetService) Register(target string, engine *bot.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engines[target] = engine
}

// Engines возвращает все зарегистрированные движки
func (s *TargetService) Engines() []*bot.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	engines := make([]*bot.Engine, 0, len(s.engines))
	for _, e := range s.engines {
		engines = append(engines, e)
	}
	return engines
}

// Statuses возвращает снапшоты всех таргетов, отсортированные по адресу
func (s *TargetService) Statuses() []bot.TargetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]bot.TargetStatus, 0, len(s.engines))
	for _, e := range s.engines {
		statuses = append(statuses, e.Status())
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Target < statuses[j].Target
	})
	return statuses
}

// Status возвращает снапшот одного таргета
func (s *TargetService) Status(target string) (bot.TargetStatus, bool) {
	s.mu.RLock()
	engine, ok := s.engines[target]
	s.mu.RUnlock()

	if !ok {
		return bot.TargetStatus{}, false
	}
	return engine.Status(), true
}

// BroadcastStatuses рассылает снапшоты всех таргетов по WebSocket.
//
// Вызывается плановой задачей; frontend получает регулярные обновления
// даже когда на леджере нет событий.
func (s *TargetService) BroadcastStatuses() {
	if s.wsHub == nil {
		return
	}
	for _, status := range s.Statuses() {
		st := status
		s.wsHub.BroadcastTargetUpdate(&st)
	}
}
