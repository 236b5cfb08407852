package service

import (
	"errors"
	"sync"
	"time"

	"stablearb/internal/bot"
	"stablearb/internal/models"

	"stablearb/internal/repository"
)

// ============================================================
// Mock репозитории (in-memory)
// ============================================================

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []*models.Notification
	nextID        int
	createErr     error
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{nextID: 1}
}

func (m *mockNotificationRepo) Create(n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	n.ID = m.nextID
	m.nextID++
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockNotificationRepo) GetRecent(limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tail(m.notifications, limit), nil
}

func (m *mockNotificationRepo) GetByTarget(target string, limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Notification
	for _, n := range m.notifications {
		if n.Target != nil && *n.Target == target {
			out = append(out, n)
		}
	}
	return m.tail(out, limit), nil
}

func (m *mockNotificationRepo) GetBySeverity(severity string, limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Notification
	for _, n := range m.notifications {
		if n.Severity == severity {
			out = append(out, n)
		}
	}
	return m.tail(out, limit), nil
}

func (m *mockNotificationRepo) DeleteAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = nil
	return nil
}

func (m *mockNotificationRepo) DeleteOlderThan(timestamp time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*models.Notification
	var deleted int64
	for _, n := range m.notifications {
		if n.Timestamp.Before(timestamp) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	m.notifications = kept
	return deleted, nil
}

func (m *mockNotificationRepo) Count() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications), nil
}

func (m *mockNotificationRepo) CountByType(notifType string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.Type == notifType {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) tail(list []*models.Notification, limit int) []*models.Notification {
	if limit > 0 && len(list) > limit {
		return list[len(list)-limit:]
	}
	return list
}

type mockActionRepo struct {
	mu        sync.Mutex
	actions   []*models.ActionRecord
	nextID    int
	createErr error
	updateErr error
}

func newMockActionRepo() *mockActionRepo {
	return &mockActionRepo{nextID: 1}
}

func (m *mockActionRepo) Create(a *models.ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	a.ID = m.nextID
	m.nextID++
	m.actions = append(m.actions, a)
	return nil
}

func (m *mockActionRepo) GetByUnit(unit string) (*models.ActionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.actions {
		if a.Unit == unit {
			return a, nil
		}
	}
	return nil, repository.ErrActionNotFound
}

func (m *mockActionRepo) GetRecent(limit int) ([]*models.ActionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > 0 && len(m.actions) > limit {
		return m.actions[len(m.actions)-limit:], nil
	}
	return m.actions, nil
}

func (m *mockActionRepo) GetByTarget(target string, limit int) ([]*models.ActionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ActionRecord
	for _, a := range m.actions {
		if a.Target == target {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockActionRepo) GetByStatus(status string) ([]*models.ActionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ActionRecord
	for _, a := range m.actions {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockActionRepo) UpdateStatusByUnit(unit, status, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	for _, a := range m.actions {
		if a.Unit == unit {
			a.Status = status
			a.ErrorMessage = errorMessage
			return nil
		}
	}
	return repository.ErrActionNotFound
}

func (m *mockActionRepo) DeleteOlderThan(timestamp time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*models.ActionRecord
	var deleted int64
	for _, a := range m.actions {
		if a.CreatedAt.Before(timestamp) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	m.actions = kept
	return deleted, nil
}

func (m *mockActionRepo) Count() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.actions), nil
}

// ============================================================
// Mock WebSocket broadcaster
// ============================================================

type mockBroadcaster struct {
	mu            sync.Mutex
	notifications []*models.Notification
	actions       []*models.ActionRecord
	targets       []*bot.TargetStatus
}

func (m *mockBroadcaster) BroadcastNotification(n *models.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
}

func (m *mockBroadcaster) BroadcastActionUpdate(a *models.ActionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, a)
}

func (m *mockBroadcaster) BroadcastTargetUpdate(s *bot.TargetStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = append(m.targets, s)
}

func (m *mockBroadcaster) notificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications)
}

func (m *mockBroadcaster) actionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.actions)
}

var errDatabase = errors.New("database error")
