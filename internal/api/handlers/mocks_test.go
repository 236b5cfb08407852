package handlers

import (
	"stablearb/internal/bot"
	"stablearb/internal/models"
	"stablearb/internal/repository"
)

// ============================================================
// Mock сервисы для тестов handlers
// ============================================================

type mockTargetService struct {
	statuses []bot.TargetStatus
}

func (m *mockTargetService) Statuses() []bot.TargetStatus {
	return m.statuses
}

func (m *mockTargetService) Status(target string) (bot.TargetStatus, bool) {
	for _, s := range m.statuses {
		if s.Target == target {
			return s, true
		}
	}
	return bot.TargetStatus{}, false
}

type mockNotificationService struct {
	notifications []*models.Notification
	err           error
	cleared       bool
}

func (m *mockNotificationService) GetNotifications(severity string, limit int) ([]*models.Notification, error) {
	if m.err != nil {
		return nil, m.err
	}
	if severity == "" {
		return m.notifications, nil
	}
	var out []*models.Notification
	for _, n := range m.notifications {
		if n.Severity == severity {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationService) GetNotificationsByTarget(target string, limit int) ([]*models.Notification, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Notification
	for _, n := range m.notifications {
		if n.Target != nil && *n.Target == target {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationService) ClearNotifications() error {
	if m.err != nil {
		return m.err
	}
	m.cleared = true
	m.notifications = nil
	return nil
}

func (m *mockNotificationService) GetNotificationCount() (int, error) {
	return len(m.notifications), nil
}

type mockActionService struct {
	actions []*models.ActionRecord
	err     error
}

func (m *mockActionService) GetActions(target string, limit int) ([]*models.ActionRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if target == "" {
		return m.actions, nil
	}
	var out []*models.ActionRecord
	for _, a := range m.actions {
		if a.Target == target {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockActionService) GetActionByUnit(unit string) (*models.ActionRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, a := range m.actions {
		if a.Unit == unit {
			return a, nil
		}
	}
	return nil, repository.ErrActionNotFound
}

func (m *mockActionService) GetActionCount() (int, error) {
	return len(m.actions), nil
}
