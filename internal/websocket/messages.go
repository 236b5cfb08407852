package websocket

import (
	"time"

	"stablearb/internal/bot"
	"stablearb/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeTargetUpdate - обновление состояния arb-контракта
	// Отправляется после каждой переоценки (реакция на событие леджера
	// или плановая сверка)
	MessageTypeTargetUpdate MessageType = "targetUpdate"

	// MessageTypeNotification - новое уведомление
	// Отправляется при событиях: действие, bounce, расхождение балансов,
	// убыточный расчёт, ошибки
	MessageTypeNotification MessageType = "notification"

	// MessageTypeActionUpdate - изменение статуса действия в журнале
	// Отправляется при подтверждении или bounce нашей транзакции
	MessageTypeActionUpdate MessageType = "actionUpdate"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// TargetUpdateMessage - сообщение об обновлении состояния arb-контракта
//
// Содержит снапшот движка по одному таргету:
// - текущая и целевая цена, дрейф между ними
// - размер спекулятивной очереди
// - количество отслеживаемых депозитов и force-close заявок
// - committed и projected балансы пула
type TargetUpdateMessage struct {
	BaseMessage
	Target string            `json:"target"`
	Data   *bot.TargetStatus `json:"data"`
}

// NotificationMessage - сообщение о новом уведомлении
type NotificationMessage struct {
	BaseMessage
	Data *NotificationData `json:"data"`
}

// NotificationData - данные уведомления
type NotificationData struct {
	// ID уведомления в БД
	ID int `json:"id"`

	// Тип уведомления (ACTION, UNPROFITABLE, BOUNCE, MISMATCH, ERROR)
	Type string `json:"type"`

	// Уровень важности (info, warn, error)
	Severity string `json:"severity"`

	// Адрес arb-контракта (если применимо)
	Target *string `json:"target,omitempty"`

	// Текст сообщения
	Message string `json:"message"`

	// Дополнительные метаданные (юнит, суммы, id депозитов)
	Meta map[string]interface{} `json:"meta,omitempty"`

	// Время создания уведомления
	Timestamp time.Time `json:"timestamp"`
}

// ActionUpdateMessage - сообщение об изменении статуса действия
type ActionUpdateMessage struct {
	BaseMessage
	Data *models.ActionRecord `json:"data"`
}

// ============ Фабричные функции для создания сообщений ============

// NewTargetUpdateMessage создает сообщение обновления таргета
func NewTargetUpdateMessage(status *bot.TargetStatus) *TargetUpdateMessage {
	return &TargetUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeTargetUpdate,
			Timestamp: time.Now(),
		},
		Target: status.Target,
		Data:   status,
	}
}

// NewNotificationMessage создает сообщение уведомления
func NewNotificationMessage(notif *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeNotification,
			Timestamp: time.Now(),
		},
		Data: &NotificationData{
			ID:        notif.ID,
			Type:      notif.Type,
			Severity:  notif.Severity,
			Target:    notif.Target,
			Message:   notif.Message,
			Meta:      notif.Meta,
			Timestamp: notif.Timestamp,
		},
	}
}

// NewActionUpdateMessage создает сообщение об изменении действия
func NewActionUpdateMessage(action *models.ActionRecord) *ActionUpdateMessage {
	return &ActionUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeActionUpdate,
			Timestamp: time.Now(),
		},
		Data: action,
	}
}
