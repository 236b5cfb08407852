package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// EventKind - вид события леджера
type EventKind int

const (
	KindRequest  EventKind = iota // транзакция отправлена контракту, ещё не исполнена
	KindResponse                  // контракт исполнил транзакцию (подтверждение)
)

func (k EventKind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Payment - платёж в составе транзакции
type Payment struct {
	Asset  string `json:"asset"`
	Amount int64  `json:"amount"`
}

// RequestEvent - наблюдаемая, ещё не подтверждённая транзакция к контракту
type RequestEvent struct {
	Address  string                 // контракт-получатель
	Unit     string                 // id транзакции
	Sender   string                 // адрес автора
	Payload  map[string]interface{} // data-сообщение (инструкция контракту)
	Payments []Payment              // платежи в адрес контракта
}

// ResponseEvent - подтверждённое исполнение транзакции контрактом
type ResponseEvent struct {
	Address     string // контракт
	TriggerUnit string // id исходной транзакции-триггера
	Bounced     bool
	Error       string // текст ошибки при bounce

	// Пофилдовые upsert/delete state-переменных контракта.
	// Значение JSON false означает удаление переменной.
	UpdatedVars map[string]json.RawMessage

	// Фактические изменения балансов контракта по активам,
	// какими их сообщил леджер (не наша проекция)
	BalanceDeltas map[string]int64
}

// VarDeleted сообщает, означает ли значение переменной её удаление
//
// Леджер помечает удалённую (или только прочитанную, но не записанную)
// переменную значением false.
func VarDeleted(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("false")) || bytes.Equal(trimmed, []byte("null"))
}

// RequestHandler обрабатывает RequestEvent одного контракта
type RequestHandler func(ctx context.Context, ev *RequestEvent)

// ResponseHandler обрабатывает ResponseEvent одного контракта
type ResponseHandler func(ctx context.Context, ev *ResponseEvent)

// Dispatcher - типизированная таблица диспетчеризации событий
//
// Отображает (адрес контракта, вид события) -> обработчик, вместо
// регистрации callback'ов по динамическим строковым топикам.
// Обработчики вызываются последовательно в горутине read loop'а
// клиента: параллельной доставки нет, порядок событий сохраняется.
type Dispatcher struct {
	requests  map[string][]RequestHandler
	responses map[string][]ResponseHandler
	mu        sync.RWMutex
	log       *zap.Logger
}

// NewDispatcher создаёт пустую таблицу диспетчеризации
func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		requests:  make(map[string][]RequestHandler),
		responses: make(map[string][]ResponseHandler),
		log:       log,
	}
}

// OnRequest регистрирует обработчик request-событий контракта
func (d *Dispatcher) OnRequest(address string, h RequestHandler) {
	d.mu.Lock()
	d.requests[address] = append(d.requests[address], h)
	d.mu.Unlock()
}

// OnResponse регистрирует обработчик response-событий контракта
func (d *Dispatcher) OnResponse(address string, h ResponseHandler) {
	d.mu.Lock()
	d.responses[address] = append(d.responses[address], h)
	d.mu.Unlock()
}

// DispatchRequest доставляет request-событие зарегистрированным обработчикам
func (d *Dispatcher) DispatchRequest(ctx context.Context, ev *RequestEvent) {
	d.mu.RLock()
	handlers := d.requests[ev.Address]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.log.Debug("no request handlers", zap.String("address", ev.Address), zap.String("unit", ev.Unit))
		return
	}
	for _, h := range handlers {
		h(ctx, ev)
	}
}

// DispatchResponse доставляет response-событие зарегистрированным обработчикам
func (d *Dispatcher) DispatchResponse(ctx context.Context, ev *ResponseEvent) {
	d.mu.RLock()
	handlers := d.responses[ev.Address]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.log.Debug("no response handlers", zap.String("address", ev.Address), zap.String("unit", ev.TriggerUnit))
		return
	}
	for _, h := range handlers {
		h(ctx, ev)
	}
}
