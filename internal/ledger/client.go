package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"stablearb/pkg/retry"
)

var jsonFast = jsoniter.ConfigCompatibleWithStandardLibrary

// ClientConfig - конфигурация подключения к light-ноде
type ClientConfig struct {
	// Начальная задержка перед переподключением
	InitialDelay time.Duration
	// Максимальная задержка (после exponential backoff)
	MaxDelay time.Duration
	// Таймаут подключения
	ConnectTimeout time.Duration
	// Интервал ping для проверки соединения
	PingInterval time.Duration
	// Таймаут ожидания pong
	PongTimeout time.Duration
	// Таймаут одного RPC-запроса к ноде
	RequestTimeout time.Duration
	// Количество попыток чтения из ноды (0 - значение по умолчанию)
	MaxRetries int
	// Начальная задержка между попытками чтения
	RetryBackoff time.Duration
}

// DefaultClientConfig возвращает конфигурацию по умолчанию
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		InitialDelay:   2 * time.Second,
		MaxDelay:       16 * time.Second,
		ConnectTimeout: 10 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		RequestTimeout: 20 * time.Second,
	}
}

// ConnState - состояние WebSocket соединения с нодой
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// LightClient - WebSocket-клиент light-ноды леджера
//
// Реализует Reader и Watcher. Единственная точка входа событий в ядро:
// нода пушит justsaying-сообщения aa_request / aa_response для
// наблюдаемых контрактов, клиент конвертирует их в типизированные
// события и доставляет через Dispatcher в горутине read loop'а.
//
// Функции:
// - RPC запрос/ответ поверх WS (тегированные запросы)
// - Автоматическое переподключение с exponential backoff
// - Повторная подписка на наблюдаемые контракты после переподключения
// - Ping/Pong для проверки живости соединения
type LightClient struct {
	url        string
	cfg        ClientConfig
	dispatcher *Dispatcher
	log        *zap.Logger

	conn   *websocket.Conn
	connMu sync.Mutex // сериализует запись в соединение

	state      int32 // atomic ConnState
	retryCount int32 // atomic

	// Тегированные RPC запросы, ожидающие ответа
	pending   map[string]chan rpcResult
	pendingMu sync.Mutex
	nextTag   uint64 // atomic

	// Наблюдаемые контракты (восстанавливаются после переподключения)
	watched   []string
	watchedMu sync.Mutex

	// Callbacks для мониторинга соединения
	onConnect    func()
	onDisconnect func(error)

	closeChan chan struct{}
	closeOnce sync.Once

	// Retry для чтений: сетевые ошибки ноды временные
	retryer retry.Config
}

type rpcResult struct {
	response json.RawMessage
	err      error
}

// Wire-формат кадров: JSON-массив [type, content]
// type: "justsaying" | "request" | "response"

type wireJustsaying struct {
	Subject string          `json:"subject"`
	Body    json.RawMessage `json:"body"`
}

type wireRequest struct {
	Command string      `json:"command"`
	Params  interface{} `json:"params,omitempty"`
	Tag     string      `json:"tag"`
}

type wireResponse struct {
	Tag      string          `json:"tag"`
	Response json.RawMessage `json:"response"`
}

type wirePayment struct {
	Asset   string `json:"asset"`
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
}

type wireAARequest struct {
	AAAddress string `json:"aa_address"`
	Unit      struct {
		Unit    string `json:"unit"`
		Authors []struct {
			Address string `json:"address"`
		} `json:"authors"`
		Messages []struct {
			App     string          `json:"app"`
			Payload json.RawMessage `json:"payload"`
		} `json:"messages"`
	} `json:"unit"`
}

type wirePaymentPayload struct {
	Asset   string `json:"asset"`
	Outputs []struct {
		Address string `json:"address"`
		Amount  int64  `json:"amount"`
	} `json:"outputs"`
}

type wireAAResponse struct {
	AAAddress   string `json:"aa_address"`
	TriggerUnit string `json:"trigger_initial_unit"`
	Bounced     bool   `json:"bounced"`
	Response    struct {
		Error string `json:"error"`
	} `json:"response"`
	UpdatedStateVars map[string]map[string]struct {
		Value json.RawMessage `json:"value"`
	} `json:"updatedStateVars"`
	// Подтверждённые платежи: входящие (триггер) и исходящие (ответ)
	TriggerPayments  []wirePayment `json:"trigger_payments"`
	ResponsePayments []wirePayment `json:"response_payments"`
}

// NewLightClient создаёт клиента light-ноды
func NewLightClient(url string, dispatcher *Dispatcher, cfg ClientConfig, log *zap.Logger) *LightClient {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 4
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &LightClient{
		url:        url,
		cfg:        cfg,
		dispatcher: dispatcher,
		log:        log.Named("ledger"),
		pending:    make(map[string]chan rpcResult),
		closeChan:  make(chan struct{}),
		retryer: retry.Config{
			MaxRetries:   maxRetries,
			InitialDelay: backoff,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.2,
			RetryIf:      retry.RetryIfNotContext,
		},
	}
}

// SetOnConnect устанавливает callback для события подключения
func (c *LightClient) SetOnConnect(f func()) { c.onConnect = f }

// SetOnDisconnect устанавливает callback для события отключения
func (c *LightClient) SetOnDisconnect(f func(error)) { c.onDisconnect = f }

// State возвращает текущее состояние соединения
func (c *LightClient) State() ConnState {
	return ConnState(atomic.LoadInt32(&c.state))
}

// Connect устанавливает соединение и запускает read loop
func (c *LightClient) Connect(ctx context.Context) error {
	select {
	case <-c.closeChan:
		return fmt.Errorf("client is closed")
	default:
	}

	atomic.StoreInt32(&c.state, int32(StateConnecting))
	if err := c.dial(ctx); err != nil {
		atomic.StoreInt32(&c.state, int32(StateDisconnected))
		return err
	}

	atomic.StoreInt32(&c.state, int32(StateConnected))
	atomic.StoreInt32(&c.retryCount, 0)
	if c.onConnect != nil {
		c.onConnect()
	}

	go c.readPump(ctx)
	go c.pingPump()

	c.log.Info("connected to node", zap.String("url", c.url))
	return nil
}

func (c *LightClient) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(dialCtx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial error: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	return c.rewatch()
}

// rewatch восстанавливает подписки на наблюдаемые контракты
func (c *LightClient) rewatch() error {
	c.watchedMu.Lock()
	watched := make([]string, len(c.watched))
	copy(watched, c.watched)
	c.watchedMu.Unlock()

	for _, address := range watched {
		if err := c.sendJustsaying("light/new_aa_to_watch", map[string]interface{}{"aa": address}); err != nil {
			return fmt.Errorf("rewatch %s: %w", address, err)
		}
	}
	if len(watched) > 0 {
		c.log.Info("resubscribed to watched contracts", zap.Int("count", len(watched)))
	}
	return nil
}

// Watch подписывается на события контракта
func (c *LightClient) Watch(address string) error {
	c.watchedMu.Lock()
	c.watched = append(c.watched, address)
	c.watchedMu.Unlock()

	if c.State() != StateConnected {
		return nil // подписка уйдёт при (пере)подключении
	}
	return c.sendJustsaying("light/new_aa_to_watch", map[string]interface{}{"aa": address})
}

// ============================================================
// Отправка кадров
// ============================================================

func (c *LightClient) writeFrame(frameType string, content interface{}) error {
	data, err := jsonFast.Marshal([]interface{}{frameType, content})
	if err != nil {
		return err
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *LightClient) sendJustsaying(subject string, body interface{}) error {
	return c.writeFrame("justsaying", map[string]interface{}{"subject": subject, "body": body})
}

// request выполняет один тегированный RPC-запрос к ноде
func (c *LightClient) request(ctx context.Context, command string, params interface{}) (json.RawMessage, error) {
	tag := strconv.FormatUint(atomic.AddUint64(&c.nextTag, 1), 10)
	ch := make(chan rpcResult, 1)

	c.pendingMu.Lock()
	c.pending[tag] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, tag)
		c.pendingMu.Unlock()
	}()

	if err := c.writeFrame("request", wireRequest{Command: command, Params: params, Tag: tag}); err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.response, res.err
	case <-timer.C:
		return nil, fmt.Errorf("request %s timed out", command)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closeChan:
		return nil, fmt.Errorf("client is closed")
	}
}

// requestWithRetry - чтение с повторными попытками (сетевые сбои временные)
func (c *LightClient) requestWithRetry(ctx context.Context, command string, params interface{}) (json.RawMessage, error) {
	return retry.DoWithResult(ctx, func() (json.RawMessage, error) {
		return c.request(ctx, command, params)
	}, c.retryer)
}

// ============================================================
// Read loop
// ============================================================

func (c *LightClient) readPump(ctx context.Context) {
	for {
		select {
		case <-c.closeChan:
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(ctx, err)
			return
		}
		c.handleFrame(ctx, data)
	}
}

func (c *LightClient) handleFrame(ctx context.Context, data []byte) {
	var frame []json.RawMessage
	if err := jsonFast.Unmarshal(data, &frame); err != nil || len(frame) < 2 {
		c.log.Warn("malformed frame", zap.Error(err))
		return
	}

	var frameType string
	if err := jsonFast.Unmarshal(frame[0], &frameType); err != nil {
		return
	}

	switch frameType {
	case "response":
		var resp wireResponse
		if err := jsonFast.Unmarshal(frame[1], &resp); err != nil {
			c.log.Warn("malformed response frame", zap.Error(err))
			return
		}
		c.pendingMu.Lock()
		ch, ok := c.pending[resp.Tag]
		c.pendingMu.Unlock()
		if ok {
			ch <- rpcResult{response: resp.Response}
		}

	case "justsaying":
		var js wireJustsaying
		if err := jsonFast.Unmarshal(frame[1], &js); err != nil {
			c.log.Warn("malformed justsaying frame", zap.Error(err))
			return
		}
		c.handleJustsaying(ctx, &js)
	}
}

func (c *LightClient) handleJustsaying(ctx context.Context, js *wireJustsaying) {
	switch js.Subject {
	case "light/aa_request":
		var raw wireAARequest
		if err := jsonFast.Unmarshal(js.Body, &raw); err != nil {
			c.log.Warn("bad aa_request body", zap.Error(err))
			return
		}
		c.dispatcher.DispatchRequest(ctx, convertRequest(&raw))

	case "light/aa_response":
		var raw wireAAResponse
		if err := jsonFast.Unmarshal(js.Body, &raw); err != nil {
			c.log.Warn("bad aa_response body", zap.Error(err))
			return
		}
		c.dispatcher.DispatchResponse(ctx, convertResponse(&raw))
	}
}

// convertRequest переводит wire-формат в типизированное событие
func convertRequest(raw *wireAARequest) *RequestEvent {
	ev := &RequestEvent{
		Address: raw.AAAddress,
		Unit:    raw.Unit.Unit,
	}
	if len(raw.Unit.Authors) > 0 {
		ev.Sender = raw.Unit.Authors[0].Address
	}
	for _, msg := range raw.Unit.Messages {
		switch msg.App {
		case "data":
			var payload map[string]interface{}
			if err := jsonFast.Unmarshal(msg.Payload, &payload); err == nil {
				ev.Payload = payload
			}
		case "payment":
			var pay wirePaymentPayload
			if err := jsonFast.Unmarshal(msg.Payload, &pay); err != nil {
				continue
			}
			// суммируем только выходы в адрес контракта
			var total int64
			for _, out := range pay.Outputs {
				if out.Address == raw.AAAddress {
					total += out.Amount
				}
			}
			if total > 0 {
				ev.Payments = append(ev.Payments, Payment{Asset: pay.Asset, Amount: total})
			}
		}
	}
	return ev
}

// convertResponse переводит wire-формат в типизированное событие,
// сворачивая подтверждённые платежи в дельты балансов контракта
func convertResponse(raw *wireAAResponse) *ResponseEvent {
	ev := &ResponseEvent{
		Address:       raw.AAAddress,
		TriggerUnit:   raw.TriggerUnit,
		Bounced:       raw.Bounced,
		Error:         raw.Response.Error,
		BalanceDeltas: make(map[string]int64),
	}

	if vars, ok := raw.UpdatedStateVars[raw.AAAddress]; ok {
		ev.UpdatedVars = make(map[string]json.RawMessage, len(vars))
		for name, info := range vars {
			ev.UpdatedVars[name] = info.Value
		}
	}

	if !raw.Bounced {
		for _, p := range raw.TriggerPayments {
			if p.Address == raw.AAAddress {
				ev.BalanceDeltas[p.Asset] += p.Amount
			}
		}
		for _, p := range raw.ResponsePayments {
			if p.Address != raw.AAAddress {
				ev.BalanceDeltas[p.Asset] -= p.Amount
			}
		}
	}
	return ev
}

// ============================================================
// Переподключение
// ============================================================

func (c *LightClient) handleDisconnect(ctx context.Context, err error) {
	select {
	case <-c.closeChan:
		return
	default:
	}

	state := c.State()
	if state == StateReconnecting || state == StateClosed {
		return
	}
	atomic.StoreInt32(&c.state, int32(StateReconnecting))

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	// Все ожидающие RPC получают ошибку: их ответы уже не придут
	c.pendingMu.Lock()
	for tag, ch := range c.pending {
		ch <- rpcResult{err: fmt.Errorf("connection lost")}
		delete(c.pending, tag)
	}
	c.pendingMu.Unlock()

	if c.onDisconnect != nil {
		c.onDisconnect(err)
	}
	c.log.Warn("disconnected from node", zap.Error(err))

	go c.reconnectLoop(ctx)
}

func (c *LightClient) reconnectLoop(ctx context.Context) {
	delay := c.cfg.InitialDelay
	for {
		select {
		case <-c.closeChan:
			return
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		attempt := atomic.AddInt32(&c.retryCount, 1)
		c.log.Info("reconnecting to node", zap.Int32("attempt", attempt), zap.Duration("delay", delay))

		if err := c.dial(ctx); err != nil {
			c.log.Warn("reconnect failed", zap.Error(err))
			delay *= 2
			if delay > c.cfg.MaxDelay {
				delay = c.cfg.MaxDelay
			}
			continue
		}

		atomic.StoreInt32(&c.state, int32(StateConnected))
		atomic.StoreInt32(&c.retryCount, 0)
		if c.onConnect != nil {
			c.onConnect()
		}
		c.log.Info("reconnected to node")

		go c.readPump(ctx)
		go c.pingPump()
		return
	}
}

func (c *LightClient) pingPump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeChan:
			return
		case <-ticker.C:
			if c.State() != StateConnected {
				return
			}
			c.connMu.Lock()
			conn := c.conn
			if conn != nil {
				conn.SetWriteDeadline(time.Now().Add(c.cfg.PongTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					c.connMu.Unlock()
					c.handleDisconnect(context.Background(), err)
					return
				}
			}
			c.connMu.Unlock()
		}
	}
}

// Close закрывает соединение и останавливает переподключение
func (c *LightClient) Close() error {
	c.closeOnce.Do(func() { close(c.closeChan) })
	atomic.StoreInt32(&c.state, int32(StateClosed))

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		_ = err
	}
	return nil
}

// ============================================================
// Reader
// ============================================================

// ReadBalances читает балансы контракта по всем активам
func (c *LightClient) ReadBalances(ctx context.Context, address string) (map[string]int64, error) {
	raw, err := c.requestWithRetry(ctx, "light/get_aa_balances", map[string]interface{}{"address": address})
	if err != nil {
		return nil, Unavailable("read balances "+address, err)
	}
	var resp struct {
		Balances map[string]int64 `json:"balances"`
	}
	if err := jsonFast.Unmarshal(raw, &resp); err != nil {
		return nil, Unavailable("decode balances "+address, err)
	}
	return resp.Balances, nil
}

// ReadStateVars читает все state-переменные контракта с данным префиксом
func (c *LightClient) ReadStateVars(ctx context.Context, address, prefix string) (map[string]json.RawMessage, error) {
	raw, err := c.requestWithRetry(ctx, "light/get_aa_state_vars", map[string]interface{}{
		"address":    address,
		"var_prefix": prefix,
	})
	if err != nil {
		return nil, Unavailable("read state vars "+address, err)
	}
	var vars map[string]json.RawMessage
	if err := jsonFast.Unmarshal(raw, &vars); err != nil {
		return nil, Unavailable("decode state vars "+address, err)
	}
	return vars, nil
}

// ReadStateVar читает одну state-переменную; nil если её нет
func (c *LightClient) ReadStateVar(ctx context.Context, address, name string) (json.RawMessage, error) {
	vars, err := c.ReadStateVars(ctx, address, name)
	if err != nil {
		return nil, err
	}
	raw, ok := vars[name]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

// ReadParams читает параметры контракта из его определения
func (c *LightClient) ReadParams(ctx context.Context, address string) (map[string]interface{}, error) {
	raw, err := c.requestWithRetry(ctx, "light/get_definition", address)
	if err != nil {
		return nil, Unavailable("read definition "+address, err)
	}
	// Определение контракта: ["autonomous agent", {"base_aa": ..., "params": {...}}]
	var definition []json.RawMessage
	if err := jsonFast.Unmarshal(raw, &definition); err != nil || len(definition) < 2 {
		return nil, Unavailable("decode definition "+address, err)
	}
	var body struct {
		Params map[string]interface{} `json:"params"`
	}
	if err := jsonFast.Unmarshal(definition[1], &body); err != nil {
		return nil, Unavailable("decode definition params "+address, err)
	}
	return body.Params, nil
}

// ExecuteGetter вызывает getter-функцию контракта
func (c *LightClient) ExecuteGetter(ctx context.Context, address, getter string, args ...interface{}) (json.RawMessage, error) {
	params := map[string]interface{}{"address": address, "getter": getter}
	if len(args) > 0 {
		params["args"] = args
	}
	raw, err := c.requestWithRetry(ctx, "light/execute_getter", params)
	if err != nil {
		return nil, Unavailable("execute getter "+getter+" on "+address, err)
	}
	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	if err := jsonFast.Unmarshal(raw, &resp); err != nil {
		return nil, Unavailable("decode getter result "+address, err)
	}
	if resp.Error != "" {
		return nil, Unavailable("getter "+getter+" on "+address, fmt.Errorf("%s", resp.Error))
	}
	return resp.Result, nil
}
