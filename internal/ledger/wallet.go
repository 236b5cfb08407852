package ledger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"stablearb/pkg/ratelimit"
)

// WalletSubmitter отправляет транзакции через JSON-RPC кошелька-демона
//
// Кошелёк держит ключи и сам собирает/подписывает транзакцию; мы
// передаём только адрес получателя и data-payload. Ожидаемые отказы
// (недостаточно средств на арбитражном адресе) не являются ошибками:
// возвращается пустой id, вызывающий код просто пропускает действие.
type WalletSubmitter struct {
	url     string
	client  *http.Client
	limiter *ratelimit.RateLimiter
	log     *zap.Logger
}

// NewWalletSubmitter создаёт Submitter поверх RPC кошелька
func NewWalletSubmitter(url string, timeout time.Duration, rate float64, log *zap.Logger) *WalletSubmitter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WalletSubmitter{
		url: url,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: ratelimit.NewRateLimiter(rate, rate*2),
		log:     log.Named("wallet"),
	}
}

type walletRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type walletRPCResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Submit отправляет data-сообщение на адрес контракта
//
// Возвращает id транзакции. Пустая строка без ошибки означает
// ожидаемый отказ кошелька (не хватает средств); ошибка - только
// неожиданный сбой (сеть, протокол).
func (w *WalletSubmitter) Submit(ctx context.Context, toAddress string, payload map[string]interface{}) (string, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := jsonFast.Marshal(walletRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "sendDataToAA",
		Params: map[string]interface{}{
			"to_address": toAddress,
			"data":       payload,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("wallet rpc: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read wallet response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wallet rpc status %d: %s", resp.StatusCode, string(data))
	}

	var rpcResp walletRPCResponse
	if err := jsonFast.Unmarshal(data, &rpcResp); err != nil {
		return "", fmt.Errorf("decode wallet response: %w", err)
	}

	if rpcResp.Error != nil {
		if isExpectedSubmitFailure(rpcResp.Error.Message) {
			w.log.Warn("submission skipped",
				zap.String("to", toAddress),
				zap.String("reason", rpcResp.Error.Message))
			return "", nil
		}
		return "", fmt.Errorf("wallet error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	w.log.Info("transaction submitted",
		zap.String("to", toAddress),
		zap.String("unit", rpcResp.Result))
	return rpcResp.Result, nil
}

// isExpectedSubmitFailure распознаёт отказы, не являющиеся сбоями
func isExpectedSubmitFailure(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "not enough") ||
		strings.Contains(lower, "insufficient") ||
		strings.Contains(lower, "no funds")
}
