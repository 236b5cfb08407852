package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDataUnavailable - чтение у внешнего коллаборатора не удалось
//
// Текущая оценка прерывается без мутации зеркал; повтор произойдёт
// на следующем триггерном событии.
var ErrDataUnavailable = errors.New("ledger data unavailable")

// Unavailable оборачивает ошибку чтения в ErrDataUnavailable
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDataUnavailable, op, err)
}

// Reader - операции чтения состояния леджера
//
// Точные wire-форматы принадлежат платформе леджера и находятся
// вне ядра; здесь только абстрактные операции коллаборатора.
type Reader interface {
	// ReadBalances читает балансы контракта по всем активам
	ReadBalances(ctx context.Context, address string) (map[string]int64, error)

	// ReadStateVar читает одну state-переменную контракта
	// Возвращает nil если переменная не существует
	ReadStateVar(ctx context.Context, address, name string) (json.RawMessage, error)

	// ReadStateVars читает все state-переменные контракта с данным префиксом
	ReadStateVars(ctx context.Context, address, prefix string) (map[string]json.RawMessage, error)

	// ReadParams читает неизменяемые параметры контракта
	ReadParams(ctx context.Context, address string) (map[string]interface{}, error)

	// ExecuteGetter вызывает getter-функцию контракта
	ExecuteGetter(ctx context.Context, address, getter string, args ...interface{}) (json.RawMessage, error)
}

// Submitter - отправка транзакций в леджер (Dispatcher-коллаборатор)
type Submitter interface {
	// Submit отправляет data-сообщение на адрес контракта.
	//
	// Возвращает id транзакции, либо пустую строку БЕЗ ошибки если
	// отправка не удалась по ожидаемой причине (например, недостаточно
	// средств). Ошибка возвращается только для неожиданных сбоев.
	Submit(ctx context.Context, toAddress string, payload map[string]interface{}) (string, error)
}

// Watcher - подписка на события контрактов
type Watcher interface {
	// Watch добавляет адрес в список наблюдаемых; события request/response
	// для него начинают поступать в Dispatcher
	Watch(address string) error
}
