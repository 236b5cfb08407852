package models

import "time"

// Виды корректирующих действий, отправляемых в леджер
const (
	ActionOpenDeposit  = "OPEN_DEPOSIT"  // открыть депозит и продать stable-актив
	ActionCloseDeposit = "CLOSE_DEPOSIT" // закрыть депозит, выкупив stable-актив
	ActionChallenge    = "CHALLENGE"     // оспорить force-close более слабым депозитом
	ActionCommit       = "COMMIT"        // зафиксировать неоспоренный force-close
	ActionUnlock       = "UNLOCK"        // разблокировать залог после commit
	ActionWithdraw     = "WITHDRAW"      // вывести накопленный баланс из bank-контракта
)

// Статусы действия в журнале
const (
	ActionStatusSent      = "sent"      // транзакция отправлена
	ActionStatusConfirmed = "confirmed" // получен не-bounce ответ контракта
	ActionStatusBounced   = "bounced"   // контракт отклонил транзакцию
	ActionStatusFailed    = "failed"    // отправка не удалась (например, нет средств)
)

// ActionRecord - запись журнала действий (таблица actions)
type ActionRecord struct {
	ID           int       `json:"id" db:"id"`
	Target       string    `json:"target" db:"target"` // адрес arb-контракта
	Kind         string    `json:"kind" db:"kind"`
	DepositID    string    `json:"deposit_id,omitempty" db:"deposit_id"`
	Amount       int64     `json:"amount" db:"amount"`
	StableAmount int64     `json:"stable_amount" db:"stable_amount"`
	Unit         string    `json:"unit,omitempty" db:"unit"`
	Status       string    `json:"status" db:"status"`
	ErrorMessage string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
