package models

// Deposit - открытый залоговый депозит в vault-контракте
//
// Поля соответствуют значению state-переменной deposit_<id> контракта.
// ID не хранится в значении переменной, он извлекается из её имени
// (44 символа после префикса deposit_).
type Deposit struct {
	ID                     string `json:"id"`
	Owner                  string `json:"owner"`
	Amount                 int64  `json:"amount"`        // залог в interest-активе
	StableAmount           int64  `json:"stable_amount"` // выданный кредит в stable-активе
	InterestRecipient      string `json:"interest_recipient,omitempty"`
	Ts                     int64  `json:"ts"` // unix-время открытия
	Protection             int64  `json:"protection,omitempty"`
	ProtectionWithdrawalTs int64  `json:"protection_withdrawal_ts,omitempty"`
}

// ProtectionRatio - относительный буфер защиты депозита
// Чем меньше, тем слабее депозит и тем раньше он закрывается force-close'ом
func (d *Deposit) ProtectionRatio() float64 {
	if d.Amount == 0 {
		return 0
	}
	return float64(d.Protection) / float64(d.Amount)
}

// ForceClose - запись о принудительном закрытии депозита
//
// Живёт в течение challenging period; в этот период может быть оспорена
// более слабым депозитом, после истечения становится committable.
type ForceClose struct {
	DepositID       string  `json:"-"`
	Closer          string  `json:"closer"`
	Ts              int64   `json:"ts"`
	Interest        int64   `json:"interest,omitempty"`
	ProtectionRatio float64 `json:"protection_ratio"`
}

// Challenge - найденная пара "force-close + более слабый открытый депозит"
type Challenge struct {
	DepositID string `json:"id"`
	WeakerID  string `json:"weaker_id"`
}
