package models

// PoolBalances - балансы двух активов AMM-пула (asset id -> количество)
//
// Существуют в двух экземплярах на пул:
// - committed: последнее состояние, подтверждённое леджером
// - projected: committed + эффект всех ещё не подтверждённых свопов
//
// Инвариант: projected = committed ⊕ fold(apply, pendingQueue)
type PoolBalances map[string]int64

// Clone возвращает независимую копию балансов
func (b PoolBalances) Clone() PoolBalances {
	c := make(PoolBalances, len(b))
	for asset, amount := range b {
		c[asset] = amount
	}
	return c
}

// Equal сравнивает балансы поэлементно
func (b PoolBalances) Equal(other PoolBalances) bool {
	if len(b) != len(other) {
		return false
	}
	for asset, amount := range b {
		if other[asset] != amount {
			return false
		}
	}
	return true
}

// PendingSwap - отправленный или наблюдаемый, но ещё не подтверждённый своп
//
// Очередь pending-свопов строго FIFO: свопы подтверждаются леджером
// в порядке отправки, поэтому подтверждение unit X снимает весь префикс
// очереди до X включительно.
type PendingSwap struct {
	AmountIn int64  `json:"amount_in"`
	AssetIn  string `json:"asset_in"`
	Unit     string `json:"unit"` // id транзакции-триггера
}
