package bot

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"stablearb/internal/ledger"
	"stablearb/internal/models"
)

// ErrWrongPoolAssets - пул обслуживает не ту пару активов
var ErrWrongPoolAssets = errors.New("pool serves different assets")

// ShadowPool - локальное зеркало AMM-пула
//
// Ведёт два набора балансов: committed (подтверждённые леджером) и
// projected (committed + эффект FIFO-очереди pending-свопов). Все
// котировки считаются от projected: решения принимаются поверх ещё
// не подтверждённых, но уже отправленных или наблюдаемых свопов,
// иначе один и тот же дисбаланс будет исправлен дважды.
//
// Синхронизация внешняя: все методы вызываются под глобальным локом
// движка (см. Engine), собственных мьютексов здесь нет.
type ShadowPool struct {
	address       string
	interestAsset string
	stableAsset   string
	fee           float64

	committed models.PoolBalances
	projected models.PoolBalances
	pending   []models.PendingSwap

	log *zap.Logger
}

// NewShadowPool создаёт зеркало пула и проверяет его параметры
//
// Читает определение пула (пара активов, комиссия) и committed-балансы.
// Если пул обслуживает другую пару активов - ошибка конфигурации,
// работать с ним нельзя.
func NewShadowPool(ctx context.Context, reader ledger.Reader, address, interestAsset, stableAsset string, log *zap.Logger) (*ShadowPool, error) {
	params, err := reader.ReadParams(ctx, address)
	if err != nil {
		return nil, err
	}

	asset0, _ := params["asset0"].(string)
	asset1, _ := params["asset1"].(string)
	if !(asset0 == interestAsset && asset1 == stableAsset || asset1 == interestAsset && asset0 == stableAsset) {
		return nil, fmt.Errorf("%w: %s has %s/%s", ErrWrongPoolAssets, address, asset0, asset1)
	}

	// Комиссия хранится умноженной на 1e11
	rawFee, _ := params["swap_fee"].(float64)
	fee := rawFee / 1e11

	balances, err := reader.ReadBalances(ctx, address)
	if err != nil {
		return nil, err
	}
	committed := normalizePoolBalances(balances, interestAsset, stableAsset)

	p := &ShadowPool{
		address:       address,
		interestAsset: interestAsset,
		stableAsset:   stableAsset,
		fee:           fee,
		committed:     committed,
		projected:     committed.Clone(),
		log:           log.Named("pool"),
	}
	p.log.Info("pool mirror initialized",
		zap.String("address", address),
		zap.Float64("fee", fee),
		zap.Int64("interest_reserve", committed[interestAsset]),
		zap.Int64("stable_reserve", committed[stableAsset]))
	return p, nil
}

// normalizePoolBalances оставляет только два актива пула
// (балансы в base-активе для комиссий не относятся к резервам)
func normalizePoolBalances(raw map[string]int64, interestAsset, stableAsset string) models.PoolBalances {
	return models.PoolBalances{
		interestAsset: raw[interestAsset],
		stableAsset:   raw[stableAsset],
	}
}

// Address возвращает адрес контракта пула
func (p *ShadowPool) Address() string { return p.address }

// Fee возвращает комиссию пула (доля, например 0.003)
func (p *ShadowPool) Fee() float64 { return p.fee }

// OutAsset возвращает противоположный актив пары
func (p *ShadowPool) OutAsset(inAsset string) string {
	if inAsset == p.interestAsset {
		return p.stableAsset
	}
	return p.interestAsset
}

// PoolAsset сообщает, принадлежит ли актив паре пула
func (p *ShadowPool) PoolAsset(asset string) bool {
	return asset == p.interestAsset || asset == p.stableAsset
}

// Price - спот-цена interest-актива по projected-балансам
func (p *ShadowPool) Price() float64 {
	return SpotPrice(p.projected[p.interestAsset], p.projected[p.stableAsset])
}

// Output котирует своп inAmount inAsset по projected-балансам
func (p *ShadowPool) Output(inAmount int64, inAsset, outAsset string) int64 {
	return AmmOutput(p.projected[inAsset], p.projected[outAsset], inAmount, p.fee)
}

// Input котирует обратный своп: сколько inAsset нужно за outAmount outAsset
// Возвращает +Inf если outAmount не покрывается резервом
func (p *ShadowPool) Input(outAmount int64, inAsset, outAsset string) float64 {
	return AmmInput(p.projected[inAsset], p.projected[outAsset], outAmount, p.fee)
}

// RequiredStableIn - объём stable-актива для подъёма цены до target
func (p *ShadowPool) RequiredStableIn(targetPrice float64) int64 {
	return RequiredStableIn(p.projected[p.interestAsset], p.projected[p.stableAsset], targetPrice, p.fee)
}

// RequiredInterestIn - объём interest-актива для спуска цены до target
func (p *ShadowPool) RequiredInterestIn(targetPrice float64) int64 {
	return RequiredInterestIn(p.projected[p.interestAsset], p.projected[p.stableAsset], targetPrice, p.fee)
}

// applySwap накатывает один своп на projected-балансы
func (p *ShadowPool) applySwap(inAmount int64, inAsset string) {
	outAsset := p.OutAsset(inAsset)
	outAmount := p.Output(inAmount, inAsset, outAsset)
	p.projected[inAsset] += inAmount
	p.projected[outAsset] -= outAmount
}

// ApplyAndQueue накатывает своп на projected и ставит его в очередь pending
//
// Вызывается и для чужих наблюдаемых свопов (request-событие), и для
// наших спекулятивных (сразу после отправки транзакции).
func (p *ShadowPool) ApplyAndQueue(inAmount int64, inAsset, unit string) {
	p.applySwap(inAmount, inAsset)
	p.pending = append(p.pending, models.PendingSwap{AmountIn: inAmount, AssetIn: inAsset, Unit: unit})
	p.log.Debug("queued pending swap",
		zap.Int64("amount_in", inAmount),
		zap.String("asset_in", inAsset),
		zap.String("unit", unit))
}

// Replay пересобирает projected: committed + вся очередь pending по порядку
func (p *ShadowPool) Replay() {
	p.projected = p.committed.Clone()
	for _, swap := range p.pending {
		p.applySwap(swap.AmountIn, swap.AssetIn)
	}
}

// RemovePendingThrough снимает префикс очереди до triggerUnit включительно
//
// Очередь FIFO: подтверждение транзакции X означает, что всё отправленное
// до X тоже подтверждено (или отброшено). Если unit в очереди не найден,
// очередь не меняется.
func (p *ShadowPool) RemovePendingThrough(triggerUnit string) int {
	idx := -1
	for i, swap := range p.pending {
		if swap.Unit == triggerUnit {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0
	}
	p.pending = p.pending[idx+1:]
	return idx + 1
}

// PendingCount возвращает длину очереди pending-свопов
func (p *ShadowPool) PendingCount() int { return len(p.pending) }

// OnRequest учитывает наблюдаемую, ещё не подтверждённую транзакцию к пулу
//
// Возвращает true если транзакция содержит платёж в одном из активов
// пары (то есть это своп и проекция изменилась).
func (p *ShadowPool) OnRequest(ev *ledger.RequestEvent) bool {
	for _, payment := range ev.Payments {
		if !p.PoolAsset(payment.Asset) {
			continue
		}
		p.ApplyAndQueue(payment.Amount, payment.Asset, ev.Unit)
		return true
	}
	return false
}

// OnResponse учитывает подтверждение исполнения транзакции пулом
//
// Снимает исполненный префикс очереди, накатывает фактические дельты
// балансов на committed (если не bounce) и пересобирает projected.
func (p *ShadowPool) OnResponse(ev *ledger.ResponseEvent) {
	removed := p.RemovePendingThrough(ev.TriggerUnit)
	if removed > 0 {
		p.log.Debug("confirmed pending swaps",
			zap.String("trigger_unit", ev.TriggerUnit),
			zap.Int("removed", removed))
	}
	if !ev.Bounced {
		for asset, delta := range ev.BalanceDeltas {
			if p.PoolAsset(asset) {
				p.committed[asset] += delta
			}
		}
	}
	p.Replay()
}

// Reconcile сверяет committed-балансы со свежепрочитанными из леджера
//
// При расхождении (пропущенные события) принимает прочитанное состояние
// за истину и пересобирает projected. Возвращает true если расхождение
// было обнаружено.
func (p *ShadowPool) Reconcile(fresh map[string]int64) bool {
	freshBalances := normalizePoolBalances(fresh, p.interestAsset, p.stableAsset)
	if p.committed.Equal(freshBalances) {
		return false
	}
	p.log.Warn("pool balances mismatch",
		zap.Int64("mirrored_interest", p.committed[p.interestAsset]),
		zap.Int64("mirrored_stable", p.committed[p.stableAsset]),
		zap.Int64("real_interest", freshBalances[p.interestAsset]),
		zap.Int64("real_stable", freshBalances[p.stableAsset]))
	p.committed = freshBalances
	p.Replay()
	return true
}

// Committed возвращает копию committed-балансов
func (p *ShadowPool) Committed() models.PoolBalances { return p.committed.Clone() }

// Projected возвращает копию projected-балансов
func (p *ShadowPool) Projected() models.PoolBalances { return p.projected.Clone() }

// Drift - относительное отклонение спот-цены от целевой, в процентах
func (p *ShadowPool) Drift(targetPrice float64) float64 {
	if targetPrice == 0 {
		return 0
	}
	return math.Abs(p.Price()-targetPrice) / targetPrice * 100
}
