package bot

import (
	"math"
	"time"

	"stablearb/internal/models"
)

// ============================================================
// Чистая математика пула и целевой цены
// ============================================================
//
// Все суммы - int64 в наименьших неделимых единицах актива,
// промежуточные расчёты - float64. Округления повторяют правила
// самих контрактов: output вниз, input вверх.

// SecondsPerYear - финансовый год контракта процентной ставки (360 дней)
const SecondsPerYear = 360 * 24 * 3600

// AmmOutput - сколько out-актива выдаст пул за inAmount in-актива
//
// Формула constant product с комиссией на входе:
// out = rOut * in*(1-fee) / (rIn + in*(1-fee)), округление вниз
func AmmOutput(rIn, rOut, inAmount int64, fee float64) int64 {
	netIn := float64(inAmount) * (1 - fee)
	out := float64(rOut) * netIn / (float64(rIn) + netIn)
	return int64(math.Floor(out))
}

// AmmInput - сколько in-актива нужно внести, чтобы получить outAmount
//
// Возвращает +Inf если outAmount >= резерва out-актива: такой объём
// из пула получить невозможно ни за какую цену.
func AmmInput(rIn, rOut, outAmount int64, fee float64) float64 {
	if outAmount >= rOut {
		return math.Inf(1)
	}
	netIn := float64(rIn) * float64(outAmount) / float64(rOut-outAmount)
	return math.Ceil(netIn / (1 - fee))
}

// SpotPrice - цена interest-актива в stable-активе по текущим резервам
func SpotPrice(rInterest, rStable int64) float64 {
	return float64(rStable) / float64(rInterest)
}

// RequiredStableIn - объём stable-актива, поднимающий цену до target
//
// Когда цена ближе к цели, чем комиссия, дальнейший подъём убыточен,
// поэтому цель заранее занижается на комиссию. Отрицательный результат
// означает, что разница меньше комиссии.
func RequiredStableIn(rInterest, rStable int64, targetPrice, fee float64) int64 {
	adjusted := targetPrice * (1 - fee)
	newStable := math.Sqrt(adjusted * float64(rInterest) * float64(rStable))
	delta := newStable - float64(rStable)
	return int64(math.Floor(delta / (1 - fee)))
}

// RequiredInterestIn - объём interest-актива, опускающий цену до target
//
// Зеркально RequiredStableIn: цель завышается на комиссию.
func RequiredInterestIn(rInterest, rStable int64, targetPrice, fee float64) int64 {
	adjusted := targetPrice / (1 - fee)
	newInterest := math.Sqrt(float64(rInterest) * float64(rStable) / adjusted)
	delta := newInterest - float64(rInterest)
	return int64(math.Floor(delta / (1 - fee)))
}

// TargetPrice - целевая цена interest-актива на момент now
//
// Детерминированная функция времени: growth_factor с непрерывным
// начислением ставки от последнего обновления ставки.
func TargetPrice(curve models.CurveParams, now time.Time) float64 {
	term := float64(now.Unix()-curve.RateUpdateTs) / SecondsPerYear
	return curve.GrowthFactor * math.Pow(1+curve.InterestRate, term)
}
