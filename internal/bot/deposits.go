package bot

import (
	"context"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"stablearb/internal/ledger"
	"stablearb/internal/models"
)

var jsonFast = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	depositVarPrefix    = "deposit_"
	forceCloseVarSuffix = "_force_close"
	depositIDLength     = 44 // длина адреса-идентификатора в имени переменной
)

// DepositBook - локальное зеркало реестра депозитов vault-контракта
//
// Хранит открытые депозиты, активные force-close записи и in-flight
// заявки на закрытие (наши и чужие наблюдаемые). Инициализируется
// bulk-чтением переменных deposit_*, дальше ведётся только по
// событиям - повторных bulk-чтений нет.
//
// Синхронизация внешняя, под глобальным локом движка.
type DepositBook struct {
	address      string
	curveAddress string
	stableAsset  string
	curve        models.CurveParams
	params       models.DepositParams

	deposits    map[string]*models.Deposit
	forceCloses map[string]*models.ForceClose

	// unit заявки на закрытие -> id депозита; такие депозиты
	// исключаются из выбора до подтверждения или bounce
	pendingCloses map[string]string

	// порядок первого появления депозитов: при равных protection ratio
	// порядок выбора должен быть воспроизводимым
	order []string

	now func() time.Time

	log *zap.Logger
}

// NewDepositBook создаёт зеркало реестра депозитов
//
// Читает stable-актив и параметры vault-контракта, параметры кривой
// с curve-контракта и все переменные deposit_* одним префиксным чтением.
func NewDepositBook(ctx context.Context, reader ledger.Reader, address string, log *zap.Logger) (*DepositBook, error) {
	b := &DepositBook{
		address:       address,
		deposits:      make(map[string]*models.Deposit),
		forceCloses:   make(map[string]*models.ForceClose),
		pendingCloses: make(map[string]string),
		now:           time.Now,
		log:           log.Named("deposits"),
	}

	raw, err := reader.ReadStateVar(ctx, address, "asset")
	if err != nil {
		return nil, err
	}
	if err := jsonFast.Unmarshal(raw, &b.stableAsset); err != nil {
		return nil, ledger.Unavailable("decode stable asset", err)
	}

	rawCurve, err := reader.ExecuteGetter(ctx, address, "get_curve_aa")
	if err != nil {
		return nil, err
	}
	if err := jsonFast.Unmarshal(rawCurve, &b.curveAddress); err != nil {
		return nil, ledger.Unavailable("decode curve address", err)
	}

	rawParams, err := reader.ExecuteGetter(ctx, address, "get_deposit_params")
	if err != nil {
		return nil, err
	}
	if err := jsonFast.Unmarshal(rawParams, &b.params); err != nil {
		return nil, ledger.Unavailable("decode deposit params", err)
	}

	if err := b.readCurveParams(ctx, reader); err != nil {
		return nil, err
	}

	vars, err := reader.ReadStateVars(ctx, address, depositVarPrefix)
	if err != nil {
		return nil, err
	}
	// имена сортируются: порядок первого появления депозитов должен
	// быть воспроизводимым между перезапусками
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.applyVar(name, vars[name])
	}

	b.log.Info("deposit book initialized",
		zap.String("address", address),
		zap.Int("deposits", len(b.deposits)),
		zap.Int("force_closes", len(b.forceCloses)))
	return b, nil
}

func (b *DepositBook) readCurveParams(ctx context.Context, reader ledger.Reader) error {
	for name, dst := range map[string]interface{}{
		"growth_factor":  &b.curve.GrowthFactor,
		"interest_rate":  &b.curve.InterestRate,
		"rate_update_ts": &b.curve.RateUpdateTs,
	} {
		raw, err := reader.ReadStateVar(ctx, b.curveAddress, name)
		if err != nil {
			return err
		}
		if raw == nil {
			continue // переменная ещё не записана, остаётся нулевое значение
		}
		if err := jsonFast.Unmarshal(raw, dst); err != nil {
			return ledger.Unavailable("decode curve var "+name, err)
		}
	}
	return nil
}

// SetClock подменяет источник времени (для тестов)
func (b *DepositBook) SetClock(now func() time.Time) { b.now = now }

// Address возвращает адрес vault-контракта
func (b *DepositBook) Address() string { return b.address }

// CurveAddress возвращает адрес curve-контракта
func (b *DepositBook) CurveAddress() string { return b.curveAddress }

// StableAsset возвращает id stable-актива
func (b *DepositBook) StableAsset() string { return b.stableAsset }

// Params возвращает параметры vault-контракта
func (b *DepositBook) Params() models.DepositParams { return b.params }

// TargetPrice - целевая цена interest-актива на текущий момент
func (b *DepositBook) TargetPrice() float64 {
	return TargetPrice(b.curve, b.now())
}

// DepositCount возвращает количество открытых депозитов в зеркале
func (b *DepositBook) DepositCount() int { return len(b.deposits) }

// ForceCloseCount возвращает количество активных force-close записей
func (b *DepositBook) ForceCloseCount() int { return len(b.forceCloses) }

// Deposit возвращает депозит по id (nil если не отслеживается)
func (b *DepositBook) Deposit(id string) *models.Deposit { return b.deposits[id] }

// applyVar применяет одну переменную deposit_* к зеркалу
func (b *DepositBook) applyVar(name string, value []byte) {
	if !strings.HasPrefix(name, depositVarPrefix) {
		return
	}
	rest := name[len(depositVarPrefix):]
	if len(rest) < depositIDLength {
		return
	}
	id := rest[:depositIDLength]

	if strings.HasSuffix(name, forceCloseVarSuffix) {
		if ledger.VarDeleted(value) {
			delete(b.forceCloses, id)
			b.log.Debug("force-close removed", zap.String("id", id))
			return
		}
		fc := &models.ForceClose{DepositID: id}
		if err := jsonFast.Unmarshal(value, fc); err != nil {
			b.log.Warn("bad force-close var", zap.String("name", name), zap.Error(err))
			return
		}
		b.forceCloses[id] = fc
		b.log.Debug("force-close recorded", zap.String("id", id), zap.String("closer", fc.Closer))
		return
	}

	if ledger.VarDeleted(value) {
		delete(b.deposits, id)
		b.log.Debug("deposit removed", zap.String("id", id))
		return
	}
	d := &models.Deposit{ID: id}
	if err := jsonFast.Unmarshal(value, d); err != nil {
		b.log.Warn("bad deposit var", zap.String("name", name), zap.Error(err))
		return
	}
	d.ID = id
	if _, seen := b.deposits[id]; !seen {
		b.order = append(b.order, id)
	}
	b.deposits[id] = d
}

// isBeingClosed сообщает, есть ли in-flight заявка на закрытие депозита
func (b *DepositBook) isBeingClosed(id string) bool {
	for _, pendingID := range b.pendingCloses {
		if pendingID == id {
			return true
		}
	}
	return false
}

// RegisterPendingClose помечает депозит как закрываемый нашей транзакцией
func (b *DepositBook) RegisterPendingClose(unit, depositID string) {
	b.pendingCloses[unit] = depositID
}

// DepositsSortedWeakest возвращает депозиты, доступные для закрытия,
// отсортированные от слабейшего (по возрастанию protection ratio)
//
// Исключаются депозиты с активным force-close, с in-flight заявкой
// на закрытие и моложе min_deposit_term. Сортировка стабильная:
// при равных ratio сохраняется порядок первого появления.
func (b *DepositBook) DepositsSortedWeakest() []*models.Deposit {
	cutoff := b.now().Unix() - b.params.MinDepositTerm

	eligible := make([]*models.Deposit, 0, len(b.deposits))
	for _, id := range b.order {
		d, ok := b.deposits[id]
		if !ok {
			continue
		}
		if _, closed := b.forceCloses[id]; closed {
			continue
		}
		if b.isBeingClosed(id) {
			continue
		}
		if d.Ts >= cutoff { // слишком молодой
			continue
		}
		eligible = append(eligible, d)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].ProtectionRatio() < eligible[j].ProtectionRatio()
	})
	return eligible
}

// FindChallengeableCloses ищет force-close записи, которые можно оспорить
//
// Запись оспорима, если существует открытый депозит слабее закрытого
// (меньший protection ratio), достаточно старый на момент force-close
// и не снижавший protection незадолго до него.
func (b *DepositBook) FindChallengeableCloses() []models.Challenge {
	deposits := b.DepositsSortedWeakest()

	weakerID := func(fc *models.ForceClose) string {
		for _, d := range deposits {
			if d.ProtectionRatio() >= fc.ProtectionRatio {
				break // дальше только сильнее
			}
			if d.Ts+b.params.MinDepositTerm+b.params.ChallengeImmunityPeriod > fc.Ts {
				continue // слишком молодой на момент force-close
			}
			if d.ProtectionWithdrawalTs > fc.Ts-b.params.ChallengeImmunityPeriod {
				continue // protection недавно снижался
			}
			return d.ID
		}
		return ""
	}

	var challenges []models.Challenge
	for _, id := range b.order {
		fc, ok := b.forceCloses[id]
		if !ok {
			continue
		}
		if weaker := weakerID(fc); weaker != "" {
			b.log.Info("found challengeable force-close",
				zap.String("id", id),
				zap.String("weaker_id", weaker))
			challenges = append(challenges, models.Challenge{DepositID: id, WeakerID: weaker})
		}
	}
	// force-close может висеть на депозите, которого нет в order
	// (открыт до нашего старта и уже удалён) - проверяем остальные
	for id, fc := range b.forceCloses {
		if containsID(b.order, id) {
			continue
		}
		if weaker := weakerID(fc); weaker != "" {
			challenges = append(challenges, models.Challenge{DepositID: id, WeakerID: weaker})
		}
	}
	return challenges
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// CommittableForceCloses возвращает id наших force-close записей,
// у которых истёк challenging period
func (b *DepositBook) CommittableForceCloses(closer string) []string {
	now := b.now().Unix()
	var ids []string
	for id, fc := range b.forceCloses {
		if fc.Closer != closer {
			continue
		}
		if fc.Ts+b.params.ChallengingPeriod >= now {
			continue // период оспаривания ещё идёт
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ExpectedCloseAmount - сколько stable-актива контракт потребует за закрытие
//
// Владелец, не переназначавший interest recipient, платит номинал кредита;
// все остальные - текущую целевую цену залога.
func (b *DepositBook) ExpectedCloseAmount(d *models.Deposit, author string) int64 {
	if author != d.Owner || (d.InterestRecipient != "" && d.InterestRecipient != d.Owner) {
		return int64(float64(d.Amount) * b.TargetPrice())
	}
	return d.StableAmount
}

// OnRequest наблюдает чужие заявки на закрытие депозитов
//
// Если транзакция несёт валидную заявку (существующий депозит, платёж
// в stable-активе не меньше требуемого), депозит помечается как
// закрываемый, чтобы не выбрать его самим.
func (b *DepositBook) OnRequest(ev *ledger.RequestEvent) {
	id, _ := ev.Payload["id"].(string)
	if id == "" {
		return
	}
	d, ok := b.deposits[id]
	if !ok {
		b.log.Debug("close request for unknown deposit", zap.String("id", id))
		return
	}

	var stableAmount int64
	for _, payment := range ev.Payments {
		if payment.Asset == b.stableAsset {
			stableAmount = payment.Amount
			break
		}
	}
	if stableAmount == 0 {
		return
	}

	expected := b.ExpectedCloseAmount(d, ev.Sender)
	if stableAmount < expected {
		// заявка с недоплатой отскочит, депозит останется открытым
		b.log.Debug("underfunded close request ignored",
			zap.String("id", id),
			zap.Int64("sent", stableAmount),
			zap.Int64("expected", expected))
		return
	}
	b.log.Info("observed close request", zap.String("id", id), zap.String("unit", ev.Unit))
	b.pendingCloses[ev.Unit] = id
}

// OnResponse применяет подтверждённые изменения реестра депозитов
//
// Снимает in-flight заявку с trigger unit и накатывает пофилдовые
// upsert/delete переменных deposit_*.
func (b *DepositBook) OnResponse(ev *ledger.ResponseEvent) {
	delete(b.pendingCloses, ev.TriggerUnit)
	for name, value := range ev.UpdatedVars {
		b.applyVar(name, value)
	}
}
