package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"stablearb/internal/ledger"
	"stablearb/internal/models"
)

// ErrNotManager - оператор не является менеджером arb-контракта
//
// Контракт принимает open/close/challenge только от своего менеджера,
// все наши транзакции отскочили бы. Ошибка конфигурации.
var ErrNotManager = errors.New("operator is not the manager of the arb contract")

const arbUnlockVarPrefix = "amount_"

// Notifier доставляет уведомления оператору
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification)
}

// ActionJournal ведёт журнал отправленных действий
type ActionJournal interface {
	Record(ctx context.Context, a *models.ActionRecord)
	UpdateStatus(ctx context.Context, unit, status, errorMessage string)
}

// EngineConfig - параметры одного арбитражного движка
type EngineConfig struct {
	// Адрес arb-контракта (цель)
	ArbAddress string
	// Адрес оператора (должен совпадать с менеджером контракта)
	OperatorAddress string
	// Адрес bank-контракта для вывода накопленных балансов
	BankAddress string
	// Допуск на ошибки округления: расчётный убыток не больше этого
	// количества единиц считается шумом, а не реальным убытком
	Tolerance int64
}

// Engine - арбитражный движок одного arb-контракта
//
// Держит зеркала пула и реестра депозитов и принимает решения
// open/close/challenge. Каждый экземпляр обслуживает ровно одну цель;
// несколько целей - несколько движков в одном процессе.
//
// Вся последовательность "прочитать снапшот - решить - отправить -
// спекулятивно накатить" выполняется под одним мьютексом: события
// леджера и плановые сверки не могут перемежаться с серединой оценки.
type Engine struct {
	mu sync.Mutex

	cfg  EngineConfig
	pool *ShadowPool
	book *DepositBook

	interestAsset string
	stableAsset   string

	reader    ledger.Reader
	submitter ledger.Submitter

	notifier Notifier
	journal  ActionJournal

	state   string
	stateMu sync.RWMutex

	log *zap.Logger
}

// NewEngine создаёт движок для одного arb-контракта
//
// Читает конфигурацию контракта (адреса пула и vault-контракта),
// проверяет, что оператор - менеджер контракта, строит оба зеркала
// и регистрирует обработчики событий. Watcher подписывает все три
// адреса, после чего события начинают поступать через dispatcher.
func NewEngine(
	ctx context.Context,
	cfg EngineConfig,
	reader ledger.Reader,
	submitter ledger.Submitter,
	dispatcher *ledger.Dispatcher,
	watcher ledger.Watcher,
	notifier Notifier,
	journal ActionJournal,
	log *zap.Logger,
) (*Engine, error) {
	log = log.Named("engine").With(zap.String("target", cfg.ArbAddress))

	params, err := reader.ReadParams(ctx, cfg.ArbAddress)
	if err != nil {
		return nil, err
	}
	manager, _ := params["manager"].(string)
	if manager != cfg.OperatorAddress {
		return nil, fmt.Errorf("%w: %s (manager is %s)", ErrNotManager, cfg.ArbAddress, manager)
	}
	poolAddress, _ := params["oswap_aa"].(string)
	depositAddress, _ := params["deposit_aa"].(string)
	if poolAddress == "" || depositAddress == "" {
		return nil, fmt.Errorf("arb %s: incomplete params", cfg.ArbAddress)
	}

	book, err := NewDepositBook(ctx, reader, depositAddress, log)
	if err != nil {
		return nil, err
	}

	rawInterest, err := reader.ReadStateVar(ctx, book.CurveAddress(), "asset2")
	if err != nil {
		return nil, err
	}
	var interestAsset string
	if err := jsonFast.Unmarshal(rawInterest, &interestAsset); err != nil {
		return nil, ledger.Unavailable("decode interest asset", err)
	}

	pool, err := NewShadowPool(ctx, reader, poolAddress, interestAsset, book.StableAsset(), log)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:           cfg,
		pool:          pool,
		book:          book,
		interestAsset: interestAsset,
		stableAsset:   book.StableAsset(),
		reader:        reader,
		submitter:     submitter,
		notifier:      notifier,
		journal:       journal,
		state:         models.StateIdle,
		log:           log,
	}

	dispatcher.OnRequest(poolAddress, e.onPoolRequest)
	dispatcher.OnResponse(poolAddress, e.onPoolResponse)
	dispatcher.OnRequest(depositAddress, e.onDepositRequest)
	dispatcher.OnResponse(depositAddress, e.onDepositResponse)
	dispatcher.OnResponse(cfg.ArbAddress, e.onArbResponse)

	for _, address := range []string{poolAddress, depositAddress, cfg.ArbAddress} {
		if err := watcher.Watch(address); err != nil {
			return nil, err
		}
	}

	e.log.Info("engine initialized",
		zap.String("pool", poolAddress),
		zap.String("deposit", depositAddress),
		zap.String("interest_asset", interestAsset),
		zap.String("stable_asset", book.StableAsset()))
	return e, nil
}

// Target возвращает адрес обслуживаемого arb-контракта
func (e *Engine) Target() string { return e.cfg.ArbAddress }

// State возвращает текущее состояние цикла оценки
func (e *Engine) State() string {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

func (e *Engine) setState(to string) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if !CanTransition(e.state, to) && e.state != to {
		e.log.Warn("unexpected state transition",
			zap.String("from", e.state),
			zap.String("to", to))
	}
	e.state = to
}

// TargetStatus - снапшот состояния движка для status API
type TargetStatus struct {
	Target       string              `json:"target"`
	State        string              `json:"state"`
	StateInfo    string              `json:"state_info"`
	SpotPrice    float64             `json:"spot_price"`
	TargetPrice  float64             `json:"target_price"`
	DriftPercent float64             `json:"drift_percent"`
	PendingSwaps int                 `json:"pending_swaps"`
	Deposits     int                 `json:"deposits"`
	ForceCloses  int                 `json:"force_closes"`
	Committed    models.PoolBalances `json:"committed_balances"`
	Projected    models.PoolBalances `json:"projected_balances"`
}

// Status возвращает снапшот для status API
func (e *Engine) Status() TargetStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := e.State()
	targetPrice := e.book.TargetPrice()
	return TargetStatus{
		Target:       e.cfg.ArbAddress,
		State:        state,
		StateInfo:    StateInfo(state),
		SpotPrice:    e.pool.Price(),
		TargetPrice:  targetPrice,
		DriftPercent: e.pool.Drift(targetPrice),
		PendingSwaps: e.pool.PendingCount(),
		Deposits:     e.book.DepositCount(),
		ForceCloses:  e.book.ForceCloseCount(),
		Committed:    e.pool.Committed(),
		Projected:    e.pool.Projected(),
	}
}

// ============================================================
// Обработчики событий леджера
// ============================================================

func (e *Engine) onPoolRequest(ctx context.Context, ev *ledger.RequestEvent) {
	RecordEvent(e.cfg.ArbAddress, "pool_request")
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pool.OnRequest(ev)
	e.evaluateLocked(ctx)
}

func (e *Engine) onPoolResponse(ctx context.Context, ev *ledger.ResponseEvent) {
	RecordEvent(e.cfg.ArbAddress, "pool_response")
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pool.OnResponse(ev)
	e.evaluateLocked(ctx)
}

func (e *Engine) onDepositRequest(ctx context.Context, ev *ledger.RequestEvent) {
	RecordEvent(e.cfg.ArbAddress, "deposit_request")
	e.mu.Lock()
	defer e.mu.Unlock()
	e.book.OnRequest(ev)
	e.checkChallengesLocked(ctx)
}

func (e *Engine) onDepositResponse(ctx context.Context, ev *ledger.ResponseEvent) {
	RecordEvent(e.cfg.ArbAddress, "deposit_response")
	e.mu.Lock()
	defer e.mu.Unlock()
	e.book.OnResponse(ev)
	e.updateMirrorMetricsLocked()
	e.checkChallengesLocked(ctx)
}

// onArbResponse обрабатывает ответы arb-контракта на наши транзакции
//
// Bounce означает, что спекулятивно учтённый своп не состоялся:
// очередь pending чистится и проекция пересобирается без него.
func (e *Engine) onArbResponse(ctx context.Context, ev *ledger.ResponseEvent) {
	RecordEvent(e.cfg.ArbAddress, "arb_response")
	e.mu.Lock()
	defer e.mu.Unlock()

	if ev.Bounced {
		Bounces.WithLabelValues(e.cfg.ArbAddress).Inc()
		e.log.Warn("our transaction bounced",
			zap.String("trigger_unit", ev.TriggerUnit),
			zap.String("error", ev.Error))

		removed := e.pool.RemovePendingThrough(ev.TriggerUnit)
		if removed > 0 {
			e.pool.Replay()
		}
		delete(e.book.pendingCloses, ev.TriggerUnit)

		if e.journal != nil {
			e.journal.UpdateStatus(ctx, ev.TriggerUnit, models.ActionStatusBounced, ev.Error)
		}
		e.notify(ctx, models.NotificationTypeBounce, models.SeverityWarn,
			fmt.Sprintf("transaction %s bounced: %s", ev.TriggerUnit, ev.Error),
			map[string]interface{}{"unit": ev.TriggerUnit, "error": ev.Error})
		return
	}

	if e.journal != nil {
		e.journal.UpdateStatus(ctx, ev.TriggerUnit, models.ActionStatusConfirmed, "")
	}
}

// ============================================================
// Цикл оценки
// ============================================================

// Evaluate запускает цикл оценки вне событийного потока
// (первичный прогон при старте, после переподключения)
func (e *Engine) Evaluate(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluateLocked(ctx)
}

// evaluateLocked сравнивает спот-цену с целевой и исправляет перекос
//
// Вызывается под e.mu. Цена ниже цели - interest-актив слишком дёшев:
// открываем депозит и продаём полученный stable-актив в пул. Цена выше
// цели - stable-актив слишком дёшев: покупаем его в пуле и закрываем
// слабейшие депозиты.
func (e *Engine) evaluateLocked(ctx context.Context) {
	e.setState(models.StateEvaluating)

	price := e.pool.Price()
	targetPrice := e.book.TargetPrice()
	UpdatePegMetrics(e.cfg.ArbAddress, price, targetPrice)
	e.log.Debug("evaluating",
		zap.Float64("price", price),
		zap.Float64("target_price", targetPrice))

	switch {
	case price < targetPrice:
		e.evaluateOpenLocked(ctx, targetPrice)
	case price > targetPrice:
		e.evaluateCloseLocked(ctx, targetPrice)
	default:
		RecordEvaluation(e.cfg.ArbAddress, "balanced")
		e.setState(models.StateIdle)
	}
	e.updateMirrorMetricsLocked()
}

// evaluateOpenLocked - цена ниже цели, открываем депозит
func (e *Engine) evaluateOpenLocked(ctx context.Context, targetPrice float64) {
	depositAmount := int64(math.Floor(float64(e.pool.RequiredStableIn(targetPrice)) / targetPrice))
	if depositAmount <= 0 {
		// разница меньше комиссии, двигать цену невыгодно
		RecordEvaluation(e.cfg.ArbAddress, "below_fee")
		e.setState(models.StateIdle)
		return
	}

	// проверяем что не теряем деньги: залог депозита должен
	// откупаться выручкой от продажи stable-актива
	stableAmount := int64(float64(depositAmount) * targetPrice)
	outAmount := e.pool.Output(stableAmount, e.stableAsset, e.interestAsset)
	if outAmount <= depositAmount {
		loss := depositAmount - outAmount
		if loss <= e.cfg.Tolerance {
			// шум округления
			e.log.Debug("rounding loss within tolerance",
				zap.Int64("out", outAmount),
				zap.Int64("deposit", depositAmount))
			RecordEvaluation(e.cfg.ArbAddress, "below_fee")
			e.setState(models.StateIdle)
			return
		}
		RecordEvaluation(e.cfg.ArbAddress, "unprofitable")
		e.log.Error("open would lose money",
			zap.Int64("out", outAmount),
			zap.Int64("deposit", depositAmount))
		e.notify(ctx, models.NotificationTypeUnprofitable, models.SeverityError,
			fmt.Sprintf("opening a deposit would lose %d units", loss),
			map[string]interface{}{"deposit_amount": depositAmount, "out_amount": outAmount})
		e.setState(models.StateError)
		return
	}

	e.setState(models.StateOpening)
	e.log.Info("opening deposit",
		zap.Int64("amount", depositAmount),
		zap.Int64("expected_profit", outAmount-depositAmount))

	unit, err := e.submitter.Submit(ctx, e.cfg.ArbAddress, map[string]interface{}{
		"open_deposit": 1,
		"amount":       depositAmount,
	})
	if err != nil {
		e.failSubmit(ctx, models.ActionOpenDeposit, err)
		return
	}
	RecordEvaluation(e.cfg.ArbAddress, "open")
	e.recordAction(ctx, &models.ActionRecord{
		Kind:         models.ActionOpenDeposit,
		Amount:       depositAmount,
		StableAmount: stableAmount,
		Unit:         unit,
	})
	if unit != "" {
		// спекулятивно учитываем продажу stable-актива: следующая
		// оценка не должна исправлять тот же перекос второй раз
		e.pool.ApplyAndQueue(stableAmount, e.stableAsset, unit)
	}
	e.setState(models.StateIdle)
}

// closeCandidate - выбранный на закрытие депозит с котировками
type closeCandidate struct {
	id             string
	stableAmount   int64
	interestAmount int64
}

// selectDepositsToClose выбирает депозиты под бюджет stable-актива
//
// Идём от слабейшего. Депозит, не влезающий в бюджет, пропускается,
// но после первого пропуска берутся только депозиты с тем же
// protection ratio: нельзя перескакивать к заметно более сильным.
func (e *Engine) selectDepositsToClose(budget int64) []closeCandidate {
	deposits := e.book.DepositsSortedWeakest()

	var selected []closeCandidate
	var maxAllowedRatio float64
	haveMax := false

	for _, d := range deposits {
		ratio := d.ProtectionRatio()
		if haveMax && ratio > maxAllowedRatio {
			break
		}
		var stableAmount int64
		if d.Owner == e.cfg.ArbAddress {
			stableAmount = d.StableAmount
		} else {
			stableAmount = int64(float64(d.Amount) * e.book.TargetPrice())
		}
		if stableAmount <= budget {
			interestIn := e.pool.Input(stableAmount, e.interestAsset, e.stableAsset)
			if math.IsInf(interestIn, 1) {
				break // резерва пула не хватит ни на что крупнее
			}
			selected = append(selected, closeCandidate{
				id:             d.ID,
				stableAmount:   stableAmount,
				interestAmount: int64(interestIn),
			})
			budget -= stableAmount
			e.log.Info("selected deposit to close",
				zap.String("id", d.ID),
				zap.Int64("stable_amount", stableAmount),
				zap.Float64("protection_ratio", ratio))
		} else if !haveMax {
			e.log.Debug("deposit too large for budget",
				zap.String("id", d.ID),
				zap.Int64("stable_amount", stableAmount))
			maxAllowedRatio = ratio
			haveMax = true
		}
	}
	return selected
}

// evaluateCloseLocked - цена выше цели, закрываем слабейшие депозиты
func (e *Engine) evaluateCloseLocked(ctx context.Context, targetPrice float64) {
	interestIn := e.pool.RequiredInterestIn(targetPrice)
	if interestIn <= 0 {
		RecordEvaluation(e.cfg.ArbAddress, "below_fee")
		e.setState(models.StateIdle)
		return
	}
	budget := e.pool.Output(interestIn, e.interestAsset, e.stableAsset)

	selected := e.selectDepositsToClose(budget)
	if len(selected) == 0 {
		e.log.Debug("no deposits fit the budget", zap.Int64("budget", budget))
		RecordEvaluation(e.cfg.ArbAddress, "close")
		e.setState(models.StateIdle)
		return
	}

	e.setState(models.StateClosing)
	e.log.Info("closing deposits",
		zap.Int64("budget", budget),
		zap.Int("count", len(selected)))

	for _, c := range selected {
		unit, err := e.submitter.Submit(ctx, e.cfg.ArbAddress, map[string]interface{}{
			"close_deposit": 1,
			"id":            c.id,
		})
		if err != nil {
			e.failSubmit(ctx, models.ActionCloseDeposit, err)
			return
		}
		e.recordAction(ctx, &models.ActionRecord{
			Kind:         models.ActionCloseDeposit,
			DepositID:    c.id,
			Amount:       c.interestAmount,
			StableAmount: c.stableAmount,
			Unit:         unit,
		})
		if unit == "" {
			continue // ожидаемый отказ отправки, депозит остаётся
		}
		e.book.RegisterPendingClose(unit, c.id)
		// спекулятивно учитываем покупку stable-актива под эту заявку
		e.pool.ApplyAndQueue(c.interestAmount, e.interestAsset, unit)
	}
	RecordEvaluation(e.cfg.ArbAddress, "close")
	e.setState(models.StateIdle)
}

// ============================================================
// Challenge
// ============================================================

// checkChallengesLocked оспаривает force-close записи, если есть
// более слабый депозит
func (e *Engine) checkChallengesLocked(ctx context.Context) {
	challenges := e.book.FindChallengeableCloses()
	for _, c := range challenges {
		unit, err := e.submitter.Submit(ctx, e.cfg.ArbAddress, map[string]interface{}{
			"challenge_force_close": 1,
			"id":                    c.DepositID,
			"weaker_id":             c.WeakerID,
		})
		if err != nil {
			e.failSubmit(ctx, models.ActionChallenge, err)
			return
		}
		e.log.Info("challenged force-close",
			zap.String("id", c.DepositID),
			zap.String("weaker_id", c.WeakerID),
			zap.String("unit", unit))
		e.recordAction(ctx, &models.ActionRecord{
			Kind:      models.ActionChallenge,
			DepositID: c.DepositID,
			Unit:      unit,
		})
	}
}

// ============================================================
// Плановые задачи (вызываются внешним планировщиком)
// ============================================================

// SweepCommitForceCloses фиксирует наши force-close записи с истёкшим
// challenging period и сразу запрашивает разблокировку залога
func (e *Engine) SweepCommitForceCloses(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := e.book.CommittableForceCloses(e.cfg.ArbAddress)
	if len(ids) == 0 {
		return
	}
	e.log.Info("committing force-closes", zap.Strings("ids", ids))
	for _, id := range ids {
		unit, err := e.submitter.Submit(ctx, e.book.Address(), map[string]interface{}{
			"commit_force_close": 1,
			"id":                 id,
		})
		if err != nil {
			e.failSubmit(ctx, models.ActionCommit, err)
			return
		}
		e.recordAction(ctx, &models.ActionRecord{
			Kind:      models.ActionCommit,
			DepositID: id,
			Unit:      unit,
		})

		unlockUnit, err := e.submitter.Submit(ctx, e.cfg.ArbAddress, map[string]interface{}{
			"unlock": 1,
			"id":     id,
		})
		if err != nil {
			e.failSubmit(ctx, models.ActionUnlock, err)
			return
		}
		e.recordAction(ctx, &models.ActionRecord{
			Kind:      models.ActionUnlock,
			DepositID: id,
			Unit:      unlockUnit,
		})
	}
}

// SweepUnlock разблокирует залоги, застрявшие на arb-контракте
//
// Контракт хранит заблокированные суммы в переменных amount_<id>;
// страховка на случай, если немедленный unlock после commit не прошёл.
func (e *Engine) SweepUnlock(ctx context.Context) {
	vars, err := e.reader.ReadStateVars(ctx, e.cfg.ArbAddress, arbUnlockVarPrefix)
	if err != nil {
		e.readFailed(ctx, "unlock sweep", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for name, value := range vars {
		if ledger.VarDeleted(value) {
			continue
		}
		rest := strings.TrimPrefix(name, arbUnlockVarPrefix)
		if len(rest) < depositIDLength {
			continue
		}
		id := rest[:depositIDLength]
		e.log.Info("unlocking stuck collateral", zap.String("id", id))
		unit, err := e.submitter.Submit(ctx, e.cfg.ArbAddress, map[string]interface{}{
			"unlock": 1,
			"id":     id,
		})
		if err != nil {
			e.failSubmit(ctx, models.ActionUnlock, err)
			return
		}
		e.recordAction(ctx, &models.ActionRecord{
			Kind:      models.ActionUnlock,
			DepositID: id,
			Unit:      unit,
		})
	}
}

// SweepBankWithdraw выводит накопленные балансы arb-контракта из
// bank-контракта (проценты, сдача от закрытий)
func (e *Engine) SweepBankWithdraw(ctx context.Context) {
	if e.cfg.BankAddress == "" {
		return
	}
	prefix := "balance_" + e.cfg.ArbAddress + "_"
	vars, err := e.reader.ReadStateVars(ctx, e.cfg.BankAddress, prefix)
	if err != nil {
		e.readFailed(ctx, "bank withdrawal sweep", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, asset := range []string{e.interestAsset, e.stableAsset} {
		raw, ok := vars[prefix+asset]
		if !ok || ledger.VarDeleted(raw) {
			continue
		}
		var amount int64
		if err := jsonFast.Unmarshal(raw, &amount); err != nil || amount <= 0 {
			continue
		}
		e.log.Info("withdrawing from bank",
			zap.String("asset", asset),
			zap.Int64("amount", amount))
		unit, err := e.submitter.Submit(ctx, e.cfg.BankAddress, map[string]interface{}{
			"withdraw": 1,
			"recipients": []map[string]interface{}{
				{"address": e.cfg.ArbAddress, "asset": asset, "amount": amount},
			},
		})
		if err != nil {
			e.failSubmit(ctx, models.ActionWithdraw, err)
			return
		}
		e.recordAction(ctx, &models.ActionRecord{
			Kind:   models.ActionWithdraw,
			Amount: amount,
			Unit:   unit,
		})
	}
}

// SweepReconcile сверяет committed-балансы пула с леджером
//
// Расхождение означает пропущенные события (разрыв соединения);
// прочитанное состояние принимается за истину, проекция пересобирается
// и сразу выполняется новая оценка.
func (e *Engine) SweepReconcile(ctx context.Context) {
	fresh, err := e.reader.ReadBalances(ctx, e.pool.Address())
	if err != nil {
		e.readFailed(ctx, "pool reconciliation", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool.Reconcile(fresh) {
		ReconcileMismatches.WithLabelValues(e.cfg.ArbAddress).Inc()
		e.notify(ctx, models.NotificationTypeMismatch, models.SeverityWarn,
			"pool balance mismatch found during reconciliation, mirror rebuilt",
			map[string]interface{}{"fresh": fresh})
		e.evaluateLocked(ctx)
	}
}

// ============================================================
// Вспомогательные
// ============================================================

func (e *Engine) updateMirrorMetricsLocked() {
	UpdateMirrorMetrics(e.cfg.ArbAddress,
		e.pool.PendingCount(),
		e.book.DepositCount(),
		e.book.ForceCloseCount())
}

// failSubmit обрабатывает неожиданный сбой отправки
func (e *Engine) failSubmit(ctx context.Context, kind string, err error) {
	e.log.Error("submission failed", zap.String("kind", kind), zap.Error(err))
	e.recordAction(ctx, &models.ActionRecord{
		Kind:         kind,
		Status:       models.ActionStatusFailed,
		ErrorMessage: err.Error(),
	})
	e.notify(ctx, models.NotificationTypeError, models.SeverityError,
		fmt.Sprintf("%s submission failed: %v", kind, err), nil)
	e.setState(models.StateError)
}

// readFailed обрабатывает недоступность данных леджера в sweep'е
func (e *Engine) readFailed(ctx context.Context, op string, err error) {
	e.log.Warn("ledger read failed, sweep skipped",
		zap.String("op", op),
		zap.Error(err))
	if !errors.Is(err, ledger.ErrDataUnavailable) {
		e.notify(ctx, models.NotificationTypeError, models.SeverityError,
			fmt.Sprintf("%s failed: %v", op, err), nil)
	}
}

func (e *Engine) recordAction(ctx context.Context, a *models.ActionRecord) {
	a.Target = e.cfg.ArbAddress
	if a.Status == "" {
		if a.Unit == "" {
			a.Status = models.ActionStatusFailed
		} else {
			a.Status = models.ActionStatusSent
		}
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	RecordAction(e.cfg.ArbAddress, a.Kind)
	if e.journal != nil {
		e.journal.Record(ctx, a)
	}
}

func (e *Engine) notify(ctx context.Context, notificationType, severity, message string, meta map[string]interface{}) {
	if e.notifier == nil {
		return
	}
	target := e.cfg.ArbAddress
	e.notifier.Notify(ctx, &models.Notification{
		Timestamp: time.Now(),
		Type:      notificationType,
		Severity:  severity,
		Target:    &target,
		Message:   message,
		Meta:      meta,
	})
}
