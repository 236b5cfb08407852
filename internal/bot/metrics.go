package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики арбитражного ядра
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для уведомлений о проблемах
// - Анализ поведения пега в production

// ============ Метрики цены ============

// PriceDrift - отклонение спот-цены от целевой в процентах
var PriceDrift = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "stablearb",
		Subsystem: "peg",
		Name:      "price_drift_percent",
		Help:      "Deviation of pool spot price from target price in percent",
	},
	[]string{"target"},
)

// SpotPriceGauge - текущая спот-цена interest-актива по проекции пула
var SpotPriceGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "stablearb",
		Subsystem: "peg",
		Name:      "spot_price",
		Help:      "Projected pool spot price of the interest asset",
	},
	[]string{"target"},
)

// TargetPriceGauge - текущая целевая цена
var TargetPriceGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "stablearb",
		Subsystem: "peg",
		Name:      "target_price",
		Help:      "Current target price of the interest asset",
	},
	[]string{"target"},
)

// ============ Счётчики событий ============

// EventsProcessed - количество обработанных событий леджера по типам
var EventsProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stablearb",
		Subsystem: "core",
		Name:      "events_processed_total",
		Help:      "Total number of processed ledger events",
	},
	[]string{"target", "type"}, // pool_request, pool_response, deposit_request, deposit_response, arb_response
)

// Evaluations - количество циклов оценки по исходу
var Evaluations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stablearb",
		Subsystem: "core",
		Name:      "evaluations_total",
		Help:      "Total number of evaluation cycles",
	},
	[]string{"target", "outcome"}, // open, close, balanced, below_fee, unprofitable, error
)

// ActionsSent - отправленные корректирующие действия
var ActionsSent = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stablearb",
		Subsystem: "core",
		Name:      "actions_sent_total",
		Help:      "Total number of corrective actions submitted",
	},
	[]string{"target", "kind"},
)

// Bounces - наши транзакции, отклонённые контрактами
var Bounces = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stablearb",
		Subsystem: "core",
		Name:      "bounces_total",
		Help:      "Total number of our transactions bounced by contracts",
	},
	[]string{"target"},
)

// ============ Метрики зеркал ============

// PendingSwaps - длина очереди неподтверждённых свопов
var PendingSwaps = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "stablearb",
		Subsystem: "mirror",
		Name:      "pending_swaps",
		Help:      "Current length of the pending swap queue",
	},
	[]string{"target"},
)

// TrackedDeposits - размер зеркала реестра депозитов
var TrackedDeposits = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "stablearb",
		Subsystem: "mirror",
		Name:      "tracked_deposits",
		Help:      "Number of open deposits in the local mirror",
	},
	[]string{"target"},
)

// TrackedForceCloses - активные force-close записи в зеркале
var TrackedForceCloses = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "stablearb",
		Subsystem: "mirror",
		Name:      "tracked_force_closes",
		Help:      "Number of active force-close records in the local mirror",
	},
	[]string{"target"},
)

// ReconcileMismatches - расхождения committed-балансов при сверке
var ReconcileMismatches = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stablearb",
		Subsystem: "mirror",
		Name:      "reconcile_mismatches_total",
		Help:      "Total number of balance mismatches found during reconciliation",
	},
	[]string{"target"},
)

// ============ Метрики соединения ============

// NodeConnection - статус подключения к ноде леджера
var NodeConnection = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "stablearb",
		Subsystem: "ledger",
		Name:      "node_connection_status",
		Help:      "Ledger node connection status (1=connected, 0=disconnected)",
	},
)

// ============ Вспомогательные функции ============

// RecordEvent записывает обработанное событие леджера
func RecordEvent(target, eventType string) {
	EventsProcessed.WithLabelValues(target, eventType).Inc()
}

// RecordEvaluation записывает исход цикла оценки
func RecordEvaluation(target, outcome string) {
	Evaluations.WithLabelValues(target, outcome).Inc()
}

// RecordAction записывает отправленное действие
func RecordAction(target, kind string) {
	ActionsSent.WithLabelValues(target, kind).Inc()
}

// UpdatePegMetrics обновляет метрики цены для цели
func UpdatePegMetrics(target string, spot, targetPrice float64) {
	SpotPriceGauge.WithLabelValues(target).Set(spot)
	TargetPriceGauge.WithLabelValues(target).Set(targetPrice)
	if targetPrice != 0 {
		drift := (spot - targetPrice) / targetPrice * 100
		if drift < 0 {
			drift = -drift
		}
		PriceDrift.WithLabelValues(target).Set(drift)
	}
}

// UpdateMirrorMetrics обновляет метрики размеров зеркал
func UpdateMirrorMetrics(target string, pendingSwaps, deposits, forceCloses int) {
	PendingSwaps.WithLabelValues(target).Set(float64(pendingSwaps))
	TrackedDeposits.WithLabelValues(target).Set(float64(deposits))
	TrackedForceCloses.WithLabelValues(target).Set(float64(forceCloses))
}

// UpdateNodeStatus обновляет статус подключения к ноде
func UpdateNodeStatus(connected bool) {
	if connected {
		NodeConnection.Set(1)
	} else {
		NodeConnection.Set(0)
	}
}
