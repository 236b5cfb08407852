package models

// Состояния цикла оценки движка (на одно срабатывание)
const (
	StateIdle       = "idle"       // ожидание следующего события
	StateEvaluating = "evaluating" // чтение снапшота и расчёт под глобальным локом
	StateOpening    = "opening"    // отправка open_deposit
	StateClosing    = "closing"    // отправка close_deposit по выбранным депозитам
	StateError      = "error"      // оценка прервана ошибкой, ждём следующего события
)
