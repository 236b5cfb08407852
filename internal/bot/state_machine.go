package bot

import "stablearb/internal/models"

// ValidTransitions определяет допустимые переходы между состояниями
// цикла оценки
var ValidTransitions = map[string][]string{
	models.StateIdle:       {models.StateEvaluating},
	models.StateEvaluating: {models.StateOpening, models.StateClosing, models.StateIdle, models.StateError},
	models.StateOpening:    {models.StateIdle, models.StateError},
	models.StateClosing:    {models.StateIdle, models.StateError},
	models.StateError:      {models.StateEvaluating}, // следующее событие запускает новую оценку
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StateInfo возвращает описание состояния для UI
func StateInfo(s string) string {
	switch s {
	case models.StateIdle:
		return "Ожидание следующего события"
	case models.StateEvaluating:
		return "Расчёт отклонения цены..."
	case models.StateOpening:
		return "Открытие депозита..."
	case models.StateClosing:
		return "Закрытие депозитов..."
	case models.StateError:
		return "Оценка прервана ошибкой"
	default:
		return "Неизвестное состояние"
	}
}
