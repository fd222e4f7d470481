package models

import "time"

// CalculationInput собранные за диалог параметры расчета.
// Перед вызовом калькулятора структура дополнительно проверяется валидатором:
// пошаговые проверки в машине состояний уже гарантируют корректность,
// но калькулятор не должен полагаться на то, кто его вызвал.
type CalculationInput struct {
	ContractAmount  float64   `validate:"required,gt=0"` // Сумма по ДДУ в рублях
	DeadlineDate    time.Time `validate:"required"`      // Крайняя дата передачи объекта
	CalculationDate time.Time `validate:"required"`      // Дата, на которую считается неустойка
	IsIndividual    bool      // Физическое лицо (true) или юридическое (false)
	IsUniqueObject  bool      // Уникальный объект строительства
}

// CalculationResult итог успешного расчета неустойки.
// RefinancingRatePercent хранится в процентах (x100) для отображения,
// в формуле участвует исходная доля.
type CalculationResult struct {
	PenaltyAmount          float64 // Итоговая неустойка, округлена до копеек
	DelayDays              int     // Всего дней просрочки
	MoratoriumDays         int     // Дней под мораторием
	EffectiveDays          int     // Дней, вошедших в начисление
	RefinancingRatePercent float64 // Ставка рефинансирования в процентах
	IsIndividual           bool
	IsUniqueObject         bool
}

// CalculationOutcome исход расчета: либо результат, либо информационное
// сообщение (просрочка отсутствует, ставка не найдена). Информационный исход —
// не ошибка, он завершает попытку штатно.
type CalculationOutcome struct {
	Result *CalculationResult // nil для информационного исхода
	Info   string             // Текст причины, когда Result == nil
}

// HasResult сообщает, содержит ли исход денежный результат.
func (o CalculationOutcome) HasResult() bool {
	return o.Result != nil
}

// CalculationEntry запись журнала расчетов, сохраняемая в хранилище.
type CalculationEntry struct {
	UID                string    // Идентификатор записи (uuid)
	UserID             int64     // Telegram ID пользователя
	ContractAmount     float64
	DeadlineDate       string    // В исходном виде ДД.ММ.ГГГГ, как ввел пользователь
	CalculationDate    string
	IsIndividual       bool
	IsUniqueObject     bool
	PenaltyAmount      float64
	DelayDays          int
	MoratoriumDays     int
	EffectiveDays      int
	CalculatedAt       time.Time
}
