// Package calculator реализует расчет неустойки за просрочку передачи объекта
// долевого строительства по 214-ФЗ.
//
// Ставка рефинансирования фиксируется на крайнюю дату передачи и не
// пересчитывается по дням: расчет опирается на то, что ставка стабильна внутри
// окна просрочки. Мораторий, напротив, проверяется на каждый день окна —
// мораторные периоды начинаются и заканчиваются посреди окна.
package calculator

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/msviridov/ddu-penalty-bot/internal/config"
	"github.com/msviridov/ddu-penalty-bot/internal/models"
	"github.com/msviridov/ddu-penalty-bot/internal/rates"
)

// Информационные исходы расчета. Это не ошибки: попытка завершается штатно,
// просто без денежного результата.
const (
	MsgNoDelay = "Просрочка отсутствует. Дата расчета не наступила после крайней даты по ДДУ."
)

// Service выполняет расчет неустойки. Экземпляр не хранит состояния между
// вызовами, все данные приходят аргументами.
type Service struct {
	cfg config.Penalty
	log *slog.Logger
}

// New создает калькулятор с константами формулы из конфига.
func New(cfg config.Penalty, log *slog.Logger) *Service {
	return &Service{cfg: cfg, log: log}
}

// Calculate вычисляет неустойку по собранным параметрам и таблице ставок.
//
// Алгоритм:
//  1. Дата расчета не позже крайней даты — исход "просрочки нет".
//  2. Ставка берется на крайнюю дату; если ее нет — исход "ставка не найдена".
//  3. Окно просрочки — все дни строго после крайней даты по дату расчета
//     включительно; для каждого дня мораторий определяется независимо.
//     Дни, для которых запись не нашлась, не попадают ни в мораторные,
//     ни в начисляемые.
//  4. Неустойка = (1/делитель) x ставка x сумма x начисляемые дни,
//     округление до копеек; для уникальных объектов действует потолок
//     в долях от суммы договора.
func (s *Service) Calculate(input models.CalculationInput, timeline *rates.Timeline) models.CalculationOutcome {
	const op = "services.calculator.Calculate"

	deadline := rates.Day(input.DeadlineDate)
	calcDate := rates.Day(input.CalculationDate)

	if !calcDate.After(deadline) {
		return models.CalculationOutcome{Info: MsgNoDelay}
	}

	rateRec, ok := timeline.Lookup(deadline)
	if !ok {
		return models.CalculationOutcome{
			Info: fmt.Sprintf("Не удалось найти ставку рефинансирования для даты %s",
				deadline.Format("02.01.2006")),
		}
	}

	var delayDays, moratoriumDays, effectiveDays int
	for day := deadline.AddDate(0, 0, 1); !day.After(calcDate); day = day.AddDate(0, 0, 1) {
		delayDays++

		dayRec, ok := timeline.Lookup(day)
		if !ok {
			// Сознательная мягкость: день без записи исключается из обоих счетчиков
			continue
		}
		if dayRec.Moratorium {
			moratoriumDays++
		} else {
			effectiveDays++
		}
	}

	divisor := s.cfg.DivisorLegalEntity
	if input.IsUniqueObject {
		divisor = s.cfg.DivisorUniqueObject
	} else if input.IsIndividual {
		divisor = s.cfg.DivisorIndividual
	}

	penalty := (1 / divisor) * rateRec.Rate * input.ContractAmount * float64(effectiveDays)

	if input.IsUniqueObject {
		maxPenalty := input.ContractAmount * s.cfg.UniqueObjectMaxShare
		if penalty > maxPenalty {
			penalty = maxPenalty
		}
	}

	result := &models.CalculationResult{
		PenaltyAmount:          round2(penalty),
		DelayDays:              delayDays,
		MoratoriumDays:         moratoriumDays,
		EffectiveDays:          effectiveDays,
		RefinancingRatePercent: rateRec.Rate * 100,
		IsIndividual:           input.IsIndividual,
		IsUniqueObject:         input.IsUniqueObject,
	}

	s.log.Info("penalty calculated",
		slog.String("op", op),
		slog.Int("delay_days", result.DelayDays),
		slog.Int("effective_days", result.EffectiveDays),
		slog.Float64("penalty", result.PenaltyAmount))

	return models.CalculationOutcome{Result: result}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
