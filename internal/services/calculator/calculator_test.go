package calculator

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msviridov/ddu-penalty-bot/internal/config"
	"github.com/msviridov/ddu-penalty-bot/internal/models"
	"github.com/msviridov/ddu-penalty-bot/internal/rates"
)

func newService() *Service {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(config.Penalty{
		DivisorIndividual:    150,
		DivisorLegalEntity:   300,
		DivisorUniqueObject:  300,
		UniqueObjectMaxShare: 0.05,
	}, logger)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func singleRateTimeline() *rates.Timeline {
	return rates.NewTimeline([]models.RateRecord{
		{Date: date(2025, time.January, 1), Rate: 0.21, Moratorium: false},
	})
}

func TestCalculate_IndividualFullWindow(t *testing.T) {
	// Сквозной сценарий: 3 500 000, крайняя дата 07.02.2025,
	// расчет на 20.05.2025, физлицо, не уникальный объект
	svc := newService()

	outcome := svc.Calculate(models.CalculationInput{
		ContractAmount:  3_500_000,
		DeadlineDate:    date(2025, time.February, 7),
		CalculationDate: date(2025, time.May, 20),
		IsIndividual:    true,
	}, singleRateTimeline())

	require.True(t, outcome.HasResult())
	result := outcome.Result

	assert.Equal(t, 102, result.DelayDays)
	assert.Equal(t, 0, result.MoratoriumDays)
	assert.Equal(t, 102, result.EffectiveDays)
	// (1/150) x 0.21 x 3 500 000 x 102
	assert.InDelta(t, 499_800.00, result.PenaltyAmount, 0.001)
	assert.InDelta(t, 21.0, result.RefinancingRatePercent, 1e-9)
	assert.True(t, result.IsIndividual)
	assert.False(t, result.IsUniqueObject)
}

func TestCalculate_UniqueObjectCapped(t *testing.T) {
	// Тот же сценарий, но объект уникальный: сырое значение 249 900
	// превышает потолок 5% от суммы (175 000) и должно быть срезано
	svc := newService()

	outcome := svc.Calculate(models.CalculationInput{
		ContractAmount:  3_500_000,
		DeadlineDate:    date(2025, time.February, 7),
		CalculationDate: date(2025, time.May, 20),
		IsIndividual:    true,
		IsUniqueObject:  true,
	}, singleRateTimeline())

	require.True(t, outcome.HasResult())
	assert.InDelta(t, 175_000.00, outcome.Result.PenaltyAmount, 0.001)
}

func TestCalculate_UniqueObjectBelowCap(t *testing.T) {
	// Короткое окно: сырое значение меньше потолка, срезания быть не должно
	svc := newService()

	outcome := svc.Calculate(models.CalculationInput{
		ContractAmount:  3_500_000,
		DeadlineDate:    date(2025, time.February, 7),
		CalculationDate: date(2025, time.February, 17),
		IsIndividual:    false,
		IsUniqueObject:  true,
	}, singleRateTimeline())

	require.True(t, outcome.HasResult())
	// (1/300) x 0.21 x 3 500 000 x 10 = 24 500
	assert.InDelta(t, 24_500.00, outcome.Result.PenaltyAmount, 0.001)
}

func TestCalculate_NoDelay(t *testing.T) {
	svc := newService()

	tests := []struct {
		name     string
		calcDate time.Time
	}{
		{name: "даты совпадают", calcDate: date(2025, time.February, 7)},
		{name: "дата расчета раньше крайней", calcDate: date(2025, time.January, 20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := svc.Calculate(models.CalculationInput{
				ContractAmount:  3_500_000,
				DeadlineDate:    date(2025, time.February, 7),
				CalculationDate: tt.calcDate,
				IsIndividual:    true,
			}, singleRateTimeline())

			assert.False(t, outcome.HasResult())
			assert.Equal(t, MsgNoDelay, outcome.Info)
		})
	}
}

func TestCalculate_RateUnavailable(t *testing.T) {
	svc := newService()

	outcome := svc.Calculate(models.CalculationInput{
		ContractAmount:  1_000_000,
		DeadlineDate:    date(2025, time.February, 7),
		CalculationDate: date(2025, time.March, 1),
		IsIndividual:    true,
	}, rates.NewTimeline(nil))

	assert.False(t, outcome.HasResult())
	assert.Contains(t, outcome.Info, "07.02.2025")
}

func TestCalculate_MoratoriumMidWindow(t *testing.T) {
	// Мораторий включается 11.02 и выключается 21.02:
	// окно 08.02..28.02 = 21 день, из них 10 под мораторием
	svc := newService()

	tl := rates.NewTimeline([]models.RateRecord{
		{Date: date(2025, time.January, 1), Rate: 0.21, Moratorium: false},
		{Date: date(2025, time.February, 11), Rate: 0.21, Moratorium: true},
		{Date: date(2025, time.February, 21), Rate: 0.21, Moratorium: false},
	})

	outcome := svc.Calculate(models.CalculationInput{
		ContractAmount:  1_000_000,
		DeadlineDate:    date(2025, time.February, 7),
		CalculationDate: date(2025, time.February, 28),
		IsIndividual:    true,
	}, tl)

	require.True(t, outcome.HasResult())
	result := outcome.Result

	assert.Equal(t, 21, result.DelayDays)
	assert.Equal(t, 10, result.MoratoriumDays)
	assert.Equal(t, 11, result.EffectiveDays)
	assert.Equal(t, result.DelayDays, result.MoratoriumDays+result.EffectiveDays)
}

func TestCalculate_BackwardScanCoversWindow(t *testing.T) {
	// Единственная запись на крайнюю дату покрывает все окно через поиск назад:
	// сумма мораторных и начисляемых дней равна длине окна
	svc := newService()

	tl := rates.NewTimeline([]models.RateRecord{
		{Date: date(2025, time.February, 7), Rate: 0.21, Moratorium: false},
	})

	deadline := date(2025, time.February, 7)
	outcome := svc.Calculate(models.CalculationInput{
		ContractAmount:  1_000_000,
		DeadlineDate:    deadline,
		CalculationDate: date(2025, time.February, 17),
		IsIndividual:    true,
	}, tl)

	require.True(t, outcome.HasResult())
	result := outcome.Result

	assert.Equal(t, 10, result.DelayDays)
	// Все дни окна покрыты записью от 07.02 через поиск назад
	assert.Equal(t, 10, result.EffectiveDays+result.MoratoriumDays)
	assert.LessOrEqual(t, result.EffectiveDays+result.MoratoriumDays, result.DelayDays)
}

func TestCalculate_RatePinnedAtDeadline(t *testing.T) {
	// Записи после крайней даты не влияют на используемую ставку
	svc := newService()

	tl := rates.NewTimeline([]models.RateRecord{
		{Date: date(2025, time.January, 1), Rate: 0.21, Moratorium: false},
		{Date: date(2025, time.March, 1), Rate: 0.99, Moratorium: false},
	})

	outcome := svc.Calculate(models.CalculationInput{
		ContractAmount:  1_000_000,
		DeadlineDate:    date(2025, time.February, 7),
		CalculationDate: date(2025, time.February, 17),
		IsIndividual:    true,
	}, tl)

	require.True(t, outcome.HasResult())
	assert.InDelta(t, 21.0, outcome.Result.RefinancingRatePercent, 1e-9)
	// (1/150) x 0.21 x 1 000 000 x 10 = 14 000
	assert.InDelta(t, 14_000.00, outcome.Result.PenaltyAmount, 0.001)
}

func TestCalculate_LegalEntityDivisor(t *testing.T) {
	svc := newService()

	outcome := svc.Calculate(models.CalculationInput{
		ContractAmount:  1_000_000,
		DeadlineDate:    date(2025, time.February, 7),
		CalculationDate: date(2025, time.February, 17),
		IsIndividual:    false,
	}, singleRateTimeline())

	require.True(t, outcome.HasResult())
	// (1/300) x 0.21 x 1 000 000 x 10 = 7 000
	assert.InDelta(t, 7_000.00, outcome.Result.PenaltyAmount, 0.001)
}
