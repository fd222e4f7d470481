// Package metrics определяет счетчики Prometheus для бота.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор счетчиков, регистрируемых в одном Registry.
type Metrics struct {
	Calculations      *prometheus.CounterVec
	UpdatesTotal      *prometheus.CounterVec
	RateFetchFailures prometheus.Counter
	OracleFailures    prometheus.Counter
	ForcedApprovals   prometheus.Counter
}

// New создает и регистрирует счетчики в переданном Registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_calculations_total",
			Help: "Количество выполненных расчетов неустойки",
		}, []string{"individual", "unique_object"}),
		UpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Количество обработанных обновлений Telegram",
		}, []string{"kind"}),
		RateFetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_rate_fetch_failures_total",
			Help: "Количество неудачных загрузок таблицы ставок",
		}),
		OracleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_membership_oracle_failures_total",
			Help: "Количество сбоев проверки подписки через Telegram API",
		}),
		ForcedApprovals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_forced_approvals_total",
			Help: "Количество принудительных одобрений подписки",
		}),
	}
	reg.MustRegister(m.Calculations, m.UpdatesTotal, m.RateFetchFailures, m.OracleFailures, m.ForcedApprovals)
	return m
}

// ObserveCalculation инкрементирует счетчик расчетов с метками условий.
func (m *Metrics) ObserveCalculation(isIndividual, isUniqueObject bool) {
	m.Calculations.WithLabelValues(
		strconv.FormatBool(isIndividual),
		strconv.FormatBool(isUniqueObject),
	).Inc()
}
