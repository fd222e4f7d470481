// Package rates содержит таблицу ставок рефинансирования с поиском по дате
// и интерфейс поставщика данных таблицы.
package rates

import (
	"context"
	"time"

	"github.com/msviridov/ddu-penalty-bot/internal/models"
)

// Provider описывает внешний источник таблицы ставок.
// Пустой список означает "данных нет" и не является ошибкой.
type Provider interface {
	FetchRateTable(ctx context.Context) ([]models.RateRecord, error)
}

// floorDate нижняя граница поиска: раньше записей заведомо нет.
var floorDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Timeline неизменяемое представление таблицы ставок, индексированное по дате.
// Строится один раз на каждый запрос расчета.
type Timeline struct {
	byDate map[time.Time]models.RateRecord
}

// NewTimeline строит Timeline из списка записей. Даты нормализуются
// к полуночи UTC; при дубликатах по дате побеждает последняя запись.
func NewTimeline(records []models.RateRecord) *Timeline {
	byDate := make(map[time.Time]models.RateRecord, len(records))
	for _, rec := range records {
		rec.Date = Day(rec.Date)
		byDate[rec.Date] = rec
	}
	return &Timeline{byDate: byDate}
}

// Lookup возвращает запись для последней известной даты, не превышающей
// запрошенную. Поиск идет по одному дню назад до нижней границы (2000 год);
// если записи нет и там — ok == false. Нулевое значение по умолчанию
// не подставляется никогда.
func (t *Timeline) Lookup(date time.Time) (models.RateRecord, bool) {
	for d := Day(date); !d.Before(floorDate); d = d.AddDate(0, 0, -1) {
		if rec, ok := t.byDate[d]; ok {
			return rec, true
		}
	}
	return models.RateRecord{}, false
}

// Len возвращает количество загруженных записей.
func (t *Timeline) Len() int {
	return len(t.byDate)
}

// Day нормализует момент времени к календарному дню (полночь UTC).
func Day(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}
