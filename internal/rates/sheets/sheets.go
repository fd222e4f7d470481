// Package sheets реализует поставщика таблицы ставок поверх опубликованной
// Google-таблицы. Таблица выгружается в формате CSV по прямой ссылке,
// авторизация не требуется.
//
// Ожидаемые колонки: дата (ДД.ММ.ГГГГ), ставка ("7,5%" или "0.075"),
// признак моратория (0 или 1). Некорректные строки пропускаются с записью
// в лог — так же, как это делал исходный импорт.
package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/msviridov/ddu-penalty-bot/internal/lib/sl"
	"github.com/msviridov/ddu-penalty-bot/internal/models"
)

// DateLayout формат дат в таблице и в диалоге с пользователем.
const DateLayout = "02.01.2006"

// Client загружает таблицу ставок по HTTP.
type Client struct {
	csvURL     string
	httpClient *http.Client
	log        *slog.Logger
}

// New создает клиента опубликованной таблицы.
func New(csvURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		csvURL:     csvURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// FetchRateTable скачивает и разбирает таблицу ставок.
// Пустая таблица — валидный результат ("данных нет"), а не ошибка.
func (c *Client) FetchRateTable(ctx context.Context) ([]models.RateRecord, error) {
	const op = "rates.sheets.FetchRateTable"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.csvURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var records []models.RateRecord
	for i, row := range rows {
		if len(row) < 3 {
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			if i == 0 {
				// Первая строка обычно заголовок
				continue
			}
			c.log.Warn("skipping malformed rate row",
				slog.Int("row", i+1), sl.Err(err))
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseRow(row []string) (models.RateRecord, error) {
	date, err := time.Parse(DateLayout, strings.TrimSpace(row[0]))
	if err != nil {
		return models.RateRecord{}, fmt.Errorf("invalid date %q: %w", row[0], err)
	}

	rate, err := parseRate(row[1])
	if err != nil {
		return models.RateRecord{}, err
	}

	moratorium, err := strconv.Atoi(strings.TrimSpace(row[2]))
	if err != nil {
		return models.RateRecord{}, fmt.Errorf("invalid moratorium flag %q: %w", row[2], err)
	}

	return models.RateRecord{
		Date:       date,
		Rate:       rate,
		Moratorium: moratorium != 0,
	}, nil
}

// parseRate принимает ставку в виде "7,5%", "7.5%" или готовой доли "0.075".
// Значение с процентом делится на 100.
func parseRate(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	percent := strings.HasSuffix(cleaned, "%")
	cleaned = strings.TrimSuffix(cleaned, "%")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	cleaned = strings.TrimSpace(cleaned)

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q: %w", raw, err)
	}
	if percent {
		value /= 100
	}
	return value, nil
}
