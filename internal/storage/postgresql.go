// Package storage реализует хранилище данных на основе PostgreSQL:
// вердикты о подписке пользователей и журнал выполненных расчетов.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/msviridov/ddu-penalty-bot/internal/models"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'subscribed_users'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table subscribed_users missing or query error: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// ===== SUBSCRIBED USERS =====

// RecordUser сохраняет сведения о пользователе. Положительный вердикт
// о подписке не понижается: однажды подписанный остается подписанным,
// даже если очередное событие пришло с is_subscribed = false.
func (s *Storage) RecordUser(ctx context.Context, status models.SubscriptionStatus) error {
	const op = "storage.RecordUser"

	query := `INSERT INTO subscribed_users (user_id, first_name, last_name, username, is_subscribed, last_checked)
			  VALUES ($1, $2, $3, $4, $5, now())
			  ON CONFLICT (user_id) DO UPDATE SET
			      first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), subscribed_users.first_name),
			      last_name = COALESCE(NULLIF(EXCLUDED.last_name, ''), subscribed_users.last_name),
			      username = COALESCE(NULLIF(EXCLUDED.username, ''), subscribed_users.username),
			      is_subscribed = subscribed_users.is_subscribed OR EXCLUDED.is_subscribed,
			      last_checked = now()`
	_, err := s.DB.ExecContext(ctx, query,
		status.UserID, status.FirstName, status.LastName, status.Username, status.IsSubscribed)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpsertSubscription записывает вердикт о подписке как есть.
// Используется шлюзом подписки, который сохраняет только положительные вердикты.
func (s *Storage) UpsertSubscription(ctx context.Context, status models.SubscriptionStatus) error {
	const op = "storage.UpsertSubscription"

	query := `INSERT INTO subscribed_users (user_id, first_name, last_name, username, is_subscribed, last_checked)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (user_id) DO UPDATE SET
			      first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), subscribed_users.first_name),
			      last_name = COALESCE(NULLIF(EXCLUDED.last_name, ''), subscribed_users.last_name),
			      username = COALESCE(NULLIF(EXCLUDED.username, ''), subscribed_users.username),
			      is_subscribed = EXCLUDED.is_subscribed,
			      last_checked = EXCLUDED.last_checked`
	lastChecked := status.LastChecked
	if lastChecked.IsZero() {
		lastChecked = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx, query,
		status.UserID, status.FirstName, status.LastName, status.Username,
		status.IsSubscribed, lastChecked)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IsSubscribed возвращает сохраненный вердикт о подписке пользователя.
// Незнакомый пользователь считается неподписанным.
func (s *Storage) IsSubscribed(ctx context.Context, userID int64) (bool, error) {
	const op = "storage.IsSubscribed"

	var subscribed bool
	query := `SELECT is_subscribed FROM subscribed_users WHERE user_id = $1`
	err := s.DB.QueryRowContext(ctx, query, userID).Scan(&subscribed)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return subscribed, nil
}

// ===== CALCULATIONS =====

// SaveCalculation добавляет запись в журнал расчетов.
func (s *Storage) SaveCalculation(ctx context.Context, entry models.CalculationEntry) error {
	const op = "storage.SaveCalculation"

	query := `INSERT INTO calculations (uid, user_id, contract_amount, deadline_date,
			      calculation_date, is_individual, is_unique_object, penalty_amount,
			      delay_days, moratorium_days, effective_days, calculated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.DB.ExecContext(ctx, query,
		entry.UID, entry.UserID, entry.ContractAmount, entry.DeadlineDate,
		entry.CalculationDate, entry.IsIndividual, entry.IsUniqueObject, entry.PenaltyAmount,
		entry.DelayDays, entry.MoratoriumDays, entry.EffectiveDays, entry.CalculatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetStatistics возвращает сводную статистику по пользователям и расчетам.
func (s *Storage) GetStatistics(ctx context.Context) (models.StatsSummary, error) {
	const op = "storage.GetStatistics"

	query := `SELECT
			      (SELECT COUNT(*) FROM subscribed_users),
			      (SELECT COUNT(*) FROM subscribed_users WHERE is_subscribed),
			      (SELECT COUNT(*) FROM calculations),
			      (SELECT COALESCE(AVG(contract_amount), 0) FROM calculations),
			      (SELECT COALESCE(AVG(penalty_amount), 0) FROM calculations),
			      (SELECT COUNT(*) FROM calculations WHERE is_individual),
			      (SELECT COUNT(*) FROM calculations WHERE NOT is_individual),
			      (SELECT COUNT(*) FROM calculations WHERE is_unique_object)`

	var stats models.StatsSummary
	err := s.DB.QueryRowContext(ctx, query).Scan(
		&stats.TotalUsers, &stats.SubscribedUsers, &stats.TotalCalculations,
		&stats.AvgContractAmount, &stats.AvgPenalty,
		&stats.IndividualCalculations, &stats.LegalCalculations, &stats.UniqueObjectCalculations)
	if err != nil {
		return models.StatsSummary{}, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}
