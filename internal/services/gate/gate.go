// Package gate реализует проверку подписки пользователя на канал.
//
// Политика проверки:
//  1. Локальный кеш/БД: положительный вердикт окончателен — предполагается,
//     что подписки не отзываются, повторный поход в API не нужен.
//  2. Иначе — запрос к внешнему оракулу (Telegram API). Отрицательный ответ
//     возвращается как есть.
//  3. Положительный ответ сохраняется локально.
//  4. Ошибка самого запроса (в отличие от отрицательного ответа) трактуется
//     как доступ разрешен: сбой почти наверняка означает неверный ID канала
//     или отсутствие прав администратора у бота, а не обман пользователя.
//     Вердикт "подписан" при этом тоже сохраняется.
//
// Пункт 4 и принудительное одобрение после трех неудачных подтверждений
// (ForceApprove, вызывается машиной состояний) вместе фактически отключают
// шлюз при нездоровой конфигурации — это осознанное продуктовое решение,
// унаследованное от первой версии бота.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/msviridov/ddu-penalty-bot/internal/lib/sl"
	"github.com/msviridov/ddu-penalty-bot/internal/models"
)

// MembershipOracle внешний источник истины о членстве в канале.
// Ошибка вызова означает "неизвестно" и не равна отрицательному ответу.
type MembershipOracle interface {
	GetMembershipStatus(ctx context.Context, chatID, userID int64) (bool, error)
}

// SubscriptionRepository долговременное хранилище вердиктов о подписке.
type SubscriptionRepository interface {
	UpsertSubscription(ctx context.Context, status models.SubscriptionStatus) error
	IsSubscribed(ctx context.Context, userID int64) (bool, error)
}

// Cache быстрый кеш вердиктов перед БД.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Gate шлюз подписки.
type Gate struct {
	oracle         MembershipOracle
	repo           SubscriptionRepository
	cache          Cache
	oracleFailures prometheus.Counter
	log            *slog.Logger
	channelID      int64
}

// New создает шлюз подписки для заданного канала. oracleFailures считает
// сбои обращений к оракулу, завершившиеся допуском по fail-open.
func New(oracle MembershipOracle, repo SubscriptionRepository, cache Cache, channelID int64, oracleFailures prometheus.Counter, log *slog.Logger) *Gate {
	return &Gate{
		oracle:         oracle,
		repo:           repo,
		cache:          cache,
		oracleFailures: oracleFailures,
		log:            log,
		channelID:      channelID,
	}
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("subscription:%d", userID)
}

// Check сообщает, допущен ли пользователь к боту. Ошибок не возвращает:
// все сбои поглощаются политикой (см. комментарий пакета).
func (g *Gate) Check(ctx context.Context, user models.UserInfo) bool {
	const op = "services.gate.Check"
	log := g.log.With(slog.String("op", op), slog.Int64("user_id", user.ID))

	var cached models.SubscriptionStatus
	found, err := g.cache.Get(ctx, cacheKey(user.ID), &cached)
	if err != nil {
		log.Warn("cache lookup failed", sl.Err(err))
	}
	if found && cached.IsSubscribed {
		return true
	}

	subscribed, err := g.repo.IsSubscribed(ctx, user.ID)
	if err != nil {
		log.Warn("subscription lookup failed", sl.Err(err))
	}
	if subscribed {
		g.remember(ctx, user, log)
		return true
	}

	isMember, err := g.oracle.GetMembershipStatus(ctx, g.channelID, user.ID)
	if err != nil {
		// Fail-open: сбой оракула не должен запирать пользователей
		log.Warn("membership oracle failed, approving user", sl.Err(err))
		g.oracleFailures.Inc()
		g.persist(ctx, user, log)
		return true
	}
	if !isMember {
		log.Info("user is not a channel member")
		return false
	}

	g.persist(ctx, user, log)
	return true
}

// ForceApprove помечает пользователя подписанным в обход оракула.
// Используется после исчерпания попыток подтверждения и администратором.
func (g *Gate) ForceApprove(ctx context.Context, user models.UserInfo) error {
	const op = "services.gate.ForceApprove"

	status := models.SubscriptionStatus{
		UserID:       user.ID,
		IsSubscribed: true,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Username:     user.Username,
		LastChecked:  time.Now().UTC(),
	}
	if err := g.repo.UpsertSubscription(ctx, status); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := g.cache.Set(ctx, cacheKey(user.ID), status, 0); err != nil {
		g.log.Warn("failed to cache forced approval",
			slog.String("op", op), slog.Int64("user_id", user.ID), sl.Err(err))
	}

	g.log.Info("user force-approved", slog.String("op", op), slog.Int64("user_id", user.ID))
	return nil
}

// persist сохраняет положительный вердикт в БД и кеш.
func (g *Gate) persist(ctx context.Context, user models.UserInfo, log *slog.Logger) {
	status := models.SubscriptionStatus{
		UserID:       user.ID,
		IsSubscribed: true,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Username:     user.Username,
		LastChecked:  time.Now().UTC(),
	}
	if err := g.repo.UpsertSubscription(ctx, status); err != nil {
		log.Error("failed to persist subscription", sl.Err(err))
	}
	g.remember(ctx, user, log)
}

// remember кладет положительный вердикт в кеш без срока жизни.
func (g *Gate) remember(ctx context.Context, user models.UserInfo, log *slog.Logger) {
	status := models.SubscriptionStatus{
		UserID:       user.ID,
		IsSubscribed: true,
		LastChecked:  time.Now().UTC(),
	}
	if err := g.cache.Set(ctx, cacheKey(user.ID), status, 0); err != nil {
		log.Warn("failed to cache subscription", sl.Err(err))
	}
}
