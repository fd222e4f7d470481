// Package botapp собирает и запускает приложение бота: хранилище, кеш,
// клиент Telegram, машину состояний и служебный HTTP-сервер.
package botapp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/msviridov/ddu-penalty-bot/internal/bot"
	"github.com/msviridov/ddu-penalty-bot/internal/cache"
	"github.com/msviridov/ddu-penalty-bot/internal/config"
	"github.com/msviridov/ddu-penalty-bot/internal/lib/sl"
	"github.com/msviridov/ddu-penalty-bot/internal/metrics"
	"github.com/msviridov/ddu-penalty-bot/internal/migrations"
	"github.com/msviridov/ddu-penalty-bot/internal/rates/sheets"
	"github.com/msviridov/ddu-penalty-bot/internal/services/calculator"
	"github.com/msviridov/ddu-penalty-bot/internal/services/gate"
	"github.com/msviridov/ddu-penalty-bot/internal/session"
	"github.com/msviridov/ddu-penalty-bot/internal/storage"
	"github.com/msviridov/ddu-penalty-bot/internal/telegram"
)

// pollRetryDelay пауза перед повтором после неудачного опроса.
const pollRetryDelay = 3 * time.Second

type App struct {
	server  *http.Server
	logger  *slog.Logger
	db      *storage.Storage
	client  *telegram.Client
	machine *bot.Machine
	cfg     *config.Config
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	client := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.APIEndpoint,
		cfg.Telegram.SendTimeout, cfg.Telegram.SendRate, cfg.Telegram.SendBurst, logger)

	registry := prometheus.NewRegistry()
	botMetrics := metrics.New(registry)

	subscriptionGate := gate.New(client, db, cacheRedis, cfg.Telegram.ChannelID, botMetrics.OracleFailures, logger)
	ratesProvider := sheets.New(cfg.RatesProvider.CSVURL, cfg.RatesProvider.FetchTimeout, logger)
	penaltyCalculator := calculator.New(cfg.Penalty, logger)

	machine := bot.New(
		logger,
		session.NewStore(),
		subscriptionGate,
		ratesProvider,
		penaltyCalculator,
		db,
		client,
		cfg.Telegram,
		botMetrics,
	)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db, registry)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:  srv,
		logger:  logger,
		db:      db,
		client:  client,
		machine: machine,
		cfg:     cfg,
	}, nil
}

// Run запускает служебный HTTP-сервер и цикл длинного опроса Telegram,
// блокируется до отмены контекста или фатальной ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	a.setupBot(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	go a.pollUpdates(ctx)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.Close()
		return err
	}
}

// setupBot выполняет стартовые вызовы Bot API: меню команд и проверку канала.
// Сбои не фатальны, бот продолжает работу.
func (a *App) setupBot(ctx context.Context) {
	const op = "app.bot.setupBot"
	log := a.logger.With(slog.String("op", op))

	commands := []telegram.BotCommand{
		{Command: "start", Description: "Начать новый расчет неустойки"},
		{Command: "reset", Description: "Сбросить текущий расчет"},
		{Command: "cancel", Description: "Отменить текущее действие"},
		{Command: "help", Description: "Помощь по использованию бота"},
		{Command: "about", Description: "Информация о боте"},
	}
	if err := a.client.SetMyCommands(ctx, commands, nil); err != nil {
		log.Warn("failed to set bot commands", sl.Err(err))
	}

	// Администраторы видят расширенное меню в личном чате с ботом
	adminCommands := append(commands,
		telegram.BotCommand{Command: "admin", Description: "Административные команды"},
		telegram.BotCommand{Command: "adduser", Description: "Добавить подписчика по ID"},
		telegram.BotCommand{Command: "stats", Description: "Статистика использования"},
	)
	for _, adminID := range a.cfg.Telegram.AdminIDs {
		scope := &telegram.BotCommandScope{Type: "chat", ChatID: adminID}
		if err := a.client.SetMyCommands(ctx, adminCommands, scope); err != nil {
			log.Warn("failed to set admin commands",
				slog.Int64("admin_id", adminID), sl.Err(err))
		}
	}

	me, err := a.client.GetMe(ctx)
	if err != nil {
		log.Warn("failed to get bot identity", sl.Err(err))
		return
	}
	log.Info("bot identity confirmed", slog.String("username", me.Username))

	// Без прав администратора в канале getChatMember будет падать,
	// а шлюз подписки — пропускать всех по fail-open
	member, err := a.client.GetChatMember(ctx, a.cfg.Telegram.ChannelID, me.ID)
	if err != nil {
		log.Warn("failed to check bot rights in channel", sl.Err(err))
		return
	}
	if member.Status != telegram.MemberStatusAdministrator && member.Status != telegram.MemberStatusCreator {
		log.Warn("bot is not a channel administrator, subscription checks will fail open",
			slog.String("status", member.Status))
	}
}

// pollUpdates цикл длинного опроса Telegram. Каждое обновление обрабатывается
// в отдельной горутине: хранилище сессий сериализует события одного
// пользователя само.
func (a *App) pollUpdates(ctx context.Context) {
	const op = "app.bot.pollUpdates"
	log := a.logger.With(slog.String("op", op))

	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := a.client.GetUpdates(ctx, offset, a.cfg.Telegram.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("failed to fetch updates", sl.Err(err))
			select {
			case <-time.After(pollRetryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			go a.machine.HandleUpdate(ctx, upd)
		}
	}
}
