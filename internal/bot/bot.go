// Package bot реализует машину состояний диалога расчета неустойки.
//
// Каждое обновление Telegram превращается в переход конечного автомата
// сессии пользователя: команды обрабатываются из любого состояния,
// текстовый ввод и нажатия кнопок — только в ожидающих их шагах.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator"

	"github.com/msviridov/ddu-penalty-bot/internal/config"
	"github.com/msviridov/ddu-penalty-bot/internal/metrics"
	"github.com/msviridov/ddu-penalty-bot/internal/models"
	"github.com/msviridov/ddu-penalty-bot/internal/rates"
	"github.com/msviridov/ddu-penalty-bot/internal/services/calculator"
	"github.com/msviridov/ddu-penalty-bot/internal/session"
	"github.com/msviridov/ddu-penalty-bot/internal/telegram"
)

// Данные callback-кнопок.
const (
	callbackCheckSubscription     = "check_subscription"
	callbackParticipantIndividual = "participant:individual"
	callbackParticipantLegal      = "participant:legal"
	callbackUniqueYes             = "unique:yes"
	callbackUniqueNo              = "unique:no"
	callbackNewCalculation        = "new_calculation"
	callbackQuickHelp             = "quick_help"
	callbackQuickAbout            = "quick_about"
)

// subscriptionMaxRetries после стольких неудачных проверок подряд
// пользователь помечается подписанным принудительно.
const subscriptionMaxRetries = 3

// Replier исходящая сторона Telegram, нужная машине состояний.
type Replier interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) (telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// SubscriptionGate шлюз подписки на канал.
type SubscriptionGate interface {
	Check(ctx context.Context, user models.UserInfo) bool
	ForceApprove(ctx context.Context, user models.UserInfo) error
}

// Repository хранилище пользователей и журнала расчетов.
type Repository interface {
	RecordUser(ctx context.Context, status models.SubscriptionStatus) error
	SaveCalculation(ctx context.Context, entry models.CalculationEntry) error
	GetStatistics(ctx context.Context) (models.StatsSummary, error)
}

// Machine машина состояний диалога.
type Machine struct {
	log      *slog.Logger
	sessions *session.Store
	gate     SubscriptionGate
	rates    rates.Provider
	calc     *calculator.Service
	repo     Repository
	replier  Replier
	cfg      config.Telegram
	validate *validator.Validate
	metrics  *metrics.Metrics

	remindSeq atomic.Uint64
}

// New собирает машину состояний.
func New(
	log *slog.Logger,
	sessions *session.Store,
	gate SubscriptionGate,
	ratesProvider rates.Provider,
	calc *calculator.Service,
	repo Repository,
	replier Replier,
	cfg config.Telegram,
	m *metrics.Metrics,
) *Machine {
	return &Machine{
		log:      log,
		sessions: sessions,
		gate:     gate,
		rates:    ratesProvider,
		calc:     calc,
		repo:     repo,
		replier:  replier,
		cfg:      cfg,
		validate: validator.New(),
		metrics:  m,
	}
}

// HandleUpdate обрабатывает одно обновление Telegram. Паника в обработчике
// не должна ронять цикл опроса.
func (m *Machine) HandleUpdate(ctx context.Context, upd telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic while handling update",
				slog.Int64("update_id", upd.UpdateID), slog.Any("panic", r))
		}
	}()

	switch {
	case upd.Message != nil && upd.Message.From != nil:
		m.metrics.UpdatesTotal.WithLabelValues("message").Inc()
		m.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		m.metrics.UpdatesTotal.WithLabelValues("callback").Inc()
		m.handleCallback(ctx, upd.CallbackQuery)
	default:
		m.metrics.UpdatesTotal.WithLabelValues("other").Inc()
	}
}

func userInfoFrom(u telegram.User) models.UserInfo {
	return models.UserInfo{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}

// commandName выделяет имя команды из текста: "/start@my_bot arg" -> "start".
func commandName(text string) string {
	name := strings.Fields(text)[0]
	name = strings.TrimPrefix(name, "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name)
}

func (m *Machine) handleMessage(ctx context.Context, msg *telegram.Message) {
	user := userInfoFrom(*msg.From)
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		switch commandName(text) {
		case "start":
			m.cmdStart(ctx, chatID, user)
			return
		case "reset":
			m.cmdReset(ctx, chatID, user)
			return
		case "cancel":
			m.cmdCancel(ctx, chatID, user)
			return
		case "help":
			m.cmdHelp(ctx, chatID, user)
			return
		case "about":
			m.cmdAbout(ctx, chatID, user)
			return
		case "admin":
			m.cmdAdmin(ctx, chatID, user)
			return
		case "adduser":
			m.cmdAddUser(ctx, chatID, user)
			return
		case "stats":
			m.cmdStats(ctx, chatID, user)
			return
		}
		// Незнакомая команда проваливается в обработчик текущего шага:
		// там она будет отклонена с подсказкой про /cancel
	}

	m.sessions.WithSession(user.ID, func(s *session.Session) {
		switch data := s.Data.(type) {
		case session.AwaitingContractAmount:
			m.stepContractAmount(ctx, chatID, s, text)
		case session.AwaitingDeadlineDate:
			m.stepDeadlineDate(ctx, chatID, s, data, text)
		case session.AwaitingCalculationDate:
			m.stepCalculationDate(ctx, chatID, s, data, text)
		case session.AwaitingAdminUserID:
			m.stepAdminUserID(ctx, chatID, s, text)
		case session.AwaitingParticipantType, session.AwaitingUniqueFlag, session.AwaitingSubscription:
			m.send(ctx, chatID, msgUseButtons, nil)
		default:
			// Idle: свободный текст вне диалога игнорируется
		}
	})
}

func (m *Machine) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	user := userInfoFrom(cb.From)

	// Ответ на callback обязателен, иначе у пользователя зависнут "часики"
	ack := func(text string) {
		if err := m.replier.AnswerCallbackQuery(ctx, cb.ID, text); err != nil {
			m.log.Warn("failed to answer callback",
				slog.Int64("user_id", user.ID), slog.String("error", err.Error()))
		}
	}

	if cb.Message == nil {
		ack("")
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	switch cb.Data {
	case callbackQuickHelp:
		ack("")
		m.send(ctx, chatID, quickHelpText, nil)
		return
	case callbackQuickAbout:
		ack("")
		m.send(ctx, chatID, quickAboutText, nil)
		return
	case callbackNewCalculation:
		ack("")
		m.newCalculation(ctx, chatID, user)
		return
	}

	m.sessions.WithSession(user.ID, func(s *session.Session) {
		switch data := s.Data.(type) {
		case session.AwaitingSubscription:
			if cb.Data != callbackCheckSubscription {
				ack("")
				return
			}
			m.stepCheckSubscription(ctx, chatID, messageID, user, s, data, ack)
		case session.AwaitingParticipantType:
			isIndividual, ok := parseParticipantCallback(cb.Data)
			if !ok {
				ack("")
				return
			}
			ack("")
			m.stepParticipantType(ctx, chatID, messageID, s, data, isIndividual)
		case session.AwaitingUniqueFlag:
			isUnique, ok := parseUniqueCallback(cb.Data)
			if !ok {
				ack("")
				return
			}
			ack("")
			m.stepUniqueFlag(ctx, chatID, messageID, user, s, data, isUnique)
		default:
			// Кнопка из устаревшего сообщения
			ack("")
		}
	})
}

func parseParticipantCallback(data string) (isIndividual, ok bool) {
	switch data {
	case callbackParticipantIndividual:
		return true, true
	case callbackParticipantLegal:
		return false, true
	default:
		return false, false
	}
}

func parseUniqueCallback(data string) (isUnique, ok bool) {
	switch data {
	case callbackUniqueYes:
		return true, true
	case callbackUniqueNo:
		return false, true
	default:
		return false, false
	}
}

// send отправляет сообщение, поглощая ошибку: неудачная отправка логируется,
// но не меняет состояние диалога.
func (m *Machine) send(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) {
	if _, err := m.replier.SendMessage(ctx, chatID, text, markup); err != nil {
		m.log.Error("failed to send message",
			slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	}
}

// editOrSend редактирует сообщение; если редактирование невозможно,
// отправляет новое. Совпадение текста со старым — не повод дублировать
// сообщение (повторное нажатие той же кнопки).
func (m *Machine) editOrSend(ctx context.Context, chatID, messageID int64, text string, markup *telegram.InlineKeyboardMarkup) {
	err := m.replier.EditMessageText(ctx, chatID, messageID, text, markup)
	if err == nil || errors.Is(err, telegram.ErrNotModified) {
		return
	}
	m.send(ctx, chatID, text, markup)
}

// nextReminder выдает тексты напоминаний о подписке по кругу.
func (m *Machine) nextReminder() string {
	n := m.remindSeq.Add(1) - 1
	return subscriptionReminders[n%uint64(len(subscriptionReminders))]
}

// recordUser сохраняет сведения о пользователе. Ошибка не прерывает диалог.
func (m *Machine) recordUser(ctx context.Context, user models.UserInfo, subscribed bool) {
	status := models.SubscriptionStatus{
		UserID:       user.ID,
		IsSubscribed: subscribed,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Username:     user.Username,
	}
	if err := m.repo.RecordUser(ctx, status); err != nil {
		m.log.Warn("failed to record user",
			slog.Int64("user_id", user.ID), slog.String("error", err.Error()))
	}
}
