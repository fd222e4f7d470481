package bot

import (
	"context"
	"log/slog"

	"github.com/msviridov/ddu-penalty-bot/internal/lib/sl"
	"github.com/msviridov/ddu-penalty-bot/internal/models"
	"github.com/msviridov/ddu-penalty-bot/internal/session"
)

// cmdStart начинает новый диалог: сведения о пользователе сохраняются
// в любом случае, дальше — либо шлюз подписки, либо первый шаг расчета.
func (m *Machine) cmdStart(ctx context.Context, chatID int64, user models.UserInfo) {
	m.recordUser(ctx, user, false)

	if !m.gate.Check(ctx, user) {
		m.sessions.WithSession(user.ID, func(s *session.Session) {
			s.Data = session.AwaitingSubscription{}
		})
		m.send(ctx, chatID, msgWelcomeSubscribe, subscribeKeyboard(m.cfg.ChannelLink))
		return
	}

	m.recordUser(ctx, user, true)
	m.sessions.WithSession(user.ID, func(s *session.Session) {
		s.Data = session.AwaitingContractAmount{}
	})
	m.send(ctx, chatID, msgWelcome, nil)
	m.send(ctx, chatID, msgQuickActions, quickActionsKeyboard())
}

// cmdReset сбрасывает текущий диалог. Неподписанный пользователь вместо
// сброса отправляется к шлюзу подписки.
func (m *Machine) cmdReset(ctx context.Context, chatID int64, user models.UserInfo) {
	subscribed := m.gate.Check(ctx, user)
	m.recordUser(ctx, user, subscribed)

	if !subscribed {
		m.sessions.WithSession(user.ID, func(s *session.Session) {
			s.Data = session.AwaitingSubscription{}
		})
		m.send(ctx, chatID, msgSubscribeRequired, subscribeKeyboard(m.cfg.ChannelLink))
		return
	}

	m.sessions.Reset(user.ID)
	m.send(ctx, chatID, msgResetDone, nil)
}

func (m *Machine) cmdCancel(ctx context.Context, chatID int64, user models.UserInfo) {
	m.sessions.WithSession(user.ID, func(s *session.Session) {
		if s.Data.State() == session.StateIdle {
			m.send(ctx, chatID, msgNothingToCancel, nil)
			return
		}
		s.Reset()
		m.send(ctx, chatID, msgCancelDone, nil)
	})
}

func (m *Machine) cmdHelp(ctx context.Context, chatID int64, user models.UserInfo) {
	m.sessions.Reset(user.ID)
	m.send(ctx, chatID, helpText, nil)
}

func (m *Machine) cmdAbout(ctx context.Context, chatID int64, user models.UserInfo) {
	m.sessions.Reset(user.ID)
	m.send(ctx, chatID, aboutText, nil)
}

// cmdAdmin показывает список административных команд.
// Для остальных пользователей команда молча игнорируется.
func (m *Machine) cmdAdmin(ctx context.Context, chatID int64, user models.UserInfo) {
	m.sessions.Reset(user.ID)
	if !m.cfg.IsAdmin(user.ID) {
		return
	}
	m.send(ctx, chatID, msgAdminCommands, nil)
}

// cmdAddUser запускает подсценарий ручного добавления подписчика.
func (m *Machine) cmdAddUser(ctx context.Context, chatID int64, user models.UserInfo) {
	m.sessions.Reset(user.ID)
	if !m.cfg.IsAdmin(user.ID) {
		return
	}
	m.sessions.WithSession(user.ID, func(s *session.Session) {
		s.Data = session.AwaitingAdminUserID{}
	})
	m.send(ctx, chatID, msgAskUserID, nil)
}

func (m *Machine) cmdStats(ctx context.Context, chatID int64, user models.UserInfo) {
	const op = "bot.cmdStats"

	m.sessions.Reset(user.ID)
	if !m.cfg.IsAdmin(user.ID) {
		return
	}

	stats, err := m.repo.GetStatistics(ctx)
	if err != nil {
		m.log.Error("failed to load statistics", slog.String("op", op), sl.Err(err))
		m.send(ctx, chatID, msgCalculationFailed, nil)
		return
	}
	m.send(ctx, chatID, formatStats(stats), nil)
}

// newCalculation обрабатывает кнопку "Новый расчет" под результатом.
func (m *Machine) newCalculation(ctx context.Context, chatID int64, user models.UserInfo) {
	if !m.gate.Check(ctx, user) {
		m.sessions.WithSession(user.ID, func(s *session.Session) {
			s.Data = session.AwaitingSubscription{}
		})
		m.send(ctx, chatID, msgSubscribeRequired, subscribeKeyboard(m.cfg.ChannelLink))
		return
	}

	m.recordUser(ctx, user, true)
	m.sessions.WithSession(user.ID, func(s *session.Session) {
		s.Data = session.AwaitingContractAmount{}
	})
	m.send(ctx, chatID, msgNewCalculation, nil)
	m.send(ctx, chatID, msgQuickActions, quickActionsKeyboard())
}
