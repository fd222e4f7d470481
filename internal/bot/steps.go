package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msviridov/ddu-penalty-bot/internal/lib/sl"
	"github.com/msviridov/ddu-penalty-bot/internal/models"
	"github.com/msviridov/ddu-penalty-bot/internal/rates"
	"github.com/msviridov/ddu-penalty-bot/internal/session"
)

// stepContractAmount первый шаг расчета: сумма по ДДУ.
func (m *Machine) stepContractAmount(ctx context.Context, chatID int64, s *session.Session, text string) {
	if strings.HasPrefix(text, "/") {
		m.send(ctx, chatID, msgExpectedAmountNotCommand, nil)
		return
	}

	amount, err := parseAmount(text)
	if err != nil {
		m.send(ctx, chatID, fmt.Sprintf("❌ %s. Пожалуйста, введите корректную сумму.", err), nil)
		return
	}

	s.Data = session.AwaitingDeadlineDate{ContractAmount: amount}
	m.send(ctx, chatID, msgAmountAccepted, nil)
}

// stepDeadlineDate крайняя дата передачи объекта.
func (m *Machine) stepDeadlineDate(ctx context.Context, chatID int64, s *session.Session, data session.AwaitingDeadlineDate, text string) {
	if strings.HasPrefix(text, "/") {
		m.send(ctx, chatID, msgExpectedDeadlineNotCommand, nil)
		return
	}

	date, err := parseDate(text)
	if err != nil {
		m.send(ctx, chatID, fmt.Sprintf("❌ %s. Пожалуйста, введите корректную дату.", err), nil)
		return
	}

	s.Data = session.AwaitingCalculationDate{
		ContractAmount: data.ContractAmount,
		DeadlineDate:   date,
		DeadlineRaw:    text,
	}
	m.send(ctx, chatID, msgDeadlineAccepted, nil)
}

// stepCalculationDate дата расчета. Должна быть строго позже крайней даты,
// это проверяется сразу, не дожидаясь калькулятора.
func (m *Machine) stepCalculationDate(ctx context.Context, chatID int64, s *session.Session, data session.AwaitingCalculationDate, text string) {
	if strings.HasPrefix(text, "/") {
		m.send(ctx, chatID, msgExpectedCalcDateNotCommand, nil)
		return
	}

	date, err := parseDate(text)
	if err != nil {
		m.send(ctx, chatID, fmt.Sprintf("❌ %s. Пожалуйста, введите корректную дату.", err), nil)
		return
	}
	if !date.After(data.DeadlineDate) {
		m.send(ctx, chatID, msgCalcDateNotAfterDeadline, nil)
		return
	}

	s.Data = session.AwaitingParticipantType{
		ContractAmount:  data.ContractAmount,
		DeadlineDate:    data.DeadlineDate,
		DeadlineRaw:     data.DeadlineRaw,
		CalculationDate: date,
		CalculationRaw:  text,
	}
	m.send(ctx, chatID, msgChooseParticipant, participantKeyboard())
}

// stepAdminUserID ручное добавление подписчика по ID.
func (m *Machine) stepAdminUserID(ctx context.Context, chatID int64, s *session.Session, text string) {
	const op = "bot.stepAdminUserID"

	if strings.HasPrefix(text, "/") {
		m.send(ctx, chatID, msgExpectedUserIDNotCommand, nil)
		return
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		m.send(ctx, chatID, msgBadUserID, nil)
		return
	}

	if err := m.gate.ForceApprove(ctx, models.UserInfo{ID: userID}); err != nil {
		m.log.Error("failed to add user", slog.String("op", op), sl.Err(err))
		m.send(ctx, chatID, fmt.Sprintf("❌ Ошибка при добавлении пользователя с ID %d.", userID), nil)
	} else {
		m.send(ctx, chatID, fmt.Sprintf("✅ Пользователь с ID %d успешно добавлен как подписанный.", userID), nil)
	}
	s.Reset()
}

// stepCheckSubscription повторная проверка подписки по кнопке.
// После subscriptionMaxRetries неудач подряд пользователь помечается
// подписанным принудительно.
func (m *Machine) stepCheckSubscription(ctx context.Context, chatID, messageID int64, user models.UserInfo, s *session.Session, data session.AwaitingSubscription, ack func(string)) {
	if m.gate.Check(ctx, user) {
		ack("")
		m.recordUser(ctx, user, true)
		s.Data = session.AwaitingContractAmount{}
		m.editOrSend(ctx, chatID, messageID, msgSubscriptionThanks, nil)
		return
	}

	retries := data.Retries + 1
	if retries >= subscriptionMaxRetries {
		ack("")
		if err := m.gate.ForceApprove(ctx, user); err != nil {
			m.log.Error("failed to force-approve user",
				slog.Int64("user_id", user.ID), sl.Err(err))
		}
		m.metrics.ForcedApprovals.Inc()
		s.Data = session.AwaitingContractAmount{}
		m.editOrSend(ctx, chatID, messageID, msgSubscriptionForced, nil)
		return
	}

	s.Data = session.AwaitingSubscription{Retries: retries}
	err := m.replier.EditMessageText(ctx, chatID, messageID, m.nextReminder(), subscribeKeyboard(m.cfg.ChannelLink))
	if err != nil {
		// Текст напоминания совпал с предыдущим: показываем уведомление
		ack(msgStillNotSubscribed)
		return
	}
	ack("")
}

// stepParticipantType выбор типа участника (ФЛ/ЮЛ).
func (m *Machine) stepParticipantType(ctx context.Context, chatID, messageID int64, s *session.Session, data session.AwaitingParticipantType, isIndividual bool) {
	s.Data = session.AwaitingUniqueFlag{
		ContractAmount:  data.ContractAmount,
		DeadlineDate:    data.DeadlineDate,
		DeadlineRaw:     data.DeadlineRaw,
		CalculationDate: data.CalculationDate,
		CalculationRaw:  data.CalculationRaw,
		IsIndividual:    isIndividual,
	}
	m.editOrSend(ctx, chatID, messageID, msgChooseUnique, uniqueKeyboard())
}

// stepUniqueFlag последний шаг диалога: после него запускается расчет.
func (m *Machine) stepUniqueFlag(ctx context.Context, chatID, messageID int64, user models.UserInfo, s *session.Session, data session.AwaitingUniqueFlag, isUnique bool) {
	m.editOrSend(ctx, chatID, messageID,
		formatParameters(data.ContractAmount, data.DeadlineRaw, data.CalculationRaw, data.IsIndividual, isUnique), nil)

	m.finishCalculation(ctx, chatID, user, data, isUnique)
	s.Reset()
}

// finishCalculation загружает таблицу ставок, выполняет расчет,
// сохраняет запись журнала и показывает результат.
func (m *Machine) finishCalculation(ctx context.Context, chatID int64, user models.UserInfo, data session.AwaitingUniqueFlag, isUnique bool) {
	const op = "bot.finishCalculation"
	log := m.log.With(slog.String("op", op), slog.Int64("user_id", user.ID))

	records, err := m.rates.FetchRateTable(ctx)
	if err != nil {
		m.metrics.RateFetchFailures.Inc()
		log.Error("failed to fetch rate table", sl.Err(err))
		m.send(ctx, chatID, msgCalculationFailed, nil)
		return
	}
	timeline := rates.NewTimeline(records)

	input := models.CalculationInput{
		ContractAmount:  data.ContractAmount,
		DeadlineDate:    data.DeadlineDate,
		CalculationDate: data.CalculationDate,
		IsIndividual:    data.IsIndividual,
		IsUniqueObject:  isUnique,
	}
	if err := m.validate.Struct(input); err != nil {
		log.Error("calculation input failed validation", sl.Err(err))
		m.send(ctx, chatID, msgCalculationFailed, nil)
		return
	}

	outcome := m.calc.Calculate(input, timeline)
	if !outcome.HasResult() {
		m.send(ctx, chatID, outcome.Info, nil)
		return
	}
	result := *outcome.Result

	entry := models.CalculationEntry{
		UID:             uuid.NewString(),
		UserID:          user.ID,
		ContractAmount:  data.ContractAmount,
		DeadlineDate:    data.DeadlineRaw,
		CalculationDate: data.CalculationRaw,
		IsIndividual:    result.IsIndividual,
		IsUniqueObject:  result.IsUniqueObject,
		PenaltyAmount:   result.PenaltyAmount,
		DelayDays:       result.DelayDays,
		MoratoriumDays:  result.MoratoriumDays,
		EffectiveDays:   result.EffectiveDays,
		CalculatedAt:    time.Now().UTC(),
	}
	if err := m.repo.SaveCalculation(ctx, entry); err != nil {
		// Результат пользователю важнее записи в журнале
		log.Error("failed to save calculation", sl.Err(err))
	}
	m.metrics.ObserveCalculation(result.IsIndividual, result.IsUniqueObject)

	m.send(ctx, chatID, formatResult(result, data.DeadlineRaw), afterResultKeyboard())
}
