package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/msviridov/ddu-penalty-bot/internal/models"
	"github.com/msviridov/ddu-penalty-bot/internal/telegram"
)

// DateLayout формат дат, ожидаемый от пользователя.
const DateLayout = "02.01.2006"

const (
	msgAskAmount = "Введите стоимость объекта по ДДУ (в рублях). Например: 3500000"

	msgWelcome = "👋 Добро пожаловать в калькулятор неустойки по ДДУ!\n\n" + msgAskAmount

	msgWelcomeSubscribe = "👋 Добро пожаловать в калькулятор неустойки по ДДУ!\n\n" +
		"⚠️ Для использования бота необходимо подписаться на наш канал.\n\n" +
		"1️⃣ Нажмите кнопку «Подписаться на канал»\n" +
		"2️⃣ После подписки нажмите «Проверить подписку»"

	msgSubscribeRequired = "⚠️ Для использования бота необходимо подписаться на наш канал.\n\n" +
		"1️⃣ Нажмите кнопку «Подписаться на канал»\n" +
		"2️⃣ После подписки нажмите «Проверить подписку»"

	msgSubscriptionThanks = "✅ Спасибо за подписку! Теперь вы можете использовать бота.\n\n" + msgAskAmount

	msgSubscriptionForced = "✅ Статус подписки подтвержден! Теперь вы можете использовать бота.\n\n" + msgAskAmount

	msgStillNotSubscribed = "⚠️ Вы еще не подписались на канал"

	msgQuickActions = "💡 <b>Быстрые действия:</b>"

	msgNewCalculation = "🚀 <b>Новый расчет неустойки по ДДУ</b>\n\n" + msgAskAmount

	msgAmountAccepted = "✅ Сумма принята.\n\n" +
		"Теперь введите крайнюю дату передачи объекта по ДДУ в формате ДД.ММ.ГГГГ.\n" +
		"Например: 07.02.2025"

	msgDeadlineAccepted = "✅ Дата принята.\n\n" +
		"Теперь введите дату для расчета неустойки в формате ДД.ММ.ГГГГ.\n" +
		"Например: 20.05.2025"

	msgChooseParticipant = "✅ Дата принята.\n\n" +
		"Выберите тип участника долевого строительства:"

	msgCalcDateNotAfterDeadline = "❌ Дата расчета должна быть позже крайней даты передачи объекта. " +
		"Пожалуйста, введите корректную дату."

	msgChooseUnique = "✅ Тип участника принят.\n\nЯвляется ли дом уникальным объектом?"

	msgResetDone = "🔄 Расчет сброшен. Чтобы начать заново, используйте /start"

	msgNothingToCancel = "❌ Нет активных действий для отмены."

	msgCancelDone = "✅ Текущее действие отменено."

	msgCalculationFailed = "❌ Произошла ошибка при расчете неустойки. " +
		"Пожалуйста, попробуйте позже или обратитесь к администратору."

	msgExpectedAmountNotCommand   = "❌ Ожидается сумма по ДДУ, а не команда. Для отмены используйте /cancel"
	msgExpectedDeadlineNotCommand = "❌ Ожидается дата передачи объекта, а не команда. Для отмены используйте /cancel"
	msgExpectedCalcDateNotCommand = "❌ Ожидается дата расчета неустойки, а не команда. Для отмены используйте /cancel"
	msgExpectedUserIDNotCommand   = "❌ Ожидается ID пользователя, а не команда. Для отмены используйте /cancel"

	msgUseButtons = "Пожалуйста, воспользуйтесь кнопками под сообщением."

	msgAdminCommands = "🔐 <b>Административные команды:</b>\n\n" +
		"/adduser - Добавить пользователя как подписанного по ID\n" +
		"/stats - Получить статистику использования бота"

	msgAskUserID = "Введите ID пользователя, которого нужно добавить как подписанного:\n\n" +
		"💡 Для отмены используйте команду /cancel"

	msgBadUserID = "❌ Некорректный ID пользователя. Введите числовой ID или /cancel для отмены:"
)

// subscriptionReminders показываются по кругу при повторных неудачных
// проверках подписки, чтобы не упираться в "message is not modified".
var subscriptionReminders = []string{
	"⚠️ Вы всё еще не подписаны на наш канал.\n\n1️⃣ Нажмите кнопку «Подписаться на канал»\n2️⃣ После подписки нажмите «Проверить подписку»",
	"📢 Для использования бота необходимо подписаться на канал.\n\nПожалуйста, нажмите кнопку «Подписаться на канал» и затем «Проверить подписку»",
	"❗ Подписка на канал обязательна для использования бота.\n\nПодпишитесь на канал и нажмите «Проверить подписку»",
	"🔔 Напоминаем, что для доступа к функциям бота нужно подписаться на канал.\n\nНажмите «Подписаться на канал» и затем «Проверить подписку»",
}

const helpText = "❓ <b>Помощь по использованию бота</b>\n\n" +
	"🚀 <b>/start</b> - Начать новый расчет неустойки по ДДУ\n" +
	"🔄 <b>/reset</b> - Сбросить текущий расчет и начать заново\n" +
	"❓ <b>/help</b> - Показать это сообщение с помощью\n" +
	"ℹ️ <b>/about</b> - Информация о боте и расчетах\n\n" +
	"📋 <b>Как пользоваться ботом:</b>\n" +
	"1️⃣ Подпишитесь на наш канал (обязательно)\n" +
	"2️⃣ Введите команду /start\n" +
	"3️⃣ Следуйте инструкциям бота:\n" +
	"   • Укажите сумму по ДДУ\n" +
	"   • Введите крайнюю дату передачи объекта\n" +
	"   • Введите дату для расчета неустойки\n" +
	"   • Выберите тип участника (ФЛ/ЮЛ)\n" +
	"   • Укажите, является ли объект уникальным\n" +
	"4️⃣ Получите результат расчета\n\n" +
	"💡 <b>Полезные советы:</b>\n" +
	"• Даты вводите в формате ДД.ММ.ГГГГ (например: 15.03.2025)\n" +
	"• Сумму можно вводить с пробелами (например: 3 500 000)\n" +
	"• Дата расчета должна быть позже крайней даты передачи\n" +
	"• Если возникли проблемы, используйте /reset и начните заново\n\n" +
	"📞 <b>Поддержка:</b>\n" +
	"Если у вас возникли вопросы, обратитесь к администратору канала."

const aboutText = "ℹ️ <b>О боте-калькуляторе неустойки по ДДУ</b>\n\n" +
	"🎯 <b>Назначение:</b>\n" +
	"Бот рассчитывает неустойку за просрочку передачи объекта долевого строительства " +
	"в соответствии с действующим законодательством РФ.\n\n" +
	"⚖️ <b>Правовая основа:</b>\n" +
	"• Федеральный закон № 214-ФЗ \"Об участии в долевом строительстве\"\n" +
	"• Ставки рефинансирования Центрального Банка РФ\n" +
	"• Учет периодов моратория на начисление неустойки\n\n" +
	"🧮 <b>Формулы расчета:</b>\n" +
	"• <b>Физлица (обычные объекты):</b> 1/150 × ставка ЦБ × сумма ДДУ × дни\n" +
	"• <b>Юрлица (обычные объекты):</b> 1/300 × ставка ЦБ × сумма ДДУ × дни\n" +
	"• <b>Уникальные объекты:</b> 1/300 × ставка ЦБ × сумма ДДУ × дни (макс. 5%)\n\n" +
	"📊 <b>Источники данных:</b>\n" +
	"• Ставки рефинансирования загружаются из актуальной базы данных\n" +
	"• Учитываются все периоды моратория\n" +
	"• Данные обновляются регулярно\n\n" +
	"⚠️ <b>Важно:</b>\n" +
	"Результат расчета носит информационный характер. " +
	"Для юридически значимых расчетов рекомендуется консультация с юристом."

const quickHelpText = "❓ <b>Краткая помощь</b>\n\n" +
	"📋 <b>Порядок действий:</b>\n" +
	"1️⃣ Введите сумму по ДДУ\n" +
	"2️⃣ Укажите крайнюю дату передачи\n" +
	"3️⃣ Введите дату расчета\n" +
	"4️⃣ Выберите тип участника\n" +
	"5️⃣ Укажите тип объекта\n\n" +
	"💡 <b>Форматы ввода:</b>\n" +
	"• Даты: ДД.ММ.ГГГГ (15.03.2025)\n" +
	"• Суммы: можно с пробелами\n\n" +
	"Для подробной помощи используйте /help"

const quickAboutText = "ℹ️ <b>О калькуляторе неустойки</b>\n\n" +
	"🎯 Рассчитывает неустойку по ДДУ согласно ФЗ-214\n\n" +
	"🧮 <b>Формулы:</b>\n" +
	"• ФЛ: 1/150 × ставка ЦБ × сумма × дни\n" +
	"• ЮЛ: 1/300 × ставка ЦБ × сумма × дни\n" +
	"• Уникальные: макс. 5% от суммы\n\n" +
	"📊 Данные актуальны, учитывается мораторий\n\n" +
	"Для подробной информации используйте /about"

// Ошибки разбора пользовательского ввода. Тексты показываются пользователю.
var (
	errAmountNotPositive = errors.New("Сумма должна быть положительным числом")
	errAmountNotNumber   = errors.New("Введите корректное числовое значение")
	errBadDateFormat     = errors.New("Введите корректную дату в формате ДД.ММ.ГГГГ")
)

// parseAmount разбирает сумму по ДДУ: пробелы допускаются как разделители
// разрядов, запятая — как десятичный разделитель.
func parseAmount(text string) (float64, error) {
	cleaned := strings.NewReplacer(" ", "", "\u00a0", "", ",", ".").Replace(strings.TrimSpace(text))
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, errAmountNotNumber
	}
	if amount <= 0 {
		return 0, errAmountNotPositive
	}
	return amount, nil
}

// parseDate разбирает дату в формате ДД.ММ.ГГГГ.
func parseDate(text string) (time.Time, error) {
	date, err := time.Parse(DateLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, errBadDateFormat
	}
	return date, nil
}

// formatMoney форматирует сумму в рублях: разряды разделены пробелами,
// копейки — запятой. 499800 -> "499 800,00".
func formatMoney(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(digit)
	}
	return sign + b.String() + "," + fracPart
}

func participantLabel(isIndividual bool) string {
	if isIndividual {
		return "Физическое лицо"
	}
	return "Юридическое лицо"
}

func yesNoLabel(v bool) string {
	if v {
		return "Да"
	}
	return "Нет"
}

// formatParameters сводка введенных параметров перед запуском расчета.
func formatParameters(amount float64, deadlineRaw, calculationRaw string, isIndividual, isUnique bool) string {
	return fmt.Sprintf(
		"✅ Данные приняты. Расчет неустойки...\n\n"+
			"🔢 Параметры расчета:\n"+
			"💰 Сумма по ДДУ: %s руб.\n"+
			"📅 Дата передачи по ДДУ: %s\n"+
			"📅 Дата расчета: %s\n"+
			"👤 Тип участника: %s\n"+
			"🏢 Уникальный объект: %s",
		formatMoney(amount), deadlineRaw, calculationRaw,
		participantLabel(isIndividual), yesNoLabel(isUnique),
	)
}

// formatResult итоговое сообщение с результатом расчета.
func formatResult(result models.CalculationResult, deadlineRaw string) string {
	participant := "Физлицо"
	if !result.IsIndividual {
		participant = "Юрлицо"
	}
	object := "не уникальный дом"
	if result.IsUniqueObject {
		object = "уникальный дом"
	}
	return fmt.Sprintf(
		"💰 Итоговая неустойка: %s руб.\n"+
			"📅 Просрочка: %d дней (из них %d дней под мораторием)\n"+
			"💹 Ставка рефинансирования: %.2f%% (на дату %s)\n"+
			"🔢 Условия: %s, %s\n\n"+
			"Для нового расчета используйте /start\n"+
			"Для сброса текущего расчета используйте /reset",
		formatMoney(result.PenaltyAmount), result.DelayDays, result.MoratoriumDays,
		result.RefinancingRatePercent, deadlineRaw, participant, object,
	)
}

// formatStats сводка статистики для администраторов.
func formatStats(stats models.StatsSummary) string {
	return fmt.Sprintf(
		"📊 <b>Статистика бота:</b>\n\n"+
			"👥 Всего пользователей: %d\n"+
			"✅ Подписанных пользователей: %d\n"+
			"🧮 Всего расчетов: %d\n\n"+
			"💰 Средняя сумма ДДУ: %s руб.\n"+
			"💸 Средняя сумма неустойки: %s руб.\n\n"+
			"👤 Расчеты для физлиц: %d\n"+
			"🏢 Расчеты для юрлиц: %d\n"+
			"🏗 Расчеты для уникальных объектов: %d",
		stats.TotalUsers, stats.SubscribedUsers, stats.TotalCalculations,
		formatMoney(stats.AvgContractAmount), formatMoney(stats.AvgPenalty),
		stats.IndividualCalculations, stats.LegalCalculations, stats.UniqueObjectCalculations,
	)
}

// subscribeKeyboard кнопки подписки и повторной проверки.
func subscribeKeyboard(channelLink string) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "📢 Подписаться на канал", URL: channelLink}},
			{{Text: "🔄 Проверить подписку", CallbackData: callbackCheckSubscription}},
		},
	}
}

// quickActionsKeyboard кнопки быстрых действий под приветствием.
func quickActionsKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{
				{Text: "❓ Помощь", CallbackData: callbackQuickHelp},
				{Text: "ℹ️ О боте", CallbackData: callbackQuickAbout},
			},
		},
	}
}

// participantKeyboard выбор типа участника, кнопки в столбец.
func participantKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "Физическое лицо", CallbackData: callbackParticipantIndividual}},
			{{Text: "Юридическое лицо", CallbackData: callbackParticipantLegal}},
		},
	}
}

// uniqueKeyboard признак уникальности объекта, кнопки в ряд.
func uniqueKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{
				{Text: "Да", CallbackData: callbackUniqueYes},
				{Text: "Нет", CallbackData: callbackUniqueNo},
			},
		},
	}
}

// afterResultKeyboard действия после показа результата.
func afterResultKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "🚀 Новый расчет", CallbackData: callbackNewCalculation}},
			{
				{Text: "❓ Помощь", CallbackData: callbackQuickHelp},
				{Text: "ℹ️ О боте", CallbackData: callbackQuickAbout},
			},
		},
	}
}
