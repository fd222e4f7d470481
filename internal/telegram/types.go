// Package telegram содержит минимальный клиент Telegram Bot API:
// длинный опрос обновлений, отправка и редактирование сообщений,
// проверка членства в канале и установка меню команд. Ровно те методы,
// которые нужны боту, ничего сверх.
package telegram

// Update одно входящее обновление Bot API.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message входящее или отправленное сообщение.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// CallbackQuery нажатие inline-кнопки.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// User пользователь Telegram.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Chat чат (личный диалог или канал).
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

// ChatMember статус пользователя в чате.
type ChatMember struct {
	Status string `json:"status"`
	User   User   `json:"user"`
}

// Статусы ChatMember, означающие отсутствие подписки.
const (
	MemberStatusLeft   = "left"
	MemberStatusKicked = "kicked"
)

// Статусы ChatMember с правами администратора.
const (
	MemberStatusAdministrator = "administrator"
	MemberStatusCreator       = "creator"
)

// InlineKeyboardMarkup inline-клавиатура под сообщением.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton кнопка: либо URL, либо callback-данные.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

// BotCommand элемент меню команд бота.
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// BotCommandScope область действия набора команд.
type BotCommandScope struct {
	Type   string `json:"type"`
	ChatID int64  `json:"chat_id,omitempty"`
}
