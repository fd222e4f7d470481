package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotModified возвращается editMessageText, когда новый текст и клавиатура
// совпадают со старыми. Для бота это не ошибка.
var ErrNotModified = errors.New("message is not modified")

// APIError ошибка уровня Bot API (ok=false в ответе).
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api: %d %s", e.Code, e.Description)
}

// apiResponse стандартный конверт ответа Bot API.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Client клиент Telegram Bot API. Исходящие вызовы проходят через
// ограничитель скорости, чтобы не упираться в лимиты Telegram.
type Client struct {
	apiURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

// NewClient создает клиент Bot API. endpoint — базовый адрес API без токена
// (обычно https://api.telegram.org), sendRate/sendBurst — лимит исходящих
// вызовов в секунду.
func NewClient(token, endpoint string, timeout time.Duration, sendRate float64, sendBurst int, log *slog.Logger) *Client {
	return &Client{
		apiURL:     strings.TrimRight(endpoint, "/") + "/bot" + token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(sendRate), sendBurst),
		log:        log,
	}
}

// call выполняет метод Bot API и декодирует result в out (если out != nil).
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	op := "telegram." + method

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var buf bytes.Buffer
	if params != nil {
		if err := json.NewEncoder(&buf).Encode(params); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+method, &buf)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !envelope.OK {
		if strings.Contains(envelope.Description, "message is not modified") {
			return fmt.Errorf("%s: %w", op, ErrNotModified)
		}
		c.log.Debug("bot api call failed",
			slog.String("method", method),
			slog.Int("code", envelope.ErrorCode),
			slog.String("description", envelope.Description))
		return fmt.Errorf("%s: %w", op, &APIError{
			Code:        envelope.ErrorCode,
			Description: envelope.Description,
		})
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// GetUpdates выполняет длинный опрос обновлений. timeout — серверный таймаут
// опроса; HTTP-клиент использует собственный запас поверх него, поэтому
// для длинного опроса создается отдельный клиент без короткого таймаута.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	const op = "telegram.getUpdates"

	params := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/getUpdates", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Запас к серверному таймауту, чтобы клиент не оборвал опрос раньше сервера
	pollClient := &http.Client{Timeout: timeout + 10*time.Second}
	resp, err := pollClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("%s: %w", op, &APIError{
			Code:        envelope.ErrorCode,
			Description: envelope.Description,
		})
	}

	var updates []Update
	if err := json.Unmarshal(envelope.Result, &updates); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updates, nil
}

// SendMessage отправляет текстовое сообщение, при необходимости с
// inline-клавиатурой. Текст форматируется как HTML.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) (Message, error) {
	params := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if markup != nil {
		params["reply_markup"] = markup
	}

	var msg Message
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// EditMessageText меняет текст и клавиатуру уже отправленного сообщения.
// Совпадение нового содержимого со старым возвращается как ErrNotModified.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error {
	params := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if markup != nil {
		params["reply_markup"] = markup
	}
	return c.call(ctx, "editMessageText", params, nil)
}

// AnswerCallbackQuery подтверждает нажатие inline-кнопки, снимая "часики".
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	params := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		params["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", params, nil)
}

// GetChatMember возвращает статус пользователя в чате.
func (c *Client) GetChatMember(ctx context.Context, chatID, userID int64) (ChatMember, error) {
	params := map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}
	var member ChatMember
	if err := c.call(ctx, "getChatMember", params, &member); err != nil {
		return ChatMember{}, err
	}
	return member, nil
}

// GetMembershipStatus сообщает, состоит ли пользователь в канале.
// Ошибка вызова API возвращается как есть: решение о допуске при сбое
// принимает вызывающая сторона.
func (c *Client) GetMembershipStatus(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := c.GetChatMember(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	switch member.Status {
	case MemberStatusLeft, MemberStatusKicked:
		return false, nil
	default:
		return true, nil
	}
}

// GetMe возвращает сведения о самом боте.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	var me User
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return User{}, err
	}
	return me, nil
}

// GetChat возвращает сведения о чате или канале.
func (c *Client) GetChat(ctx context.Context, chatID int64) (Chat, error) {
	params := map[string]any{"chat_id": chatID}
	var chat Chat
	if err := c.call(ctx, "getChat", params, &chat); err != nil {
		return Chat{}, err
	}
	return chat, nil
}

// SetMyCommands устанавливает меню команд бота. scope == nil — по умолчанию.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand, scope *BotCommandScope) error {
	params := map[string]any{"commands": commands}
	if scope != nil {
		params["scope"] = scope
	}
	return c.call(ctx, "setMyCommands", params, nil)
}
