package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewClient("test-token", server.URL, 5*time.Second, 100, 10, logger)
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 77, "chat": map[string]any{"id": 42}},
		})
	})

	msg, err := client.SendMessage(context.Background(), 42, "Привет", &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{{{Text: "OK", CallbackData: "ok"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, float64(42), gotBody["chat_id"])
	assert.Equal(t, "Привет", gotBody["text"])
	assert.Equal(t, "HTML", gotBody["parse_mode"])
	assert.NotNil(t, gotBody["reply_markup"])
	assert.Equal(t, int64(77), msg.MessageID)
}

func TestSendMessage_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  403,
			"description": "Forbidden: bot was blocked by the user",
		})
	})

	_, err := client.SendMessage(context.Background(), 42, "text", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 403, apiErr.Code)
}

func TestEditMessageText_NotModified(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  400,
			"description": "Bad Request: message is not modified",
		})
	})

	err := client.EditMessageText(context.Background(), 42, 77, "same text", nil)
	assert.True(t, errors.Is(err, ErrNotModified))
}

func TestGetUpdates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(100), body["offset"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": []map[string]any{
				{
					"update_id": 100,
					"message": map[string]any{
						"message_id": 1,
						"from":       map[string]any{"id": 42, "first_name": "Test"},
						"chat":       map[string]any{"id": 42, "type": "private"},
						"text":       "/start",
					},
				},
				{
					"update_id": 101,
					"callback_query": map[string]any{
						"id":   "cb1",
						"from": map[string]any{"id": 42},
						"data": "check_subscription",
					},
				},
			},
		})
	})

	updates, err := client.GetUpdates(context.Background(), 100, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 2)

	require.NotNil(t, updates[0].Message)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.Equal(t, int64(42), updates[0].Message.From.ID)

	require.NotNil(t, updates[1].CallbackQuery)
	assert.Equal(t, "check_subscription", updates[1].CallbackQuery.Data)
}

func TestGetMembershipStatus(t *testing.T) {
	cases := []struct {
		name   string
		status string
		member bool
	}{
		{name: "member", status: "member", member: true},
		{name: "administrator", status: MemberStatusAdministrator, member: true},
		{name: "creator", status: MemberStatusCreator, member: true},
		{name: "restricted still counts", status: "restricted", member: true},
		{name: "left", status: MemberStatusLeft, member: false},
		{name: "kicked", status: MemberStatusKicked, member: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"ok":     true,
					"result": map[string]any{"status": tc.status, "user": map[string]any{"id": 42}},
				})
			})

			isMember, err := client.GetMembershipStatus(context.Background(), -100500, 42)
			require.NoError(t, err)
			assert.Equal(t, tc.member, isMember)
		})
	}
}

func TestGetMembershipStatus_APIErrorPropagates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  400,
			"description": "Bad Request: member list is inaccessible",
		})
	})

	_, err := client.GetMembershipStatus(context.Background(), -100500, 42)
	assert.Error(t, err)
}

func TestSetMyCommands(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": true})
	})

	err := client.SetMyCommands(context.Background(), []BotCommand{
		{Command: "start", Description: "Начать расчет"},
		{Command: "help", Description: "Справка"},
	}, nil)
	require.NoError(t, err)

	commands, ok := gotBody["commands"].([]any)
	require.True(t, ok)
	assert.Len(t, commands, 2)
}
