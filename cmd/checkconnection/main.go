// Команда checkconnection проверяет готовность окружения перед запуском бота:
// конфигурацию, доступность таблицы ставок, токен бота и права в канале.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/msviridov/ddu-penalty-bot/internal/config"
	"github.com/msviridov/ddu-penalty-bot/internal/rates/sheets"
	"github.com/msviridov/ddu-penalty-bot/internal/telegram"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if cfg.Telegram.Token == "" {
		fmt.Println("❌ Не задан токен бота (BOT_TOKEN)")
		os.Exit(1)
	}
	if cfg.RatesProvider.CSVURL == "" {
		fmt.Println("❌ Не задан адрес таблицы ставок (RATES_CSV_URL)")
		os.Exit(1)
	}
	fmt.Println("✅ Проверка конфигурации пройдена успешно")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Println("\nПроверка подключения к таблице ставок...")
	provider := sheets.New(cfg.RatesProvider.CSVURL, cfg.RatesProvider.FetchTimeout, logger)
	records, err := provider.FetchRateTable(ctx)
	if err != nil {
		fmt.Printf("❌ Ошибка при загрузке таблицы ставок: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Println("⚠️ Данные получены, но таблица пуста или не содержит правильно отформатированных строк")
	} else {
		first, last := records[0], records[len(records)-1]
		fmt.Printf("✅ Успешно получено %d строк данных из таблицы\n", len(records))
		fmt.Printf("   Первая запись: Дата %s, Ставка %.2f%%, Мораторий: %s\n",
			first.Date.Format(sheets.DateLayout), first.Rate*100, yesNo(first.Moratorium))
		fmt.Printf("   Последняя запись: Дата %s, Ставка %.2f%%, Мораторий: %s\n",
			last.Date.Format(sheets.DateLayout), last.Rate*100, yesNo(last.Moratorium))
	}

	fmt.Println("\nПроверка подключения к Telegram...")
	client := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.APIEndpoint,
		cfg.Telegram.SendTimeout, cfg.Telegram.SendRate, cfg.Telegram.SendBurst, logger)

	me, err := client.GetMe(ctx)
	if err != nil {
		fmt.Printf("❌ Не удалось подключиться к Bot API: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Бот @%s подключен к Bot API\n", me.Username)

	if cfg.Telegram.ChannelID == 0 {
		fmt.Println("⚠️ ID канала не задан, проверка подписки будет пропускать всех пользователей")
		return
	}

	chat, err := client.GetChat(ctx, cfg.Telegram.ChannelID)
	if err != nil {
		fmt.Printf("❌ Канал %d недоступен: %v\n", cfg.Telegram.ChannelID, err)
		os.Exit(1)
	}
	member, err := client.GetChatMember(ctx, cfg.Telegram.ChannelID, me.ID)
	if err != nil {
		fmt.Printf("❌ Не удалось проверить права бота в канале «%s»: %v\n", chat.Title, err)
		os.Exit(1)
	}
	if member.Status != telegram.MemberStatusAdministrator && member.Status != telegram.MemberStatusCreator {
		fmt.Printf("❌ Бот не является администратором канала «%s» (статус: %s)\n", chat.Title, member.Status)
		os.Exit(1)
	}
	fmt.Printf("✅ Бот является администратором канала «%s»\n", chat.Title)

	fmt.Println("\n✅ Все проверки пройдены, бот готов к запуску")
}

func yesNo(v bool) string {
	if v {
		return "Да"
	}
	return "Нет"
}
