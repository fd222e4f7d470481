package models

import "time"

// SubscriptionStatus локально сохраненный вердикт о подписке пользователя
// на канал. Положительный вердикт считается окончательным: повторная проверка
// через Telegram API для такого пользователя не выполняется.
type SubscriptionStatus struct {
	UserID       int64     `json:"user_id"`
	IsSubscribed bool      `json:"is_subscribed"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Username     string    `json:"username,omitempty"`
	LastChecked  time.Time `json:"last_checked"`
}

// UserInfo данные пользователя Telegram, известные из входящего события.
type UserInfo struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// StatsSummary агрегированная статистика использования бота для команды /stats
// и служебного HTTP-эндпоинта.
type StatsSummary struct {
	TotalUsers               int     `json:"total_users"`
	SubscribedUsers          int     `json:"subscribed_users"`
	TotalCalculations        int     `json:"total_calculations"`
	AvgContractAmount        float64 `json:"avg_contract_amount"`
	AvgPenalty               float64 `json:"avg_penalty"`
	IndividualCalculations   int     `json:"individual_calculations"`
	LegalCalculations        int     `json:"legal_calculations"`
	UniqueObjectCalculations int     `json:"unique_object_calculations"`
}
