// Package models содержит доменные структуры калькулятора неустойки:
// записи таблицы ставок, входные и выходные данные расчета, статус подписки
// пользователя и агрегированную статистику.
package models

import "time"

// RateRecord представляет одну строку таблицы ставок рефинансирования.
// Rate хранится как доля (0.075 для 7.5%), Moratorium отмечает день,
// с которого действует мораторий на начисление неустойки.
type RateRecord struct {
	Date       time.Time // Дата начала действия записи
	Rate       float64   // Ставка рефинансирования, доля от единицы
	Moratorium bool      // Признак моратория
}
