// Package session хранит состояние диалога для каждого пользователя.
//
// Данные сессии смоделированы как размеченное объединение: на каждый шаг
// диалога свой тип, несущий ровно те поля, которые к этому шагу уже собраны.
// Обработчик шага физически не может прочитать еще не введенное поле.
package session

import "time"

// State идентификатор шага диалога.
type State string

// Шаги диалога расчета и административного сценария.
const (
	StateIdle                    State = "idle"
	StateAwaitingSubscription    State = "awaiting_subscription"
	StateAwaitingContractAmount  State = "awaiting_contract_amount"
	StateAwaitingDeadlineDate    State = "awaiting_deadline_date"
	StateAwaitingCalculationDate State = "awaiting_calculation_date"
	StateAwaitingParticipantType State = "awaiting_participant_type"
	StateAwaitingUniqueFlag      State = "awaiting_unique_flag"
	StateAwaitingAdminUserID     State = "awaiting_admin_user_id"
)

// Data состояние сессии на текущем шаге. Конкретный тип определяет шаг,
// его поля — накопленный ввод.
type Data interface {
	State() State
}

// Idle сессия вне активного расчета.
type Idle struct{}

// AwaitingSubscription пользователь не прошел проверку подписки.
// Retries — счетчик подряд идущих неудачных подтверждений.
type AwaitingSubscription struct {
	Retries int
}

// AwaitingContractAmount ожидание суммы по ДДУ.
type AwaitingContractAmount struct{}

// AwaitingDeadlineDate ожидание крайней даты передачи объекта.
type AwaitingDeadlineDate struct {
	ContractAmount float64
}

// AwaitingCalculationDate ожидание даты расчета. Сырой ввод даты сохраняется
// для отображения в итоговом сообщении.
type AwaitingCalculationDate struct {
	ContractAmount float64
	DeadlineDate   time.Time
	DeadlineRaw    string
}

// AwaitingParticipantType ожидание выбора типа участника (ФЛ/ЮЛ).
type AwaitingParticipantType struct {
	ContractAmount  float64
	DeadlineDate    time.Time
	DeadlineRaw     string
	CalculationDate time.Time
	CalculationRaw  string
}

// AwaitingUniqueFlag ожидание признака уникальности объекта.
type AwaitingUniqueFlag struct {
	ContractAmount  float64
	DeadlineDate    time.Time
	DeadlineRaw     string
	CalculationDate time.Time
	CalculationRaw  string
	IsIndividual    bool
}

// AwaitingAdminUserID административный подсценарий: ожидание ID пользователя
// для ручного добавления в подписчики.
type AwaitingAdminUserID struct{}

func (Idle) State() State                    { return StateIdle }
func (AwaitingSubscription) State() State    { return StateAwaitingSubscription }
func (AwaitingContractAmount) State() State  { return StateAwaitingContractAmount }
func (AwaitingDeadlineDate) State() State    { return StateAwaitingDeadlineDate }
func (AwaitingCalculationDate) State() State { return StateAwaitingCalculationDate }
func (AwaitingParticipantType) State() State { return StateAwaitingParticipantType }
func (AwaitingUniqueFlag) State() State      { return StateAwaitingUniqueFlag }
func (AwaitingAdminUserID) State() State     { return StateAwaitingAdminUserID }

// Session состояние диалога одного пользователя. Владеет ею Store,
// изменения выполняются только внутри Store.WithSession.
type Session struct {
	UserID int64
	Data   Data
}

// Reset возвращает сессию в исходное состояние, отбрасывая накопленный ввод.
func (s *Session) Reset() {
	s.Data = Idle{}
}
