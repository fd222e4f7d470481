package session

import "sync"

// Store потокобезопасное хранилище сессий: одна сессия на пользователя.
//
// Для каждого пользователя держится собственный мьютекс, поэтому два события
// одного пользователя обрабатываются строго по очереди, а события разных
// пользователей — параллельно.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	mu      sync.Mutex
	session Session
}

// NewStore создает пустое хранилище сессий.
func NewStore() *Store {
	return &Store{entries: make(map[int64]*entry)}
}

func (s *Store) entryFor(userID int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		e = &entry{session: Session{UserID: userID, Data: Idle{}}}
		s.entries[userID] = e
	}
	return e
}

// WithSession выполняет fn над сессией пользователя, создавая ее при
// необходимости. На время выполнения fn сессия заблокирована: одновременно
// выполняется не более одного перехода состояния на пользователя.
func (s *Store) WithSession(userID int64, fn func(*Session)) {
	e := s.entryFor(userID)

	e.mu.Lock()
	defer e.mu.Unlock()

	fn(&e.session)
}

// Reset сбрасывает сессию пользователя в исходное состояние.
// Для незнакомого пользователя ничего не делает.
func (s *Store) Reset(userID int64) {
	s.mu.Lock()
	e, ok := s.entries[userID]
	s.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Reset()
}

// Snapshot возвращает копию текущих данных сессии. Используется в тестах
// и диагностике; для переходов состояния применяется WithSession.
func (s *Store) Snapshot(userID int64) Data {
	e := s.entryFor(userID)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Data
}
