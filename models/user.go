package models

import "time"

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RolePlayer UserRole = "player"
)

type User struct {
	ID           int       `json:"id" db:"id"`
	Nickname     string    `json:"nickname" db:"nickname"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	TeamColor    *string   `json:"team_color,omitempty" db:"team_color"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Actor — аутентифицированный инициатор операции. Передаётся явно в
// методы жизненного цикла, чтобы авторизация не пряталась в глобальном
// состоянии.
type Actor struct {
	UserID int
	Role   UserRole
}

// SystemActor используется запланированными задачами: у них нет
// пользователя, но есть права на переходы жизненного цикла.
var SystemActor = Actor{UserID: 0, Role: RoleAdmin}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsScheduled сообщает, что операция пришла из планировщика, а не от
// человека: для таких вызовов конфликт "диспут уже открыт" — не ошибка.
func (a Actor) IsScheduled() bool {
	return a.UserID == 0
}
