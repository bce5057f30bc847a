package models

import "time"

// Gym представляет арену лиги. Никогда не удаляется: история периодов
// лидерства ссылается на неё.
type Gym struct {
	ID                int       `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	BattleType        string    `json:"battle_type" db:"battle_type"`
	LeaderID          *int      `json:"leader_id,omitempty" db:"leader_id"`
	League            string    `json:"league" db:"league"`
	InDispute         bool      `json:"in_dispute" db:"in_dispute"`
	ConsecutiveLosses int       `json:"consecutive_losses" db:"consecutive_losses"`
	PhotoKey          *string   `json:"-" db:"photo_key"`
	PhotoURL          *string   `json:"photo_url,omitempty" db:"-"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности
	Leader *User `json:"leader,omitempty" db:"-"`
}
