package models

import "time"

// DisputeParticipant — заявка пользователя в диспуте. ChosenType
// остаётся пустым, пока игрок не выберет тип; без типа участник не
// учитывается при старте и закрытии.
type DisputeParticipant struct {
	ID         int       `json:"id" db:"id"`
	DisputeID  int       `json:"dispute_id" db:"dispute_id"`
	UserID     int       `json:"user_id" db:"user_id"`
	ChosenType string    `json:"chosen_type" db:"chosen_type"`
	Removed    bool      `json:"removed" db:"removed"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}

// Eligible — участник засчитывается в диспуте.
func (p *DisputeParticipant) Eligible() bool {
	return !p.Removed && p.ChosenType != ""
}
