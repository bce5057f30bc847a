package models

import "time"

// Season — игровой сезон лиги. Диспуты и периоды лидерства привязаны к
// текущему сезону на момент создания.
type Season struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	Current   bool      `json:"current" db:"current"`
}
