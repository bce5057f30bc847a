package models

import "time"

// LeadershipPeriod — один непрерывный отрезок лидерства в зале.
// EndedAt == nil означает текущий период; на зал открытым может быть
// не более одного периода. LeaderID == nil — зал намеренно оставлен
// без лидера (отречение, три поражения подряд).
type LeadershipPeriod struct {
	ID        int           `json:"id" db:"id"`
	GymID     int           `json:"gym_id" db:"gym_id"`
	LeaderID  *int          `json:"leader_id,omitempty" db:"leader_id"`
	StartedAt time.Time     `json:"started_at" db:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty" db:"ended_at"`
	Origin    DisputeOrigin `json:"origin" db:"origin"`
	TypeHeld  string        `json:"type_held" db:"type_held"`
	SeasonID  *int          `json:"season_id,omitempty" db:"season_id"`

	Leader *User `json:"leader,omitempty" db:"-"`
}
