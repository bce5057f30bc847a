package models

import "time"

// DisputeStatus — статусы диспута, соответствующие ENUM в БД.
type DisputeStatus string

const (
	DisputeRegistration DisputeStatus = "registration"
	DisputeBattling     DisputeStatus = "battling"
	DisputeFinalized    DisputeStatus = "finalized"
)

// DisputeOrigin — причина открытия диспута.
type DisputeOrigin string

const (
	OriginManual       DisputeOrigin = "manual"
	OriginAutoSchedule DisputeOrigin = "auto-schedule"
	OriginForfeit      DisputeOrigin = "forfeit"
	OriginThreeLosses  DisputeOrigin = "3-losses"
	OriginTieRebracket DisputeOrigin = "tie-rebracket"
)

// Dispute — ограниченное по времени соревнование за лидерство в зале.
// На зал одновременно может существовать не более одного диспута в
// статусе registration или battling.
type Dispute struct {
	ID                  int           `json:"id" db:"id"`
	GymID               int           `json:"gym_id" db:"gym_id"`
	Status              DisputeStatus `json:"status" db:"status"`
	OriginalType        string        `json:"original_type" db:"original_type"`
	PreviousLeaderID    *int          `json:"previous_leader_id,omitempty" db:"previous_leader_id"`
	SeasonID            *int          `json:"season_id,omitempty" db:"season_id"`
	Origin              DisputeOrigin `json:"origin" db:"origin"`
	WinnerID            *int          `json:"winner_id,omitempty" db:"winner_id"`
	FinalizationApplied bool          `json:"finalization_applied" db:"finalization_applied"`
	TieAtTop            bool          `json:"tie_at_top" db:"tie_at_top"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
	StartedAt           *time.Time    `json:"started_at,omitempty" db:"started_at"`

	Participants []DisputeParticipant `json:"participants,omitempty" db:"-"`
	Results      []MatchResult        `json:"results,omitempty" db:"-"`
}

// Active — диспут держит зал занятым.
func (d *Dispute) Active() bool {
	return d.Status == DisputeRegistration || d.Status == DisputeBattling
}
