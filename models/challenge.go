package models

import "time"

type ChallengeStatus string

const (
	ChallengePending ChallengeStatus = "pending"
	ChallengeClosed  ChallengeStatus = "closed"
)

// Challenge — обычный вызов лидеру зала (вне диспута). Все pending
// вызовы зала закрываются при закрытии диспута: лидерство только что
// переразыграно.
type Challenge struct {
	ID           int             `json:"id" db:"id"`
	GymID        int             `json:"gym_id" db:"gym_id"`
	ChallengerID int             `json:"challenger_id" db:"challenger_id"`
	Status       ChallengeStatus `json:"status" db:"status"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
