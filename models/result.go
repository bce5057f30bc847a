package models

import "time"

type ResultStatus string

const (
	ResultPending   ResultStatus = "pending"
	ResultConfirmed ResultStatus = "confirmed"
)

// MatchResult — заявленный результат боя между двумя участниками
// диспута. Для победы заполняются WinnerID/LoserID; для ничьей Tie=true
// и пара хранится в тех же полях. Для любой неупорядоченной пары
// подтверждённым может стать не более одного результата.
type MatchResult struct {
	ID         int          `json:"id" db:"id"`
	DisputeID  int          `json:"dispute_id" db:"dispute_id"`
	WinnerID   int          `json:"winner_id" db:"winner_id"`
	LoserID    int          `json:"loser_id" db:"loser_id"`
	Tie        bool         `json:"tie" db:"tie"`
	ReportedBy int          `json:"reported_by" db:"reported_by"`
	Status     ResultStatus `json:"status" db:"status"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

// PairKey нормализует пару участников, чтобы (A,B) и (B,A) совпадали.
func (r *MatchResult) PairKey() [2]int {
	if r.WinnerID < r.LoserID {
		return [2]int{r.WinnerID, r.LoserID}
	}
	return [2]int{r.LoserID, r.WinnerID}
}

// Involves сообщает, участвует ли пользователь в этом результате.
func (r *MatchResult) Involves(userID int) bool {
	return r.WinnerID == userID || r.LoserID == userID
}
