package models

import "time"

type JobAction string

const (
	JobCreateDispute JobAction = "create-dispute"
	JobStartDispute  JobAction = "start-dispute"
	JobCloseDispute  JobAction = "close-dispute"
)

// JobStatus — статусы отложенной задачи. executed, error и cancelled —
// терминальные.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobExecuted  JobStatus = "executed"
	JobError     JobStatus = "error"
	JobCancelled JobStatus = "cancelled"
)

// ScheduledJob — сохранённое намерение выполнить один переход
// жизненного цикла в заданное время. Исполняется не более одного раза:
// периодический триггер помечает задачу executed вместе с выполнением
// действия, а ручное выполнение того же действия гасит совпадающие
// pending-задачи.
type ScheduledJob struct {
	ID         int        `json:"id" db:"id"`
	Key        string     `json:"key" db:"key"`
	GymID      int        `json:"gym_id" db:"gym_id"`
	DisputeID  *int       `json:"dispute_id,omitempty" db:"dispute_id"`
	Action     JobAction  `json:"action" db:"action"`
	FireAt     time.Time  `json:"fire_at" db:"fire_at"`
	Status     JobStatus  `json:"status" db:"status"`
	Origin     string     `json:"origin" db:"origin"`
	ExecutedAt *time.Time `json:"executed_at,omitempty" db:"executed_at"`
	LastError  *string    `json:"last_error,omitempty" db:"last_error"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
