package services

import (
	"context"
	"testing"
	"time"

	"github.com/pogoleague/league-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(DisputeWindows{})
	gym := env.addGym("Ferrum Gym")

	_, err := env.jobs.Schedule(ctx, playerActor(1), ScheduleJobInput{
		GymID: gym.ID, Action: models.JobCreateDispute, FireAt: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = env.jobs.Schedule(ctx, adminActor, ScheduleJobInput{
		GymID: gym.ID, Action: models.JobCreateDispute, FireAt: time.Now().Add(-time.Minute),
	})
	assert.ErrorIs(t, err, ErrJobFireTimeInPast)

	_, err = env.jobs.Schedule(ctx, adminActor, ScheduleJobInput{
		GymID: gym.ID, Action: models.JobAction("demolish_gym"), FireAt: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrJobInvalidAction)

	job, err := env.jobs.Schedule(ctx, adminActor, ScheduleJobInput{
		GymID: gym.ID, Action: models.JobCreateDispute, FireAt: time.Now().Add(time.Hour), Origin: "manual schedule",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, job.Key)
	assert.Equal(t, models.JobPending, job.Status)
}

func TestExecuteDueJobsCreatesDispute(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(DisputeWindows{})
	gym := env.addGym("Ferrum Gym")

	fireAt := time.Now().Add(-time.Minute)
	job, err := env.jobs.ScheduleSystem(ctx, ScheduleJobInput{
		GymID: gym.ID, Action: models.JobCreateDispute, FireAt: fireAt, Origin: "seasonal sweep",
	})
	require.NoError(t, err)

	outcomes, err := env.jobs.ExecuteDueJobs(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Executed)
	assert.Empty(t, outcomes[0].Error)
	assert.Equal(t, job.Key, outcomes[0].Key)

	stored, err := env.jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobExecuted, stored.Status)
	require.NotNil(t, stored.ExecutedAt)

	dispute, err := env.disputeRepo.GetActiveByGym(ctx, gym.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OriginAutoSchedule, dispute.Origin)
	assert.Equal(t, models.DisputeRegistration, dispute.Status)
}

func TestExecuteDueJobsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(DisputeWindows{})
	gym := env.addGym("Ferrum Gym")

	_, err := env.jobs.ScheduleSystem(ctx, ScheduleJobInput{
		GymID: gym.ID, Action: models.JobCreateDispute, FireAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	first, err := env.jobs.ExecuteDueJobs(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Второй тик: задача уже executed, делать нечего.
	second, err := env.jobs.ExecuteDueJobs(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, second)

	// И диспут ровно один.
	count := 0
	for id := 1; id < env.disputeRepo.nextID; id++ {
		if _, ok := env.disputeRepo.disputes[id]; ok {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExecuteDueJobsFailureIsolation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(DisputeWindows{})
	gym := env.addGym("Ferrum Gym")

	// Задача на несуществующий зал падает, соседняя выполняется.
	broken, err := env.jobs.ScheduleSystem(ctx, ScheduleJobInput{
		GymID: 999, Action: models.JobCreateDispute, FireAt: time.Now().Add(-2 * time.Minute),
	})
	require.NoError(t, err)
	healthy, err := env.jobs.ScheduleSystem(ctx, ScheduleJobInput{
		GymID: gym.ID, Action: models.JobCreateDispute, FireAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	outcomes, err := env.jobs.ExecuteDueJobs(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	byID := map[int]JobOutcome{}
	for _, o := range outcomes {
		byID[o.JobID] = o
	}
	assert.False(t, byID[broken.ID].Executed)
	assert.NotEmpty(t, byID[broken.ID].Error)
	assert.True(t, byID[healthy.ID].Executed)

	storedBroken, err := env.jobRepo.GetByID(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobError, storedBroken.Status)
	require.NotNil(t, storedBroken.LastError)

	storedHealthy, err := env.jobRepo.GetByID(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobExecuted, storedHealthy.Status)
}

func TestStartJobResolvesActiveDispute(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(DisputeWindows{})
	gym := env.addGym("Ferrum Gym")

	created, err := env.disputes.CreateDispute(ctx, adminActor, gym.ID, models.OriginManual)
	require.NoError(t, err)
	registerWithType(t, env, created.Dispute.ID, 1, "water")
	registerWithType(t, env, created.Dispute.ID, 2, "grass")

	// Задача без dispute_id находит активный диспут зала сама.
	_, err = env.jobs.ScheduleSystem(ctx, ScheduleJobInput{
		GymID: gym.ID, Action: models.JobStartDispute, FireAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	outcomes, err := env.jobs.ExecuteDueJobs(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Executed)

	dispute, err := env.disputes.GetDispute(ctx, created.Dispute.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeBattling, dispute.Status)
}

func TestManualStartFinalizesPendingJob(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(DisputeWindows{Registration: 24 * time.Hour, Battle: 72 * time.Hour})
	gym := env.addGym("Ferrum Gym")

	created, err := env.disputes.CreateDispute(ctx, adminActor, gym.ID, models.OriginManual)
	require.NoError(t, err)
	registerWithType(t, env, created.Dispute.ID, 1, "water")
	registerWithType(t, env, created.Dispute.ID, 2, "grass")

	// Админ стартует раньше окна — запланированная start-задача гасится.
	_, err = env.disputes.StartDispute(ctx, adminActor, created.Dispute.ID)
	require.NoError(t, err)

	jobs, err := env.jobs.ListGymJobs(ctx, gym.ID)
	require.NoError(t, err)
	for _, job := range jobs {
		if job.Action == models.JobStartDispute {
			assert.Equal(t, models.JobExecuted, job.Status)
		}
	}

	// Тик после окна регистрации не находит созревшей start-задачи.
	outcomes, err := env.jobs.ExecuteDueJobs(ctx, time.Now().Add(25*time.Hour))
	require.NoError(t, err)
	for _, o := range outcomes {
		assert.NotEqual(t, models.JobStartDispute, o.Action)
	}
}

func TestCancelPendingJobs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(DisputeWindows{})
	gym := env.addGym("Ferrum Gym")

	_, err := env.jobs.ScheduleSystem(ctx, ScheduleJobInput{
		GymID: gym.ID, Action: models.JobCreateDispute, FireAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	executed, err := env.jobs.ScheduleSystem(ctx, ScheduleJobInput{
		GymID: gym.ID, Action: models.JobCreateDispute, FireAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	_, err = env.jobs.ExecuteDueJobs(ctx, time.Now())
	require.NoError(t, err)

	_, err = env.jobs.CancelPendingJobs(ctx, playerActor(1), gym.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	cancelled, err := env.jobs.CancelPendingJobs(ctx, adminActor, gym.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cancelled)

	jobs, err := env.jobs.ListGymJobs(ctx, gym.ID)
	require.NoError(t, err)
	statuses := map[int]models.JobStatus{}
	for _, job := range jobs {
		statuses[job.ID] = job.Status
	}
	assert.Equal(t, models.JobExecuted, statuses[executed.ID])

	pending := 0
	for _, status := range statuses {
		if status == models.JobPending {
			pending++
		}
	}
	assert.Zero(t, pending)
}
