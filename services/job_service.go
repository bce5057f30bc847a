package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pogoleague/league-system/models"
	"github.com/pogoleague/league-system/repositories"
)

// executeBatchLimit ограничивает число задач, обрабатываемых одним
// тиком триггера; хвост подбирается следующим тиком.
const executeBatchLimit = 20

// maxJobErrorLen — верхняя граница текста ошибки, сохраняемого в
// задаче.
const maxJobErrorLen = 500

// LifecycleDispatcher — срез диспут-сервиса, который нужен исполнителю
// задач. Отдельный интерфейс разрывает цикл инициализации: job-сервис
// создаётся раньше диспут-сервиса, а диспетчер подключается после.
type LifecycleDispatcher interface {
	CreateDispute(ctx context.Context, actor models.Actor, gymID int, origin models.DisputeOrigin) (*CreateOutcome, error)
	StartDispute(ctx context.Context, actor models.Actor, disputeID int) (*StartOutcome, error)
	CloseDispute(ctx context.Context, actor models.Actor, disputeID int) (*CloseOutcome, error)
}

type ScheduleJobInput struct {
	GymID     int              `json:"gym_id"`
	DisputeID *int             `json:"dispute_id,omitempty"`
	Action    models.JobAction `json:"action"`
	FireAt    time.Time        `json:"fire_at"`
	Origin    string           `json:"origin"`
}

// JobOutcome — итог обработки одной задачи в тике исполнителя.
type JobOutcome struct {
	JobID    int              `json:"job_id"`
	Key      string           `json:"key"`
	Action   models.JobAction `json:"action"`
	Executed bool             `json:"executed"`
	Error    string           `json:"error,omitempty"`
}

type JobService interface {
	// Schedule — создание задачи через API, только для админа.
	Schedule(ctx context.Context, actor models.Actor, input ScheduleJobInput) (*models.ScheduledJob, error)
	// ScheduleSystem — внутреннее планирование окон диспута без
	// проверки роли.
	ScheduleSystem(ctx context.Context, input ScheduleJobInput) (*models.ScheduledJob, error)
	// ExecuteDueJobs обрабатывает созревшие задачи; ошибка одной задачи
	// не прерывает остальные.
	ExecuteDueJobs(ctx context.Context, now time.Time) ([]JobOutcome, error)
	// FinalizeMatchingPendingJobs гасит pending-задачи, действие которых
	// уже выполнено вручную.
	FinalizeMatchingPendingJobs(ctx context.Context, gymID int, action models.JobAction, disputeID *int) error
	CancelPendingJobs(ctx context.Context, actor models.Actor, gymID int) (int64, error)
	ListGymJobs(ctx context.Context, gymID int) ([]models.ScheduledJob, error)
	SetDispatcher(dispatcher LifecycleDispatcher)
}

type jobService struct {
	jobRepo     repositories.JobRepository
	disputeRepo repositories.DisputeRepository
	dispatcher  LifecycleDispatcher
	logger      *slog.Logger
}

func NewJobService(jobRepo repositories.JobRepository, disputeRepo repositories.DisputeRepository, logger *slog.Logger) JobService {
	return &jobService{
		jobRepo:     jobRepo,
		disputeRepo: disputeRepo,
		logger:      logger,
	}
}

func (s *jobService) SetDispatcher(dispatcher LifecycleDispatcher) {
	s.dispatcher = dispatcher
}

func validJobAction(action models.JobAction) bool {
	switch action {
	case models.JobCreateDispute, models.JobStartDispute, models.JobCloseDispute:
		return true
	}
	return false
}

func (s *jobService) Schedule(ctx context.Context, actor models.Actor, input ScheduleJobInput) (*models.ScheduledJob, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	if !input.FireAt.After(time.Now()) {
		return nil, ErrJobFireTimeInPast
	}
	return s.ScheduleSystem(ctx, input)
}

func (s *jobService) ScheduleSystem(ctx context.Context, input ScheduleJobInput) (*models.ScheduledJob, error) {
	if !validJobAction(input.Action) {
		return nil, ErrJobInvalidAction
	}

	job := &models.ScheduledJob{
		Key:       uuid.NewString(),
		GymID:     input.GymID,
		DisputeID: input.DisputeID,
		Action:    input.Action,
		FireAt:    input.FireAt,
		Status:    models.JobPending,
		Origin:    input.Origin,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("schedule %s job for gym %d: %w", input.Action, input.GymID, err)
	}

	s.logger.Info("job scheduled",
		slog.String("key", job.Key), slog.String("action", string(job.Action)),
		slog.Int("gym_id", job.GymID), slog.Time("fire_at", job.FireAt))
	return job, nil
}

// ExecuteDueJobs — один тик исполнителя. Для каждой созревшей задачи:
// выполнить действие от имени системного актора, затем пометить задачу
// executed. Пометка идёт после диспатча: упавшее действие оставляет
// задачу в error со срезом текста ошибки, а не в executed.
func (s *jobService) ExecuteDueJobs(ctx context.Context, now time.Time) ([]JobOutcome, error) {
	if s.dispatcher == nil {
		return nil, errors.New("job executor has no lifecycle dispatcher attached")
	}

	due, err := s.jobRepo.ListDue(ctx, now, executeBatchLimit)
	if err != nil {
		return nil, fmt.Errorf("list due jobs: %w", err)
	}

	outcomes := make([]JobOutcome, 0, len(due))
	for _, job := range due {
		outcome := JobOutcome{JobID: job.ID, Key: job.Key, Action: job.Action}

		if err := s.dispatchJob(ctx, job); err != nil {
			msg := err.Error()
			if len(msg) > maxJobErrorLen {
				msg = msg[:maxJobErrorLen]
			}
			outcome.Error = msg
			if markErr := s.jobRepo.MarkError(ctx, job.ID, msg); markErr != nil {
				s.logger.Error("failed to mark job as errored",
					slog.Int("job_id", job.ID), slog.Any("error", markErr))
			}
			s.logger.Error("scheduled job failed",
				slog.Int("job_id", job.ID), slog.String("action", string(job.Action)), slog.Any("error", err))
			outcomes = append(outcomes, outcome)
			continue
		}

		if err := s.jobRepo.MarkExecuted(ctx, nil, job.ID, now); err != nil {
			// Задачу успели погасить (FinalizeMatching с ручного пути) —
			// действие уже выполнилось, двойной записи не будет.
			if !errors.Is(err, repositories.ErrJobNotFound) {
				s.logger.Error("failed to mark job as executed",
					slog.Int("job_id", job.ID), slog.Any("error", err))
			}
		}
		outcome.Executed = true
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// dispatchJob переводит задачу в вызов жизненного цикла. start/close
// без явного dispute_id адресуются активному диспуту зала; его
// отсутствие для такой задачи — ошибка задачи.
func (s *jobService) dispatchJob(ctx context.Context, job models.ScheduledJob) error {
	actor := models.SystemActor

	switch job.Action {
	case models.JobCreateDispute:
		_, err := s.dispatcher.CreateDispute(ctx, actor, job.GymID, models.OriginAutoSchedule)
		return err
	case models.JobStartDispute:
		disputeID, err := s.resolveDisputeID(ctx, job)
		if err != nil {
			return err
		}
		_, err = s.dispatcher.StartDispute(ctx, actor, disputeID)
		return err
	case models.JobCloseDispute:
		disputeID, err := s.resolveDisputeID(ctx, job)
		if err != nil {
			return err
		}
		_, err = s.dispatcher.CloseDispute(ctx, actor, disputeID)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrJobInvalidAction, job.Action)
	}
}

func (s *jobService) resolveDisputeID(ctx context.Context, job models.ScheduledJob) (int, error) {
	if job.DisputeID != nil {
		return *job.DisputeID, nil
	}
	dispute, err := s.disputeRepo.GetActiveByGym(ctx, job.GymID)
	if err != nil {
		if errors.Is(err, repositories.ErrDisputeNotFound) {
			return 0, fmt.Errorf("no active dispute on gym %d for %s job", job.GymID, job.Action)
		}
		return 0, err
	}
	return dispute.ID, nil
}

func (s *jobService) FinalizeMatchingPendingJobs(ctx context.Context, gymID int, action models.JobAction, disputeID *int) error {
	n, err := s.jobRepo.FinalizeMatching(ctx, gymID, action, disputeID, time.Now())
	if err != nil {
		return fmt.Errorf("finalize matching %s jobs for gym %d: %w", action, gymID, err)
	}
	if n > 0 {
		s.logger.Info("matching pending jobs finalized",
			slog.Int("gym_id", gymID), slog.String("action", string(action)), slog.Int64("count", n))
	}
	return nil
}

func (s *jobService) CancelPendingJobs(ctx context.Context, actor models.Actor, gymID int) (int64, error) {
	if !actor.IsAdmin() {
		return 0, ErrForbiddenOperation
	}
	n, err := s.jobRepo.CancelPendingByGym(ctx, gymID)
	if err != nil {
		return 0, fmt.Errorf("cancel pending jobs for gym %d: %w", gymID, err)
	}
	return n, nil
}

func (s *jobService) ListGymJobs(ctx context.Context, gymID int) ([]models.ScheduledJob, error) {
	jobs, err := s.jobRepo.ListByGym(ctx, gymID)
	if err != nil {
		return nil, fmt.Errorf("list jobs for gym %d: %w", gymID, err)
	}
	return jobs, nil
}
