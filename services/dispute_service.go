package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pogoleague/league-system/models"
	"github.com/pogoleague/league-system/repositories"
	"golang.org/x/sync/errgroup"
)

// LiveBroadcaster рассылает события жизненного цикла подписчикам
// комнаты зала (реализация — websocket-хаб).
type LiveBroadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

// DisputeWindows — длительности окон диспута. Нулевая длительность
// означает, что фаза продвигается только вручную и задача под неё не
// планируется.
type DisputeWindows struct {
	Registration time.Duration
	Battle       time.Duration
}

type CreateOutcome struct {
	Dispute *models.Dispute `json:"dispute"`
	// AlreadyActive — create пришёл из планировщика, когда диспут уже
	// открыт: тихий no-op, Dispute указывает на существующий.
	AlreadyActive bool `json:"already_active"`
}

type StartOutcome struct {
	// Started == false означает, что после удаления участников без типа
	// осталось меньше двух: диспут остаётся в registration, окно
	// фактически продлено.
	Started       bool  `json:"started"`
	EligibleCount int   `json:"eligible_count"`
	RemovedCount  int64 `json:"removed_count"`
}

type CloseOutcomeKind string

const (
	CloseNoParticipants CloseOutcomeKind = "no-participants"
	CloseWinnerApplied  CloseOutcomeKind = "winner-applied"
	CloseTieReopened    CloseOutcomeKind = "tie-reopened"
	CloseLeaderRace     CloseOutcomeKind = "aborted-leader-assigned"
	CloseSkipped        CloseOutcomeKind = "skipped"
)

type CloseOutcome struct {
	Kind              CloseOutcomeKind `json:"kind"`
	WinnerID          *int             `json:"winner_id,omitempty"`
	Standings         []StandingEntry  `json:"standings,omitempty"`
	TiedUserIDs       []int            `json:"tied_user_ids,omitempty"`
	ReopenedDisputeID *int             `json:"reopened_dispute_id,omitempty"`
	WalkoversPromoted int              `json:"walkovers_promoted"`
}

type ReportResultInput struct {
	OpponentID int    `json:"opponent_id"`
	Outcome    string `json:"outcome"` // win | loss | tie
}

type DisputeService interface {
	CreateDispute(ctx context.Context, actor models.Actor, gymID int, origin models.DisputeOrigin) (*CreateOutcome, error)
	StartDispute(ctx context.Context, actor models.Actor, disputeID int) (*StartOutcome, error)
	CloseDispute(ctx context.Context, actor models.Actor, disputeID int) (*CloseOutcome, error)
	GetDispute(ctx context.Context, disputeID int) (*models.Dispute, error)
	Standings(ctx context.Context, disputeID int) ([]StandingEntry, error)
	RegisterParticipant(ctx context.Context, actor models.Actor, disputeID int) (*models.DisputeParticipant, error)
	ChooseType(ctx context.Context, actor models.Actor, disputeID int, battleType string) error
	Withdraw(ctx context.Context, actor models.Actor, disputeID int) error
	ReportResult(ctx context.Context, actor models.Actor, disputeID int, input ReportResultInput) (*models.MatchResult, error)
	ConfirmResult(ctx context.Context, actor models.Actor, resultID int) (*models.MatchResult, error)
	RenounceLeadership(ctx context.Context, actor models.Actor, gymID int) (*CreateOutcome, error)
}

type disputeService struct {
	gymRepo         repositories.GymRepository
	disputeRepo     repositories.DisputeRepository
	participantRepo repositories.ParticipantRepository
	resultRepo      repositories.ResultRepository
	leadershipRepo  repositories.LeadershipRepository
	challengeRepo   repositories.ChallengeRepository
	seasonRepo      repositories.SeasonRepository
	jobs            JobService
	hub             LiveBroadcaster
	logger          *slog.Logger
	windows         DisputeWindows
	winPoints       int
	tiePoints       int
}

func NewDisputeService(
	gymRepo repositories.GymRepository,
	disputeRepo repositories.DisputeRepository,
	participantRepo repositories.ParticipantRepository,
	resultRepo repositories.ResultRepository,
	leadershipRepo repositories.LeadershipRepository,
	challengeRepo repositories.ChallengeRepository,
	seasonRepo repositories.SeasonRepository,
	jobs JobService,
	hub LiveBroadcaster,
	logger *slog.Logger,
	windows DisputeWindows,
) DisputeService {
	return &disputeService{
		gymRepo:         gymRepo,
		disputeRepo:     disputeRepo,
		participantRepo: participantRepo,
		resultRepo:      resultRepo,
		leadershipRepo:  leadershipRepo,
		challengeRepo:   challengeRepo,
		seasonRepo:      seasonRepo,
		jobs:            jobs,
		hub:             hub,
		logger:          logger,
		windows:         windows,
		winPoints:       DefaultWinPoints,
		tiePoints:       DefaultTiePoints,
	}
}

func gymRoom(gymID int) string {
	return fmt.Sprintf("gym_%d", gymID)
}

func (s *disputeService) broadcast(gymID int, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(gymRoom(gymID), map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	})
}

// CreateDispute открывает окно регистрации на зал. Для вызова из
// планировщика конфликт с уже открытым диспутом — тихий no-op, для
// человека — отказ.
func (s *disputeService) CreateDispute(ctx context.Context, actor models.Actor, gymID int, origin models.DisputeOrigin) (*CreateOutcome, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	return s.createDispute(ctx, actor, gymID, origin)
}

// createDispute — внутренний вход без проверки роли: им пользуется и
// отречение лидера (origin forfeit), и тай-брейк.
func (s *disputeService) createDispute(ctx context.Context, actor models.Actor, gymID int, origin models.DisputeOrigin) (*CreateOutcome, error) {
	gym, err := s.gymRepo.GetByID(ctx, gymID)
	if err != nil {
		if errors.Is(err, repositories.ErrGymNotFound) {
			return nil, ErrGymNotFound
		}
		return nil, fmt.Errorf("create dispute: load gym %d: %w", gymID, err)
	}

	if existing, err := s.disputeRepo.GetActiveByGym(ctx, gymID); err == nil {
		if actor.IsScheduled() {
			s.logger.Info("scheduled create skipped, dispute already active",
				slog.Int("gym_id", gymID), slog.Int("dispute_id", existing.ID))
			return &CreateOutcome{Dispute: existing, AlreadyActive: true}, nil
		}
		return nil, ErrDisputeAlreadyActive
	} else if !errors.Is(err, repositories.ErrDisputeNotFound) {
		return nil, fmt.Errorf("create dispute: check active dispute for gym %d: %w", gymID, err)
	}

	dispute := &models.Dispute{
		GymID:            gymID,
		Status:           models.DisputeRegistration,
		OriginalType:     gym.BattleType,
		PreviousLeaderID: gym.LeaderID,
		Origin:           origin,
	}
	if season, err := s.seasonRepo.GetCurrent(ctx); err == nil {
		dispute.SeasonID = &season.ID
	} else if !errors.Is(err, repositories.ErrSeasonNotFound) {
		return nil, fmt.Errorf("create dispute: load current season: %w", err)
	}

	if err := s.disputeRepo.Create(ctx, dispute); err != nil {
		if errors.Is(err, repositories.ErrDisputeAlreadyActive) {
			// Кто-то успел создать диспут между проверкой и вставкой —
			// уникальный индекс в БД остаётся последней линией обороны.
			if actor.IsScheduled() {
				return &CreateOutcome{AlreadyActive: true}, nil
			}
			return nil, ErrDisputeAlreadyActive
		}
		return nil, fmt.Errorf("create dispute for gym %d: %w", gymID, err)
	}

	if err := s.gymRepo.SetInDispute(ctx, nil, gymID, true); err != nil {
		return nil, fmt.Errorf("create dispute: flag gym %d in dispute: %w", gymID, err)
	}

	if err := s.scheduleDisputeWindows(ctx, dispute); err != nil {
		return nil, err
	}

	// Ручное создание гасит запланированные create-задачи, чтобы триггер
	// позже не открыл дубликат.
	if !actor.IsScheduled() {
		if err := s.jobs.FinalizeMatchingPendingJobs(ctx, gymID, models.JobCreateDispute, nil); err != nil {
			s.logger.Error("failed to finalize matching create jobs",
				slog.Int("gym_id", gymID), slog.Any("error", err))
		}
	}

	s.logger.Info("dispute created",
		slog.Int("gym_id", gymID), slog.Int("dispute_id", dispute.ID), slog.String("origin", string(origin)))
	s.broadcast(gymID, "DISPUTE_CREATED", dispute)

	return &CreateOutcome{Dispute: dispute}, nil
}

// scheduleDisputeWindows заводит start/close-задачи самого диспута по
// настроенным длительностям окон.
func (s *disputeService) scheduleDisputeWindows(ctx context.Context, dispute *models.Dispute) error {
	now := time.Now()
	if s.windows.Registration > 0 {
		if _, err := s.jobs.ScheduleSystem(ctx, ScheduleJobInput{
			GymID:     dispute.GymID,
			DisputeID: &dispute.ID,
			Action:    models.JobStartDispute,
			FireAt:    now.Add(s.windows.Registration),
			Origin:    fmt.Sprintf("dispute %d registration window", dispute.ID),
		}); err != nil {
			return fmt.Errorf("schedule start job for dispute %d: %w", dispute.ID, err)
		}
	}
	if s.windows.Battle > 0 {
		if _, err := s.jobs.ScheduleSystem(ctx, ScheduleJobInput{
			GymID:     dispute.GymID,
			DisputeID: &dispute.ID,
			Action:    models.JobCloseDispute,
			FireAt:    now.Add(s.windows.Registration + s.windows.Battle),
			Origin:    fmt.Sprintf("dispute %d battle window", dispute.ID),
		}); err != nil {
			return fmt.Errorf("schedule close job for dispute %d: %w", dispute.ID, err)
		}
	}
	return nil
}

// StartDispute переводит диспут из registration в battling. Двухфазно:
// сначала убираются участники без выбранного типа, затем, если
// пригодных осталось меньше двух, диспут остаётся в registration —
// безопасный no-op, а не ошибка.
func (s *disputeService) StartDispute(ctx context.Context, actor models.Actor, disputeID int) (*StartOutcome, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}

	dispute, err := s.loadDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status != models.DisputeRegistration {
		if actor.IsScheduled() {
			// Устаревшая задача: диспут уже стартовал или закрыт вручную.
			return &StartOutcome{Started: false}, nil
		}
		return nil, ErrDisputeInvalidStatusTransition
	}

	removed, err := s.participantRepo.RemoveWithoutType(ctx, nil, disputeID)
	if err != nil {
		return nil, fmt.Errorf("start dispute %d: remove typeless participants: %w", disputeID, err)
	}

	remaining, err := s.participantRepo.ListByDispute(ctx, disputeID, false)
	if err != nil {
		return nil, fmt.Errorf("start dispute %d: list participants: %w", disputeID, err)
	}
	eligible := 0
	for _, p := range remaining {
		if p.Eligible() {
			eligible++
		}
	}

	if eligible < 2 {
		s.logger.Info("dispute start deferred, not enough eligible participants",
			slog.Int("dispute_id", disputeID), slog.Int("eligible", eligible))
		return &StartOutcome{Started: false, EligibleCount: eligible, RemovedCount: removed}, nil
	}

	if err := s.disputeRepo.MarkBattling(ctx, disputeID, time.Now()); err != nil {
		return nil, fmt.Errorf("start dispute %d: %w", disputeID, err)
	}

	if !actor.IsScheduled() {
		if err := s.jobs.FinalizeMatchingPendingJobs(ctx, dispute.GymID, models.JobStartDispute, &disputeID); err != nil {
			s.logger.Error("failed to finalize matching start jobs",
				slog.Int("dispute_id", disputeID), slog.Any("error", err))
		}
	}

	s.logger.Info("dispute started",
		slog.Int("dispute_id", disputeID), slog.Int("eligible", eligible), slog.Int64("removed", removed))
	s.broadcast(dispute.GymID, "DISPUTE_STARTED", map[string]interface{}{
		"dispute_id": disputeID,
		"eligible":   eligible,
	})

	return &StartOutcome{Started: true, EligibleCount: eligible, RemovedCount: removed}, nil
}

// CloseDispute завершает окно боёв: WO-проход, подсчёт очков, защита от
// гонки за лидера, тай-брейк или назначение победителя, зачистка.
func (s *disputeService) CloseDispute(ctx context.Context, actor models.Actor, disputeID int) (*CloseOutcome, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}

	dispute, err := s.loadDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status == models.DisputeFinalized {
		if actor.IsScheduled() {
			return &CloseOutcome{Kind: CloseSkipped}, nil
		}
		return nil, ErrDisputeInvalidStatusTransition
	}

	// Участники и результаты грузятся параллельно: оба набора нужны
	// почти на каждом следующем шаге.
	var (
		participants []models.DisputeParticipant
		results      []models.MatchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		participants, err = s.participantRepo.ListByDispute(gctx, disputeID, false)
		return err
	})
	g.Go(func() error {
		var err error
		results, err = s.resultRepo.ListByDispute(gctx, disputeID, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("close dispute %d: load state: %w", disputeID, err)
	}

	// Никто не заявился — диспут схлопывается без победителя.
	if len(participants) == 0 {
		if err := s.finalizeWithoutWinner(ctx, dispute, false); err != nil {
			return nil, err
		}
		s.finishClose(ctx, actor, dispute)
		return &CloseOutcome{Kind: CloseNoParticipants}, nil
	}

	if dispute.Status != models.DisputeBattling {
		// Закрыть из registration можно только пустой диспут.
		if actor.IsScheduled() {
			return &CloseOutcome{Kind: CloseSkipped}, nil
		}
		return nil, ErrDisputeInvalidStatusTransition
	}

	promoted, err := s.runWalkoverPass(ctx, results)
	if err != nil {
		return nil, fmt.Errorf("close dispute %d: %w", disputeID, err)
	}

	confirmedStatus := models.ResultConfirmed
	confirmed, err := s.resultRepo.ListByDispute(ctx, disputeID, &confirmedStatus)
	if err != nil {
		return nil, fmt.Errorf("close dispute %d: reload confirmed results: %w", disputeID, err)
	}

	standings := ComputeStandings(participants, confirmed, s.winPoints, s.tiePoints)
	top, _ := TopScorers(standings)

	// Защита от гонки: пока закрытие шло, лидера могли назначить в
	// обход. Тогда победитель не применяется.
	gym, err := s.gymRepo.GetByID(ctx, dispute.GymID)
	if err != nil {
		return nil, fmt.Errorf("close dispute %d: re-read gym: %w", disputeID, err)
	}
	if gym.LeaderID != nil {
		s.logger.Warn("close aborted, gym already has a leader",
			slog.Int("dispute_id", disputeID), slog.Int("gym_id", gym.ID), slog.Int("leader_id", *gym.LeaderID))
		if err := s.finalizeWithoutWinner(ctx, dispute, false); err != nil {
			return nil, err
		}
		s.finishClose(ctx, actor, dispute)
		return &CloseOutcome{
			Kind:              CloseLeaderRace,
			Standings:         SortedStandings(standings),
			WalkoversPromoted: promoted,
		}, nil
	}

	if len(top) > 1 {
		reopened, err := s.reopenForTie(ctx, gym, dispute, participants, top)
		if err != nil {
			return nil, err
		}
		s.finishClose(ctx, actor, dispute)
		return &CloseOutcome{
			Kind:              CloseTieReopened,
			Standings:         SortedStandings(standings),
			TiedUserIDs:       top,
			ReopenedDisputeID: &reopened.ID,
			WalkoversPromoted: promoted,
		}, nil
	}

	winnerID := top[0]
	if err := s.installWinner(ctx, gym, dispute, participants, winnerID); err != nil {
		return nil, err
	}
	s.finishClose(ctx, actor, dispute)

	s.broadcast(gym.ID, "DISPUTE_CLOSED", map[string]interface{}{
		"dispute_id": disputeID,
		"winner_id":  winnerID,
	})

	return &CloseOutcome{
		Kind:              CloseWinnerApplied,
		WinnerID:          &winnerID,
		Standings:         SortedStandings(standings),
		WalkoversPromoted: promoted,
	}, nil
}

// installWinner применяет победу: закрыть открытый период лидерства,
// открыть новый, обновить зал, финализировать и вычистить диспут.
// Порядок записей существенный: обрыв между шагами оставляет
// восстановимое состояние, а не потерянное лидерство.
func (s *disputeService) installWinner(ctx context.Context, gym *models.Gym, dispute *models.Dispute, participants []models.DisputeParticipant, winnerID int) error {
	chosenType := dispute.OriginalType
	for _, p := range participants {
		if p.UserID == winnerID && p.ChosenType != "" {
			chosenType = p.ChosenType
			break
		}
	}
	if chosenType == "" {
		chosenType = gym.BattleType
	}

	now := time.Now()
	if _, err := s.leadershipRepo.CloseOpenByGym(ctx, nil, gym.ID, now); err != nil {
		return fmt.Errorf("close dispute %d: close open leadership period: %w", dispute.ID, err)
	}
	period := &models.LeadershipPeriod{
		GymID:     gym.ID,
		LeaderID:  &winnerID,
		StartedAt: now,
		Origin:    dispute.Origin,
		TypeHeld:  chosenType,
		SeasonID:  dispute.SeasonID,
	}
	if err := s.leadershipRepo.Open(ctx, nil, period); err != nil {
		return fmt.Errorf("close dispute %d: open leadership period: %w", dispute.ID, err)
	}

	if err := s.gymRepo.ApplyLeadership(ctx, nil, gym.ID, &winnerID, chosenType, false, 0); err != nil {
		return fmt.Errorf("close dispute %d: apply gym leadership: %w", dispute.ID, err)
	}

	if err := s.disputeRepo.Finalize(ctx, nil, dispute.ID, &winnerID, false); err != nil {
		return fmt.Errorf("close dispute %d: finalize: %w", dispute.ID, err)
	}
	if err := s.purgeDispute(ctx, dispute.ID); err != nil {
		return err
	}

	s.logger.Info("dispute winner installed",
		slog.Int("dispute_id", dispute.ID), slog.Int("gym_id", gym.ID),
		slog.Int("winner_id", winnerID), slog.String("battle_type", chosenType))
	return nil
}

// finalizeWithoutWinner — общий хвост для пустого диспута и гонки за
// лидера: финализация без победителя, зачистка, снятие флага.
func (s *disputeService) finalizeWithoutWinner(ctx context.Context, dispute *models.Dispute, tieAtTop bool) error {
	if err := s.disputeRepo.Finalize(ctx, nil, dispute.ID, nil, tieAtTop); err != nil {
		return fmt.Errorf("close dispute %d: finalize without winner: %w", dispute.ID, err)
	}
	if err := s.purgeDispute(ctx, dispute.ID); err != nil {
		return err
	}
	if err := s.gymRepo.SetInDispute(ctx, nil, dispute.GymID, false); err != nil {
		return fmt.Errorf("close dispute %d: clear gym flag: %w", dispute.ID, err)
	}
	return nil
}

// purgeDispute удаляет дочерние записи раньше самого диспута.
func (s *disputeService) purgeDispute(ctx context.Context, disputeID int) error {
	if err := s.resultRepo.DeleteByDispute(ctx, nil, disputeID); err != nil {
		return fmt.Errorf("purge dispute %d: results: %w", disputeID, err)
	}
	if err := s.participantRepo.DeleteByDispute(ctx, nil, disputeID); err != nil {
		return fmt.Errorf("purge dispute %d: participants: %w", disputeID, err)
	}
	if err := s.disputeRepo.Delete(ctx, nil, disputeID); err != nil && !errors.Is(err, repositories.ErrDisputeNotFound) {
		return fmt.Errorf("purge dispute %d: %w", disputeID, err)
	}
	return nil
}

// finishClose — общие best-effort шаги после любого исхода закрытия:
// закрыть открытые вызовы зала и погасить совпадающие close-задачи.
func (s *disputeService) finishClose(ctx context.Context, actor models.Actor, dispute *models.Dispute) {
	if _, err := s.challengeRepo.CloseAllPendingByGym(ctx, nil, dispute.GymID); err != nil {
		s.logger.Error("failed to close pending challenges",
			slog.Int("gym_id", dispute.GymID), slog.Any("error", err))
	}
	if !actor.IsScheduled() {
		if err := s.jobs.FinalizeMatchingPendingJobs(ctx, dispute.GymID, models.JobCloseDispute, &dispute.ID); err != nil {
			s.logger.Error("failed to finalize matching close jobs",
				slog.Int("dispute_id", dispute.ID), slog.Any("error", err))
		}
	}
}

func (s *disputeService) loadDispute(ctx context.Context, disputeID int) (*models.Dispute, error) {
	dispute, err := s.disputeRepo.GetByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repositories.ErrDisputeNotFound) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("load dispute %d: %w", disputeID, err)
	}
	return dispute, nil
}

func (s *disputeService) GetDispute(ctx context.Context, disputeID int) (*models.Dispute, error) {
	dispute, err := s.loadDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dispute.Participants, err = s.participantRepo.ListByDispute(gctx, disputeID, false)
		return err
	})
	g.Go(func() error {
		var err error
		dispute.Results, err = s.resultRepo.ListByDispute(gctx, disputeID, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dispute %d details: %w", disputeID, err)
	}
	return dispute, nil
}

func (s *disputeService) Standings(ctx context.Context, disputeID int) ([]StandingEntry, error) {
	dispute, err := s.loadDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	participants, err := s.participantRepo.ListByDispute(ctx, dispute.ID, false)
	if err != nil {
		return nil, fmt.Errorf("standings for dispute %d: %w", disputeID, err)
	}
	confirmedStatus := models.ResultConfirmed
	confirmed, err := s.resultRepo.ListByDispute(ctx, dispute.ID, &confirmedStatus)
	if err != nil {
		return nil, fmt.Errorf("standings for dispute %d: %w", disputeID, err)
	}

	return SortedStandings(ComputeStandings(participants, confirmed, s.winPoints, s.tiePoints)), nil
}

func (s *disputeService) RegisterParticipant(ctx context.Context, actor models.Actor, disputeID int) (*models.DisputeParticipant, error) {
	dispute, err := s.loadDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status != models.DisputeRegistration {
		return nil, ErrRegistrationNotOpen
	}

	participant := &models.DisputeParticipant{
		DisputeID: disputeID,
		UserID:    actor.UserID,
	}
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		if errors.Is(err, repositories.ErrParticipantAlreadyInList) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("register participant in dispute %d: %w", disputeID, err)
	}

	s.broadcast(dispute.GymID, "PARTICIPANT_REGISTERED", participant)
	return participant, nil
}

func (s *disputeService) ChooseType(ctx context.Context, actor models.Actor, disputeID int, battleType string) error {
	if battleType == "" {
		return ErrBattleTypeRequired
	}
	dispute, err := s.loadDispute(ctx, disputeID)
	if err != nil {
		return err
	}
	if dispute.Status != models.DisputeRegistration {
		return ErrRegistrationNotOpen
	}

	participant, err := s.participantRepo.GetByDisputeAndUser(ctx, disputeID, actor.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrNotDisputeParticipant
		}
		return fmt.Errorf("choose type in dispute %d: %w", disputeID, err)
	}
	if participant.Removed {
		return ErrNotDisputeParticipant
	}

	return s.participantRepo.SetChosenType(ctx, participant.ID, battleType)
}

func (s *disputeService) Withdraw(ctx context.Context, actor models.Actor, disputeID int) error {
	dispute, err := s.loadDispute(ctx, disputeID)
	if err != nil {
		return err
	}
	if dispute.Status == models.DisputeFinalized {
		return ErrDisputeInvalidStatusTransition
	}

	participant, err := s.participantRepo.GetByDisputeAndUser(ctx, disputeID, actor.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrNotDisputeParticipant
		}
		return fmt.Errorf("withdraw from dispute %d: %w", disputeID, err)
	}
	if participant.Removed {
		return ErrNotDisputeParticipant
	}

	return s.participantRepo.MarkRemoved(ctx, nil, participant.ID)
}

// ReportResult записывает односторонне заявленный результат боя как
// pending. Подтверждает его либо вторая сторона, либо WO-проход при
// закрытии окна.
func (s *disputeService) ReportResult(ctx context.Context, actor models.Actor, disputeID int, input ReportResultInput) (*models.MatchResult, error) {
	if input.OpponentID == actor.UserID {
		return nil, ErrSelfResultForbidden
	}

	dispute, err := s.loadDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status != models.DisputeBattling {
		return nil, ErrDisputeNotBattling
	}

	participants, err := s.participantRepo.ListByDispute(ctx, disputeID, false)
	if err != nil {
		return nil, fmt.Errorf("report result in dispute %d: %w", disputeID, err)
	}
	if !eligibleUser(participants, actor.UserID) || !eligibleUser(participants, input.OpponentID) {
		return nil, ErrResultPairNotInList
	}

	result := &models.MatchResult{
		DisputeID:  disputeID,
		ReportedBy: actor.UserID,
		Status:     models.ResultPending,
	}
	switch input.Outcome {
	case "win":
		result.WinnerID, result.LoserID = actor.UserID, input.OpponentID
	case "loss":
		result.WinnerID, result.LoserID = input.OpponentID, actor.UserID
	case "tie":
		result.WinnerID, result.LoserID = actor.UserID, input.OpponentID
		result.Tie = true
	default:
		return nil, ErrValidationFailed
	}

	// Пара с подтверждённым результатом закрыта: второй подтверждённый
	// результат по ней появиться не должен.
	if err := s.ensurePairUnconfirmed(ctx, disputeID, result.PairKey()); err != nil {
		return nil, err
	}

	if err := s.resultRepo.Create(ctx, result); err != nil {
		return nil, fmt.Errorf("report result in dispute %d: %w", disputeID, err)
	}

	s.broadcast(dispute.GymID, "RESULT_REPORTED", result)
	return result, nil
}

// ConfirmResult — подтверждение результата второй стороной.
func (s *disputeService) ConfirmResult(ctx context.Context, actor models.Actor, resultID int) (*models.MatchResult, error) {
	result, err := s.resultRepo.GetByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, repositories.ErrResultNotFound) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("load result %d: %w", resultID, err)
	}
	if !result.Involves(actor.UserID) {
		return nil, ErrResultNotYours
	}
	if result.ReportedBy == actor.UserID {
		return nil, ErrConfirmOwnReport
	}
	if result.Status != models.ResultPending {
		return nil, ErrResultPairConfirmed
	}

	if err := s.ensurePairUnconfirmed(ctx, result.DisputeID, result.PairKey()); err != nil {
		return nil, err
	}

	if err := s.resultRepo.Confirm(ctx, nil, resultID); err != nil {
		return nil, fmt.Errorf("confirm result %d: %w", resultID, err)
	}
	result.Status = models.ResultConfirmed
	return result, nil
}

func (s *disputeService) ensurePairUnconfirmed(ctx context.Context, disputeID int, pair [2]int) error {
	confirmedStatus := models.ResultConfirmed
	confirmed, err := s.resultRepo.ListByDispute(ctx, disputeID, &confirmedStatus)
	if err != nil {
		return fmt.Errorf("check confirmed results for dispute %d: %w", disputeID, err)
	}
	for _, res := range confirmed {
		if res.PairKey() == pair {
			return ErrResultPairConfirmed
		}
	}
	return nil
}

// RenounceLeadership — лидер добровольно освобождает зал. Открытый
// период лидерства закрывается, и на зал открывается forfeit-диспут.
func (s *disputeService) RenounceLeadership(ctx context.Context, actor models.Actor, gymID int) (*CreateOutcome, error) {
	gym, err := s.gymRepo.GetByID(ctx, gymID)
	if err != nil {
		if errors.Is(err, repositories.ErrGymNotFound) {
			return nil, ErrGymNotFound
		}
		return nil, fmt.Errorf("renounce: load gym %d: %w", gymID, err)
	}
	if gym.LeaderID == nil {
		return nil, ErrDisputeInvalidStatusTransition
	}
	if !actor.IsAdmin() && actor.UserID != *gym.LeaderID {
		return nil, ErrForbiddenOperation
	}

	if _, err := s.leadershipRepo.CloseOpenByGym(ctx, nil, gymID, time.Now()); err != nil {
		return nil, fmt.Errorf("renounce: close leadership period for gym %d: %w", gymID, err)
	}

	// Диспут создаётся до освобождения кресла: так previous_leader_id
	// зафиксирует отрёкшегося лидера.
	outcome, err := s.createDispute(ctx, actor, gymID, models.OriginForfeit)
	if err != nil && !errors.Is(err, ErrDisputeAlreadyActive) {
		return nil, err
	}
	alreadyActive := errors.Is(err, ErrDisputeAlreadyActive)

	if err := s.gymRepo.ApplyLeadership(ctx, nil, gymID, nil, gym.BattleType, true, 0); err != nil {
		return nil, fmt.Errorf("renounce: vacate gym %d: %w", gymID, err)
	}

	s.logger.Info("leadership renounced", slog.Int("gym_id", gymID), slog.Int("leader_id", *gym.LeaderID))

	if alreadyActive {
		// Зал уже в диспуте — отречение сводится к освобождению кресла.
		return &CreateOutcome{AlreadyActive: true}, nil
	}
	return outcome, nil
}

func eligibleUser(participants []models.DisputeParticipant, userID int) bool {
	for _, p := range participants {
		if p.UserID == userID && p.Eligible() {
			return true
		}
	}
	return false
}
