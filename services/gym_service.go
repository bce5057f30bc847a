package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pogoleague/league-system/models"
	"github.com/pogoleague/league-system/repositories"
	"github.com/pogoleague/league-system/storage"
)

// lossesBeforeDispute — после стольких подряд проигранных защит
// лидерство автоматически выносится на диспут.
const lossesBeforeDispute = 3

type GymService interface {
	CreateGym(ctx context.Context, actor models.Actor, input GymInput) (*models.Gym, error)
	GetGym(ctx context.Context, gymID int) (*models.Gym, error)
	ListGyms(ctx context.Context, filter repositories.ListGymsFilter) ([]models.Gym, error)
	UpdateGym(ctx context.Context, actor models.Actor, gymID int, input GymInput) (*models.Gym, error)
	UploadPhoto(ctx context.Context, actor models.Actor, gymID int, contentType string, file io.Reader) (*models.Gym, error)
	SubmitChallenge(ctx context.Context, actor models.Actor, gymID int) (*models.Challenge, error)
	ListChallenges(ctx context.Context, gymID int) ([]models.Challenge, error)
	// RecordDefense фиксирует исход защиты лидера против вызова. Третье
	// подряд поражение открывает диспут с origin "3-losses".
	RecordDefense(ctx context.Context, actor models.Actor, gymID int, leaderWon bool) (*models.Gym, error)
}

type GymInput struct {
	Name       string `json:"name"`
	BattleType string `json:"battle_type"`
	League     string `json:"league"`
}

type gymService struct {
	gymRepo        repositories.GymRepository
	userRepo       repositories.UserRepository
	challengeRepo  repositories.ChallengeRepository
	leadershipRepo repositories.LeadershipRepository
	disputeService DisputeService
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewGymService(
	gymRepo repositories.GymRepository,
	userRepo repositories.UserRepository,
	challengeRepo repositories.ChallengeRepository,
	leadershipRepo repositories.LeadershipRepository,
	disputeService DisputeService,
	uploader storage.FileUploader,
	logger *slog.Logger,
) GymService {
	return &gymService{
		gymRepo:        gymRepo,
		userRepo:       userRepo,
		challengeRepo:  challengeRepo,
		leadershipRepo: leadershipRepo,
		disputeService: disputeService,
		uploader:       uploader,
		logger:         logger,
	}
}

func validateGymInput(input GymInput) error {
	if input.Name == "" {
		return ErrGymNameRequired
	}
	if input.BattleType == "" {
		return ErrBattleTypeRequired
	}
	return nil
}

func (s *gymService) CreateGym(ctx context.Context, actor models.Actor, input GymInput) (*models.Gym, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	if err := validateGymInput(input); err != nil {
		return nil, err
	}

	gym := &models.Gym{
		Name:       input.Name,
		BattleType: input.BattleType,
		League:     input.League,
	}
	if err := s.gymRepo.Create(ctx, gym); err != nil {
		if errors.Is(err, repositories.ErrGymNameConflict) {
			return nil, ErrGymNameConflict
		}
		return nil, fmt.Errorf("create gym: %w", err)
	}
	return gym, nil
}

func (s *gymService) GetGym(ctx context.Context, gymID int) (*models.Gym, error) {
	gym, err := s.gymRepo.GetByID(ctx, gymID)
	if err != nil {
		if errors.Is(err, repositories.ErrGymNotFound) {
			return nil, ErrGymNotFound
		}
		return nil, fmt.Errorf("get gym %d: %w", gymID, err)
	}
	s.populateGym(ctx, gym)
	return gym, nil
}

// populateGym дополняет зал публичным URL фото и профилем лидера.
// Ошибки загрузки лидера не фатальны для чтения зала.
func (s *gymService) populateGym(ctx context.Context, gym *models.Gym) {
	if gym.PhotoKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*gym.PhotoKey)
		gym.PhotoURL = &url
	}
	if gym.LeaderID != nil {
		leader, err := s.userRepo.GetByID(ctx, *gym.LeaderID)
		if err != nil {
			s.logger.Error("failed to load gym leader",
				slog.Int("gym_id", gym.ID), slog.Int("leader_id", *gym.LeaderID), slog.Any("error", err))
			return
		}
		leader.PasswordHash = ""
		gym.Leader = leader
	}
}

func (s *gymService) ListGyms(ctx context.Context, filter repositories.ListGymsFilter) ([]models.Gym, error) {
	gyms, err := s.gymRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list gyms: %w", err)
	}
	for i := range gyms {
		if gyms[i].PhotoKey != nil && s.uploader != nil {
			url := s.uploader.GetPublicURL(*gyms[i].PhotoKey)
			gyms[i].PhotoURL = &url
		}
	}
	return gyms, nil
}

func (s *gymService) UpdateGym(ctx context.Context, actor models.Actor, gymID int, input GymInput) (*models.Gym, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	if err := validateGymInput(input); err != nil {
		return nil, err
	}

	gym, err := s.GetGym(ctx, gymID)
	if err != nil {
		return nil, err
	}
	gym.Name = input.Name
	gym.BattleType = input.BattleType
	gym.League = input.League

	if err := s.gymRepo.Update(ctx, gym); err != nil {
		if errors.Is(err, repositories.ErrGymNameConflict) {
			return nil, ErrGymNameConflict
		}
		return nil, fmt.Errorf("update gym %d: %w", gymID, err)
	}
	return gym, nil
}

func (s *gymService) UploadPhoto(ctx context.Context, actor models.Actor, gymID int, contentType string, file io.Reader) (*models.Gym, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}

	gym, err := s.GetGym(ctx, gymID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("gyms/%d/photo-%s", gymID, uuid.NewString())
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("upload gym %d photo: %w", gymID, err)
	}

	oldKey := gym.PhotoKey
	if err := s.gymRepo.UpdatePhotoKey(ctx, gymID, &result.Key); err != nil {
		return nil, fmt.Errorf("store gym %d photo key: %w", gymID, err)
	}

	// Старое фото удаляется best-effort: осиротевший объект в бакете
	// дешевле потерянной ссылки.
	if oldKey != nil {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Error("failed to delete previous gym photo",
				slog.Int("gym_id", gymID), slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	gym.PhotoKey = &result.Key
	url := s.uploader.GetPublicURL(result.Key)
	gym.PhotoURL = &url
	return gym, nil
}

// SubmitChallenge регистрирует вызов лидеру зала. Вызов — заявка на
// очный бой, а не диспут; открытый диспут закрывает все pending-вызовы.
func (s *gymService) SubmitChallenge(ctx context.Context, actor models.Actor, gymID int) (*models.Challenge, error) {
	gym, err := s.GetGym(ctx, gymID)
	if err != nil {
		return nil, err
	}
	if gym.LeaderID == nil {
		return nil, ErrGymHasNoLeader
	}
	if *gym.LeaderID == actor.UserID {
		return nil, ErrChallengeOwnGym
	}

	challenge := &models.Challenge{
		GymID:        gymID,
		ChallengerID: actor.UserID,
		Status:       models.ChallengePending,
	}
	if err := s.challengeRepo.Create(ctx, challenge); err != nil {
		return nil, fmt.Errorf("submit challenge for gym %d: %w", gymID, err)
	}
	return challenge, nil
}

func (s *gymService) ListChallenges(ctx context.Context, gymID int) ([]models.Challenge, error) {
	challenges, err := s.challengeRepo.ListPendingByGym(ctx, gymID)
	if err != nil {
		return nil, fmt.Errorf("list challenges for gym %d: %w", gymID, err)
	}
	return challenges, nil
}

func (s *gymService) RecordDefense(ctx context.Context, actor models.Actor, gymID int, leaderWon bool) (*models.Gym, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}

	gym, err := s.GetGym(ctx, gymID)
	if err != nil {
		return nil, err
	}
	if gym.LeaderID == nil {
		return nil, ErrGymHasNoLeader
	}

	losses := 0
	if !leaderWon {
		losses = gym.ConsecutiveLosses + 1
	}

	if losses >= lossesBeforeDispute && !gym.InDispute {
		return s.vacateAfterLossStreak(ctx, actor, gym, losses)
	}

	if err := s.gymRepo.ApplyLeadership(ctx, nil, gymID, gym.LeaderID, gym.BattleType, gym.InDispute, losses); err != nil {
		return nil, fmt.Errorf("record defense for gym %d: %w", gymID, err)
	}
	gym.ConsecutiveLosses = losses

	return gym, nil
}

// vacateAfterLossStreak: третье подряд поражение заканчивает период
// лидерства. Порядок тот же, что при отречении: закрыть период, открыть
// диспут, пока лидер ещё записан (previous_leader_id), и только потом
// освободить кресло — занятое кресло заставило бы закрытие диспута
// свернуть на ветку защиты от гонки, и такой диспут было бы не выиграть.
func (s *gymService) vacateAfterLossStreak(ctx context.Context, actor models.Actor, gym *models.Gym, losses int) (*models.Gym, error) {
	s.logger.Info("loss streak reached, vacating gym and opening dispute",
		slog.Int("gym_id", gym.ID), slog.Int("losses", losses))

	if _, err := s.leadershipRepo.CloseOpenByGym(ctx, nil, gym.ID, time.Now()); err != nil {
		return nil, fmt.Errorf("close leadership period for gym %d: %w", gym.ID, err)
	}
	if _, err := s.disputeService.CreateDispute(ctx, actor, gym.ID, models.OriginThreeLosses); err != nil {
		return nil, fmt.Errorf("open loss-streak dispute for gym %d: %w", gym.ID, err)
	}
	if err := s.gymRepo.ApplyLeadership(ctx, nil, gym.ID, nil, gym.BattleType, true, 0); err != nil {
		return nil, fmt.Errorf("vacate gym %d after loss streak: %w", gym.ID, err)
	}

	gym.LeaderID = nil
	gym.Leader = nil
	gym.InDispute = true
	gym.ConsecutiveLosses = 0
	return gym, nil
}
