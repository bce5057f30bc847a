package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/pogoleague/league-system/models"
	"github.com/pogoleague/league-system/repositories"
)

// In-memory фейки репозиториев: сервисы зависят только от интерфейсов,
// поэтому жизненный цикл проверяется целиком без базы.

type fakeGymRepo struct {
	gyms   map[int]*models.Gym
	nextID int
}

func newFakeGymRepo() *fakeGymRepo {
	return &fakeGymRepo{gyms: make(map[int]*models.Gym), nextID: 1}
}

func (f *fakeGymRepo) Create(_ context.Context, g *models.Gym) error {
	for _, existing := range f.gyms {
		if existing.Name == g.Name && existing.League == g.League {
			return repositories.ErrGymNameConflict
		}
	}
	g.ID = f.nextID
	f.nextID++
	g.CreatedAt = time.Now()
	stored := *g
	f.gyms[g.ID] = &stored
	return nil
}

func (f *fakeGymRepo) GetByID(_ context.Context, id int) (*models.Gym, error) {
	g, ok := f.gyms[id]
	if !ok {
		return nil, repositories.ErrGymNotFound
	}
	copied := *g
	return &copied, nil
}

func (f *fakeGymRepo) List(_ context.Context, filter repositories.ListGymsFilter) ([]models.Gym, error) {
	gyms := make([]models.Gym, 0)
	for _, g := range f.gyms {
		if filter.League != nil && g.League != *filter.League {
			continue
		}
		if filter.InDispute != nil && g.InDispute != *filter.InDispute {
			continue
		}
		gyms = append(gyms, *g)
	}
	return gyms, nil
}

func (f *fakeGymRepo) Update(_ context.Context, g *models.Gym) error {
	stored, ok := f.gyms[g.ID]
	if !ok {
		return repositories.ErrGymNotFound
	}
	stored.Name = g.Name
	stored.BattleType = g.BattleType
	stored.League = g.League
	return nil
}

func (f *fakeGymRepo) ApplyLeadership(_ context.Context, _ repositories.SQLExecutor, id int, leaderID *int, battleType string, inDispute bool, consecutiveLosses int) error {
	g, ok := f.gyms[id]
	if !ok {
		return repositories.ErrGymNotFound
	}
	g.LeaderID = leaderID
	g.BattleType = battleType
	g.InDispute = inDispute
	g.ConsecutiveLosses = consecutiveLosses
	return nil
}

func (f *fakeGymRepo) SetInDispute(_ context.Context, _ repositories.SQLExecutor, id int, inDispute bool) error {
	g, ok := f.gyms[id]
	if !ok {
		return repositories.ErrGymNotFound
	}
	g.InDispute = inDispute
	return nil
}

func (f *fakeGymRepo) UpdatePhotoKey(_ context.Context, id int, photoKey *string) error {
	g, ok := f.gyms[id]
	if !ok {
		return repositories.ErrGymNotFound
	}
	g.PhotoKey = photoKey
	return nil
}

type fakeDisputeRepo struct {
	disputes map[int]*models.Dispute
	nextID   int
}

func newFakeDisputeRepo() *fakeDisputeRepo {
	return &fakeDisputeRepo{disputes: make(map[int]*models.Dispute), nextID: 1}
}

func (f *fakeDisputeRepo) Create(_ context.Context, d *models.Dispute) error {
	// Имитация частичного уникального индекса disputes_one_active_per_gym.
	for _, existing := range f.disputes {
		if existing.GymID == d.GymID && existing.Active() {
			return repositories.ErrDisputeAlreadyActive
		}
	}
	d.ID = f.nextID
	f.nextID++
	d.CreatedAt = time.Now()
	stored := *d
	f.disputes[d.ID] = &stored
	return nil
}

func (f *fakeDisputeRepo) GetByID(_ context.Context, id int) (*models.Dispute, error) {
	d, ok := f.disputes[id]
	if !ok {
		return nil, repositories.ErrDisputeNotFound
	}
	copied := *d
	return &copied, nil
}

func (f *fakeDisputeRepo) GetActiveByGym(_ context.Context, gymID int) (*models.Dispute, error) {
	for _, d := range f.disputes {
		if d.GymID == gymID && d.Active() {
			copied := *d
			return &copied, nil
		}
	}
	return nil, repositories.ErrDisputeNotFound
}

func (f *fakeDisputeRepo) MarkBattling(_ context.Context, id int, startedAt time.Time) error {
	d, ok := f.disputes[id]
	if !ok || d.Status != models.DisputeRegistration {
		return repositories.ErrDisputeNotFound
	}
	d.Status = models.DisputeBattling
	d.StartedAt = &startedAt
	return nil
}

func (f *fakeDisputeRepo) Finalize(_ context.Context, _ repositories.SQLExecutor, id int, winnerID *int, tieAtTop bool) error {
	d, ok := f.disputes[id]
	if !ok {
		return repositories.ErrDisputeNotFound
	}
	d.Status = models.DisputeFinalized
	d.WinnerID = winnerID
	d.FinalizationApplied = true
	d.TieAtTop = tieAtTop
	return nil
}

func (f *fakeDisputeRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := f.disputes[id]; !ok {
		return repositories.ErrDisputeNotFound
	}
	delete(f.disputes, id)
	return nil
}

type fakeParticipantRepo struct {
	participants map[int]*models.DisputeParticipant
	nextID       int
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{participants: make(map[int]*models.DisputeParticipant), nextID: 1}
}

func (f *fakeParticipantRepo) Create(_ context.Context, p *models.DisputeParticipant) error {
	for _, existing := range f.participants {
		if existing.DisputeID == p.DisputeID && existing.UserID == p.UserID {
			return repositories.ErrParticipantAlreadyInList
		}
	}
	p.ID = f.nextID
	f.nextID++
	p.CreatedAt = time.Now()
	stored := *p
	f.participants[p.ID] = &stored
	return nil
}

func (f *fakeParticipantRepo) GetByID(_ context.Context, id int) (*models.DisputeParticipant, error) {
	p, ok := f.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeParticipantRepo) GetByDisputeAndUser(_ context.Context, disputeID, userID int) (*models.DisputeParticipant, error) {
	for _, p := range f.participants {
		if p.DisputeID == disputeID && p.UserID == userID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (f *fakeParticipantRepo) ListByDispute(_ context.Context, disputeID int, includeRemoved bool) ([]models.DisputeParticipant, error) {
	participants := make([]models.DisputeParticipant, 0)
	for id := 1; id < f.nextID; id++ {
		p, ok := f.participants[id]
		if !ok || p.DisputeID != disputeID {
			continue
		}
		if !includeRemoved && p.Removed {
			continue
		}
		participants = append(participants, *p)
	}
	return participants, nil
}

func (f *fakeParticipantRepo) SetChosenType(_ context.Context, id int, chosenType string) error {
	p, ok := f.participants[id]
	if !ok || p.Removed {
		return repositories.ErrParticipantNotFound
	}
	p.ChosenType = chosenType
	return nil
}

func (f *fakeParticipantRepo) MarkRemoved(_ context.Context, _ repositories.SQLExecutor, id int) error {
	p, ok := f.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Removed = true
	return nil
}

func (f *fakeParticipantRepo) RemoveWithoutType(_ context.Context, _ repositories.SQLExecutor, disputeID int) (int64, error) {
	var removed int64
	for _, p := range f.participants {
		if p.DisputeID == disputeID && p.ChosenType == "" && !p.Removed {
			p.Removed = true
			removed++
		}
	}
	return removed, nil
}

func (f *fakeParticipantRepo) DeleteByDispute(_ context.Context, _ repositories.SQLExecutor, disputeID int) error {
	for id, p := range f.participants {
		if p.DisputeID == disputeID {
			delete(f.participants, id)
		}
	}
	return nil
}

type fakeResultRepo struct {
	results map[int]*models.MatchResult
	nextID  int
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{results: make(map[int]*models.MatchResult), nextID: 1}
}

func (f *fakeResultRepo) Create(_ context.Context, m *models.MatchResult) error {
	m.ID = f.nextID
	f.nextID++
	m.CreatedAt = time.Now()
	stored := *m
	f.results[m.ID] = &stored
	return nil
}

func (f *fakeResultRepo) GetByID(_ context.Context, id int) (*models.MatchResult, error) {
	m, ok := f.results[id]
	if !ok {
		return nil, repositories.ErrResultNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeResultRepo) ListByDispute(_ context.Context, disputeID int, status *models.ResultStatus) ([]models.MatchResult, error) {
	results := make([]models.MatchResult, 0)
	for id := 1; id < f.nextID; id++ {
		m, ok := f.results[id]
		if !ok || m.DisputeID != disputeID {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		results = append(results, *m)
	}
	return results, nil
}

func (f *fakeResultRepo) Confirm(_ context.Context, _ repositories.SQLExecutor, id int) error {
	m, ok := f.results[id]
	if !ok || m.Status != models.ResultPending {
		return repositories.ErrResultNotFound
	}
	m.Status = models.ResultConfirmed
	return nil
}

func (f *fakeResultRepo) DeleteByDispute(_ context.Context, _ repositories.SQLExecutor, disputeID int) error {
	for id, m := range f.results {
		if m.DisputeID == disputeID {
			delete(f.results, id)
		}
	}
	return nil
}

type fakeLeadershipRepo struct {
	periods map[int]*models.LeadershipPeriod
	nextID  int
}

func newFakeLeadershipRepo() *fakeLeadershipRepo {
	return &fakeLeadershipRepo{periods: make(map[int]*models.LeadershipPeriod), nextID: 1}
}

func (f *fakeLeadershipRepo) Open(_ context.Context, _ repositories.SQLExecutor, p *models.LeadershipPeriod) error {
	p.ID = f.nextID
	f.nextID++
	stored := *p
	f.periods[p.ID] = &stored
	return nil
}

func (f *fakeLeadershipRepo) ListOpenByGym(_ context.Context, gymID int) ([]models.LeadershipPeriod, error) {
	periods := make([]models.LeadershipPeriod, 0)
	for _, p := range f.periods {
		if p.GymID == gymID && p.EndedAt == nil {
			periods = append(periods, *p)
		}
	}
	return periods, nil
}

func (f *fakeLeadershipRepo) CloseOpenByGym(_ context.Context, _ repositories.SQLExecutor, gymID int, endedAt time.Time) (int64, error) {
	var closed int64
	for _, p := range f.periods {
		if p.GymID == gymID && p.EndedAt == nil {
			ended := endedAt
			p.EndedAt = &ended
			closed++
		}
	}
	return closed, nil
}

func (f *fakeLeadershipRepo) ListByGym(_ context.Context, gymID int, limit int) ([]models.LeadershipPeriod, error) {
	periods := make([]models.LeadershipPeriod, 0)
	for id := f.nextID - 1; id >= 1; id-- {
		p, ok := f.periods[id]
		if !ok || p.GymID != gymID {
			continue
		}
		periods = append(periods, *p)
		if limit > 0 && len(periods) >= limit {
			break
		}
	}
	return periods, nil
}

type fakeChallengeRepo struct {
	challenges map[int]*models.Challenge
	nextID     int
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{challenges: make(map[int]*models.Challenge), nextID: 1}
}

func (f *fakeChallengeRepo) Create(_ context.Context, c *models.Challenge) error {
	c.ID = f.nextID
	f.nextID++
	c.CreatedAt = time.Now()
	stored := *c
	f.challenges[c.ID] = &stored
	return nil
}

func (f *fakeChallengeRepo) ListPendingByGym(_ context.Context, gymID int) ([]models.Challenge, error) {
	challenges := make([]models.Challenge, 0)
	for id := 1; id < f.nextID; id++ {
		c, ok := f.challenges[id]
		if ok && c.GymID == gymID && c.Status == models.ChallengePending {
			challenges = append(challenges, *c)
		}
	}
	return challenges, nil
}

func (f *fakeChallengeRepo) CloseAllPendingByGym(_ context.Context, _ repositories.SQLExecutor, gymID int) (int64, error) {
	var closed int64
	for _, c := range f.challenges {
		if c.GymID == gymID && c.Status == models.ChallengePending {
			c.Status = models.ChallengeClosed
			closed++
		}
	}
	return closed, nil
}

type fakeSeasonRepo struct {
	current *models.Season
}

func (f *fakeSeasonRepo) GetCurrent(_ context.Context) (*models.Season, error) {
	if f.current == nil {
		return nil, repositories.ErrSeasonNotFound
	}
	copied := *f.current
	return &copied, nil
}

func (f *fakeSeasonRepo) GetByID(_ context.Context, id int) (*models.Season, error) {
	if f.current != nil && f.current.ID == id {
		copied := *f.current
		return &copied, nil
	}
	return nil, repositories.ErrSeasonNotFound
}

type fakeJobRepo struct {
	jobs   map[int]*models.ScheduledJob
	nextID int
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[int]*models.ScheduledJob), nextID: 1}
}

func (f *fakeJobRepo) Create(_ context.Context, j *models.ScheduledJob) error {
	j.ID = f.nextID
	f.nextID++
	j.CreatedAt = time.Now()
	stored := *j
	f.jobs[j.ID] = &stored
	return nil
}

func (f *fakeJobRepo) GetByID(_ context.Context, id int) (*models.ScheduledJob, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, repositories.ErrJobNotFound
	}
	copied := *j
	return &copied, nil
}

func (f *fakeJobRepo) ListDue(_ context.Context, now time.Time, limit int) ([]models.ScheduledJob, error) {
	due := make([]models.ScheduledJob, 0)
	for id := 1; id < f.nextID; id++ {
		j, ok := f.jobs[id]
		if !ok || j.Status != models.JobPending || j.FireAt.After(now) {
			continue
		}
		due = append(due, *j)
		if limit > 0 && len(due) >= limit {
			break
		}
	}
	return due, nil
}

func (f *fakeJobRepo) ListByGym(_ context.Context, gymID int) ([]models.ScheduledJob, error) {
	jobs := make([]models.ScheduledJob, 0)
	for id := 1; id < f.nextID; id++ {
		if j, ok := f.jobs[id]; ok && j.GymID == gymID {
			jobs = append(jobs, *j)
		}
	}
	return jobs, nil
}

func (f *fakeJobRepo) MarkExecuted(_ context.Context, _ repositories.SQLExecutor, id int, executedAt time.Time) error {
	j, ok := f.jobs[id]
	if !ok || j.Status != models.JobPending {
		return repositories.ErrJobNotFound
	}
	j.Status = models.JobExecuted
	j.ExecutedAt = &executedAt
	return nil
}

func (f *fakeJobRepo) MarkError(_ context.Context, id int, message string) error {
	j, ok := f.jobs[id]
	if !ok || j.Status != models.JobPending {
		return repositories.ErrJobNotFound
	}
	j.Status = models.JobError
	j.LastError = &message
	return nil
}

func (f *fakeJobRepo) FinalizeMatching(_ context.Context, gymID int, action models.JobAction, disputeID *int, executedAt time.Time) (int64, error) {
	var finalized int64
	for _, j := range f.jobs {
		if j.GymID != gymID || j.Action != action || j.Status != models.JobPending {
			continue
		}
		if disputeID != nil && j.DisputeID != nil && *j.DisputeID != *disputeID {
			continue
		}
		j.Status = models.JobExecuted
		executed := executedAt
		j.ExecutedAt = &executed
		finalized++
	}
	return finalized, nil
}

func (f *fakeJobRepo) CancelPendingByGym(_ context.Context, gymID int) (int64, error) {
	var cancelled int64
	for _, j := range f.jobs {
		if j.GymID == gymID && j.Status == models.JobPending {
			j.Status = models.JobCancelled
			cancelled++
		}
	}
	return cancelled, nil
}

// fakeHub записывает разосланные события вместо websocket-рассылки.
type fakeHub struct {
	events []fakeEvent
}

type fakeEvent struct {
	Room    string
	Message interface{}
}

func (f *fakeHub) BroadcastToRoom(roomID string, message interface{}) {
	f.events = append(f.events, fakeEvent{Room: roomID, Message: message})
}

// testEnv связывает сервисы с фейковыми репозиториями так же, как
// cmd/main.go — с постгресовыми.
type testEnv struct {
	gymRepo         *fakeGymRepo
	disputeRepo     *fakeDisputeRepo
	participantRepo *fakeParticipantRepo
	resultRepo      *fakeResultRepo
	leadershipRepo  *fakeLeadershipRepo
	challengeRepo   *fakeChallengeRepo
	seasonRepo      *fakeSeasonRepo
	jobRepo         *fakeJobRepo
	hub             *fakeHub

	disputes DisputeService
	jobs     JobService
}

func newTestEnv(windows DisputeWindows) *testEnv {
	env := &testEnv{
		gymRepo:         newFakeGymRepo(),
		disputeRepo:     newFakeDisputeRepo(),
		participantRepo: newFakeParticipantRepo(),
		resultRepo:      newFakeResultRepo(),
		leadershipRepo:  newFakeLeadershipRepo(),
		challengeRepo:   newFakeChallengeRepo(),
		seasonRepo:      &fakeSeasonRepo{},
		jobRepo:         newFakeJobRepo(),
		hub:             &fakeHub{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.jobs = NewJobService(env.jobRepo, env.disputeRepo, logger)
	env.disputes = NewDisputeService(
		env.gymRepo,
		env.disputeRepo,
		env.participantRepo,
		env.resultRepo,
		env.leadershipRepo,
		env.challengeRepo,
		env.seasonRepo,
		env.jobs,
		env.hub,
		logger,
		windows,
	)
	env.jobs.SetDispatcher(env.disputes)
	return env
}

func (e *testEnv) addGym(name string) *models.Gym {
	gym := &models.Gym{Name: name, BattleType: "fire", League: "north"}
	_ = e.gymRepo.Create(context.Background(), gym)
	return gym
}

var (
	adminActor = models.Actor{UserID: 99, Role: models.RoleAdmin}

	playerActor = func(id int) models.Actor {
		return models.Actor{UserID: id, Role: models.RolePlayer}
	}
)
