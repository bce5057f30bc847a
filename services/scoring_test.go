package services

import (
	"testing"

	"github.com/pogoleague/league-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participantsFor(userIDs ...int) []models.DisputeParticipant {
	participants := make([]models.DisputeParticipant, 0, len(userIDs))
	for _, id := range userIDs {
		participants = append(participants, models.DisputeParticipant{UserID: id, ChosenType: "fire"})
	}
	return participants
}

func confirmedWin(winnerID, loserID int) models.MatchResult {
	return models.MatchResult{WinnerID: winnerID, LoserID: loserID, Status: models.ResultConfirmed}
}

func confirmedTie(a, b int) models.MatchResult {
	return models.MatchResult{WinnerID: a, LoserID: b, Tie: true, Status: models.ResultConfirmed}
}

func TestComputeStandings(t *testing.T) {
	tests := []struct {
		name         string
		participants []models.DisputeParticipant
		results      []models.MatchResult
		want         map[int]int
	}{
		{
			name:         "участники без результатов засеяны нулём",
			participants: participantsFor(1, 2, 3),
			results:      nil,
			want:         map[int]int{1: 0, 2: 0, 3: 0},
		},
		{
			name:         "победа даёт очки только победителю",
			participants: participantsFor(1, 2),
			results:      []models.MatchResult{confirmedWin(1, 2)},
			want:         map[int]int{1: 3, 2: 0},
		},
		{
			name:         "ничья даёт очки обоим",
			participants: participantsFor(1, 2),
			results:      []models.MatchResult{confirmedTie(1, 2)},
			want:         map[int]int{1: 1, 2: 1},
		},
		{
			name:         "pending-результаты не учитываются",
			participants: participantsFor(1, 2),
			results: []models.MatchResult{
				{WinnerID: 1, LoserID: 2, Status: models.ResultPending},
			},
			want: map[int]int{1: 0, 2: 0},
		},
		{
			name:         "результат с чужим участником игнорируется",
			participants: participantsFor(1, 2),
			results:      []models.MatchResult{confirmedWin(7, 2)},
			want:         map[int]int{1: 0, 2: 0},
		},
		{
			name:         "смешанный набор",
			participants: participantsFor(1, 2, 3, 4),
			results: []models.MatchResult{
				confirmedWin(1, 2),
				confirmedWin(1, 3),
				confirmedTie(2, 3),
				confirmedWin(4, 2),
			},
			want: map[int]int{1: 6, 2: 1, 3: 1, 4: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStandings(tt.participants, tt.results, DefaultWinPoints, DefaultTiePoints)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeStandingsDeterministic(t *testing.T) {
	participants := participantsFor(1, 2, 3)
	results := []models.MatchResult{confirmedWin(2, 1), confirmedTie(1, 3)}

	first := ComputeStandings(participants, results, DefaultWinPoints, DefaultTiePoints)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeStandings(participants, results, DefaultWinPoints, DefaultTiePoints))
	}
}

func TestTopScorers(t *testing.T) {
	t.Run("единственный лидер", func(t *testing.T) {
		top, max := TopScorers(map[int]int{1: 6, 2: 3, 3: 0})
		assert.Equal(t, []int{1}, top)
		assert.Equal(t, 6, max)
	})

	t.Run("ничья наверху возвращает всех лидеров по возрастанию", func(t *testing.T) {
		top, max := TopScorers(map[int]int{4: 5, 1: 5, 2: 3, 3: 1})
		assert.Equal(t, []int{1, 4}, top)
		assert.Equal(t, 5, max)
	})

	t.Run("все по нулям", func(t *testing.T) {
		top, max := TopScorers(map[int]int{1: 0, 2: 0})
		assert.Equal(t, []int{1, 2}, top)
		assert.Equal(t, 0, max)
	})

	t.Run("пустая таблица", func(t *testing.T) {
		top, max := TopScorers(nil)
		assert.Nil(t, top)
		assert.Equal(t, 0, max)
	})
}

func TestSortedStandings(t *testing.T) {
	entries := SortedStandings(map[int]int{3: 1, 1: 5, 2: 5, 4: 0})
	require.Len(t, entries, 4)

	assert.Equal(t, []StandingEntry{
		{UserID: 1, Points: 5},
		{UserID: 2, Points: 5},
		{UserID: 3, Points: 1},
		{UserID: 4, Points: 0},
	}, entries)
}
