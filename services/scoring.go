package services

import (
	"sort"

	"github.com/pogoleague/league-system/models"
)

// Веса очков по умолчанию: победа 3, ничья 1 каждому.
const (
	DefaultWinPoints = 3
	DefaultTiePoints = 1
)

type StandingEntry struct {
	UserID int `json:"user_id"`
	Points int `json:"points"`
}

// ComputeStandings считает очки участников по подтверждённым
// результатам. Все участники предзасеяны нулём: игрок без единого
// результата занимает последнее место, а не исчезает из таблицы.
// Детерминированно для одного и того же набора результатов.
func ComputeStandings(participants []models.DisputeParticipant, confirmed []models.MatchResult, winPoints, tiePoints int) map[int]int {
	standings := make(map[int]int, len(participants))
	for _, p := range participants {
		standings[p.UserID] = 0
	}

	for _, res := range confirmed {
		if res.Status != models.ResultConfirmed {
			continue
		}
		if res.Tie {
			if _, ok := standings[res.WinnerID]; ok {
				standings[res.WinnerID] += tiePoints
			}
			if _, ok := standings[res.LoserID]; ok {
				standings[res.LoserID] += tiePoints
			}
			continue
		}
		// Очки только победителю; проигравший остаётся при своих.
		if _, ok := standings[res.WinnerID]; ok {
			standings[res.WinnerID] += winPoints
		}
	}

	return standings
}

// TopScorers возвращает максимум очков и всех, кто его набрал,
// в порядке возрастания userID для стабильности.
func TopScorers(standings map[int]int) (top []int, max int) {
	if len(standings) == 0 {
		return nil, 0
	}
	first := true
	for _, points := range standings {
		if first || points > max {
			max = points
			first = false
		}
	}
	for userID, points := range standings {
		if points == max {
			top = append(top, userID)
		}
	}
	sort.Ints(top)
	return top, max
}

// SortedStandings разворачивает карту очков в отсортированный список:
// больше очков выше, при равенстве — меньший userID выше.
func SortedStandings(standings map[int]int) []StandingEntry {
	entries := make([]StandingEntry, 0, len(standings))
	for userID, points := range standings {
		entries = append(entries, StandingEntry{UserID: userID, Points: points})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}
