package ledger

import "sort"

type Standing struct {
	Rank   int    `json:"rank"`
	Player string `json:"player"`
	Points int    `json:"points"`
	Awards int    `json:"awards"`
}

// Leaderboard ranks non-excluded players by total points, highest first.
// Ties keep first-seen order and share a rank (1, 2, 2, 4).
func Leaderboard(l *Ledger) []Standing {
	if l == nil {
		return nil
	}
	standings := make([]Standing, 0, l.Len())
	for _, e := range l.Snapshot() {
		if e.Player.Excluded {
			continue
		}
		points := 0
		for _, a := range e.Awards {
			points += a.Points
		}
		standings = append(standings, Standing{Player: e.Player.Name, Points: points, Awards: len(e.Awards)})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Points > standings[j].Points
	})
	for i := range standings {
		if i > 0 && standings[i].Points == standings[i-1].Points {
			standings[i].Rank = standings[i-1].Rank
			continue
		}
		standings[i].Rank = i + 1
	}
	return standings
}
