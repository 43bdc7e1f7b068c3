package models

import "time"

type Player struct {
	Username  string
	FirstSeen time.Time
	LastSeen  time.Time
}

// Match is one game between two players. Winner and Reason stay empty
// while the match is running.
type Match struct {
	ID         string
	PlayerOne  string
	PlayerTwo  string
	Winner     string
	Reason     string // "win", "forfeit" or "shutdown"
	StartedAt  time.Time
	FinishedAt time.Time
}

func (m *Match) Finished() bool {
	return !m.FinishedAt.IsZero()
}

// Opponent returns the other player, or "" if username is not in the match.
func (m *Match) Opponent(username string) string {
	switch username {
	case m.PlayerOne:
		return m.PlayerTwo
	case m.PlayerTwo:
		return m.PlayerOne
	}
	return ""
}

type Stats struct {
	Players         int
	MatchesPlayed   int
	MatchesFinished int
}
