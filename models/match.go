package models

import "time"

type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusFinished MatchStatus = "finished"
)

type MatchStage string

const (
	StageMain   MatchStage = "main"
	StageBronze MatchStage = "bronze"
)

// Match: одна пара в сетке. Index является ключом записи внутри соревнования.
type Match struct {
	Index      int         `json:"index" firestore:"index"`
	Athlete1ID *string     `json:"athlete1_id" firestore:"athlete1_id"`
	Athlete2ID *string     `json:"athlete2_id" firestore:"athlete2_id"` // nil означает bye
	Round      int         `json:"round" firestore:"round"`
	Stage      MatchStage  `json:"stage" firestore:"stage"`
	Status     MatchStatus `json:"status" firestore:"status"`
	WinnerID   *string     `json:"winner_id,omitempty" firestore:"winner_id"`
	Mat        int         `json:"mat" firestore:"mat"`
	From1      *int        `json:"from1,omitempty" firestore:"from1"`
	From2      *int        `json:"from2,omitempty" firestore:"from2"`
	Group      GroupKey    `json:"group" firestore:"group"`
	GroupIndex int         `json:"group_index" firestore:"group_index"`
	Version    int64       `json:"version" firestore:"version"`
	UpdatedAt  time.Time   `json:"updated_at" firestore:"updated_at"`
}

func (m *Match) IsFinished() bool {
	return m.Status == MatchStatusFinished
}

// IsBye reports a match with no opponent for athlete 1 and no source match
// that could still provide one.
func (m *Match) IsBye() bool {
	return m.Athlete1ID != nil && m.Athlete2ID == nil && m.From2 == nil
}

func (m *Match) HasParticipant(athleteID string) bool {
	if athleteID == "" {
		return false
	}
	return (m.Athlete1ID != nil && *m.Athlete1ID == athleteID) ||
		(m.Athlete2ID != nil && *m.Athlete2ID == athleteID)
}

// Loser returns the participant that is not the recorded winner.
func (m *Match) Loser() (string, bool) {
	if m.WinnerID == nil || m.Athlete1ID == nil || m.Athlete2ID == nil {
		return "", false
	}
	switch *m.WinnerID {
	case *m.Athlete1ID:
		return *m.Athlete2ID, true
	case *m.Athlete2ID:
		return *m.Athlete1ID, true
	}
	return "", false
}

// Pairings: полный упорядоченный список матчей соревнования.
type Pairings struct {
	CompetitionID string  `json:"competition_id"`
	Matches       []Match `json:"matches"`
}

// Clone returns a deep copy so that callers can mutate freely.
func (p *Pairings) Clone() *Pairings {
	if p == nil {
		return nil
	}
	return &Pairings{CompetitionID: p.CompetitionID, Matches: CloneMatches(p.Matches)}
}

func CloneMatches(matches []Match) []Match {
	out := make([]Match, len(matches))
	for i, m := range matches {
		out[i] = m
		out[i].Athlete1ID = cloneString(m.Athlete1ID)
		out[i].Athlete2ID = cloneString(m.Athlete2ID)
		out[i].WinnerID = cloneString(m.WinnerID)
		out[i].From1 = cloneInt(m.From1)
		out[i].From2 = cloneInt(m.From2)
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

// StringPtr and IntPtr are small helpers for optional fields.
func StringPtr(s string) *string { return &s }

func IntPtr(i int) *int { return &i }
