package brackets

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Dosada05/judo-pairings/models"
)

const DefaultCorrectionReason = "winner corrected by supervisor"

var (
	ErrMatchIndexOutOfRange = errors.New("match index out of range")
	ErrNoOpponent           = errors.New("no opponent")
	ErrNotParticipant       = errors.New("winner is not a participant of the match")
	ErrMatchNotPending      = errors.New("match is already finished")
	ErrMatchNotFinished     = errors.New("match is not finished yet")
)

type EffectKind string

const (
	EffectPersistMatch     EffectKind = "persist_match"
	EffectRecordCorrection EffectKind = "record_correction"
)

// Effect describes a write the caller has to perform for a resolution.
type Effect struct {
	Kind             EffectKind `json:"kind"`
	MatchIndex       int        `json:"match_index"`
	WinnerID         string     `json:"winner_id,omitempty"`
	PreviousWinnerID *string    `json:"previous_winner_id,omitempty"`
	Reason           string     `json:"reason,omitempty"`
}

// Resolution is the new match list after a winner decision.
// Changed lists indices whose records differ from the input, in ascending order.
// Dependents lists matches fed by the resolved match through from1/from2.
type Resolution struct {
	Matches    []models.Match
	Changed    []int
	Effects    []Effect
	Dependents []int
}

// SetWinner confirms the first result of a pending match and advances
// participants into pending downstream matches: the winner into main-stage
// matches, the loser into bronze-stage matches.
func SetWinner(matches []models.Match, idx int, winnerID string) (Resolution, error) {
	if idx < 0 || idx >= len(matches) {
		return Resolution{}, fmt.Errorf("%w: %d", ErrMatchIndexOutOfRange, idx)
	}
	target := matches[idx]
	// Bye закрывается при генерации, подтверждать его нечего.
	if target.IsBye() {
		return Resolution{}, fmt.Errorf("match %d: %w", idx, ErrNoOpponent)
	}
	if target.IsFinished() {
		return Resolution{}, fmt.Errorf("match %d: %w", idx, ErrMatchNotPending)
	}

	decision, err := EvaluateGate(matches, idx)
	if err != nil {
		return Resolution{}, err
	}
	if !decision.CanConfirm {
		return Resolution{}, &GateError{MatchIndex: idx, Reason: decision.BlockReason}
	}
	if target.Athlete1ID == nil || target.Athlete2ID == nil {
		return Resolution{}, fmt.Errorf("match %d: %w", idx, ErrNoOpponent)
	}
	if !target.HasParticipant(winnerID) {
		return Resolution{}, fmt.Errorf("match %d, athlete %q: %w", idx, winnerID, ErrNotParticipant)
	}

	next := models.CloneMatches(matches)
	m := &next[idx]
	m.Status = models.MatchStatusFinished
	m.WinnerID = models.StringPtr(winnerID)
	loserID, _ := m.Loser()

	res := Resolution{Matches: next, Changed: []int{idx}}
	res.Effects = append(res.Effects, Effect{Kind: EffectPersistMatch, MatchIndex: idx, WinnerID: winnerID})

	for _, d := range dependentsOf(next, idx) {
		res.Dependents = append(res.Dependents, d.index)
		dm := &next[d.index]
		if dm.IsFinished() {
			continue
		}
		advancing := winnerID
		if dm.Stage == models.StageBronze {
			advancing = loserID
		}
		if d.slot == 1 {
			dm.Athlete1ID = models.StringPtr(advancing)
		} else {
			dm.Athlete2ID = models.StringPtr(advancing)
		}
		res.Changed = append(res.Changed, d.index)
		res.Effects = append(res.Effects, Effect{Kind: EffectPersistMatch, MatchIndex: d.index})
	}
	sort.Ints(res.Changed)

	return res, nil
}

// EditWinner overwrites the winner of a finished match. Gating is not
// re-evaluated and downstream matches are left as they are; their indices are
// reported in Dependents.
func EditWinner(matches []models.Match, idx int, winnerID, reason string) (Resolution, error) {
	if idx < 0 || idx >= len(matches) {
		return Resolution{}, fmt.Errorf("%w: %d", ErrMatchIndexOutOfRange, idx)
	}
	target := matches[idx]
	if !target.IsFinished() {
		return Resolution{}, fmt.Errorf("match %d: %w", idx, ErrMatchNotFinished)
	}
	if !target.HasParticipant(winnerID) {
		return Resolution{}, fmt.Errorf("match %d, athlete %q: %w", idx, winnerID, ErrNotParticipant)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCorrectionReason
	}

	next := models.CloneMatches(matches)
	m := &next[idx]
	previous := m.WinnerID
	m.WinnerID = models.StringPtr(winnerID)

	res := Resolution{Matches: next, Changed: []int{idx}}
	res.Effects = []Effect{
		{Kind: EffectPersistMatch, MatchIndex: idx, WinnerID: winnerID},
		{Kind: EffectRecordCorrection, MatchIndex: idx, WinnerID: winnerID, PreviousWinnerID: previous, Reason: reason},
	}
	for _, d := range dependentsOf(next, idx) {
		res.Dependents = append(res.Dependents, d.index)
	}
	return res, nil
}

type dependent struct {
	index int
	slot  int
}

func dependentsOf(matches []models.Match, idx int) []dependent {
	var out []dependent
	for i := range matches {
		m := &matches[i]
		if m.From1 != nil && *m.From1 == idx {
			out = append(out, dependent{index: i, slot: 1})
		}
		if m.From2 != nil && *m.From2 == idx {
			out = append(out, dependent{index: i, slot: 2})
		}
	}
	return out
}
