package brackets

import (
	"errors"
	"fmt"

	"github.com/Dosada05/judo-pairings/models"
)

const (
	ReasonPreviousRoundIncomplete = "previous round incomplete"
	ReasonWaitingSource1          = "waiting on source match 1"
	ReasonWaitingSource2          = "waiting on source match 2"
)

var ErrMatchBlocked = errors.New("match cannot be confirmed yet")

// GateError carries the block reason of a match that is not confirmable.
type GateError struct {
	MatchIndex int
	Reason     string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("match %d: %s", e.MatchIndex, e.Reason)
}

func (e *GateError) Unwrap() error {
	return ErrMatchBlocked
}

type GateDecision struct {
	CanConfirm  bool   `json:"can_confirm"`
	BlockReason string `json:"block_reason,omitempty"`
}

func blocked(reason string) GateDecision {
	return GateDecision{CanConfirm: false, BlockReason: reason}
}

// EvaluateGate decides whether matches[idx] may be confirmed. It only looks at
// prerequisites; the match's own status and byes are the caller's concern.
func EvaluateGate(matches []models.Match, idx int) (GateDecision, error) {
	if idx < 0 || idx >= len(matches) {
		return GateDecision{}, fmt.Errorf("%w: %d", ErrMatchIndexOutOfRange, idx)
	}
	target := &matches[idx]

	if target.Round > 1 {
		for i := range matches {
			m := &matches[i]
			if m.Stage != target.Stage || m.Group != target.Group || m.Round != target.Round-1 {
				continue
			}
			if !m.IsFinished() {
				return blocked(ReasonPreviousRoundIncomplete), nil
			}
		}
	}

	if reason, ok := checkSource(matches, target.From1, 1); !ok {
		return blocked(reason), nil
	}
	if reason, ok := checkSource(matches, target.From2, 2); !ok {
		return blocked(reason), nil
	}

	return GateDecision{CanConfirm: true}, nil
}

func checkSource(matches []models.Match, from *int, slot int) (string, bool) {
	if from == nil {
		return "", true
	}
	if *from < 0 || *from >= len(matches) {
		return fmt.Sprintf("source match %d not found", slot), false
	}
	if matches[*from].IsFinished() {
		return "", true
	}
	if slot == 1 {
		return ReasonWaitingSource1, false
	}
	return ReasonWaitingSource2, false
}
