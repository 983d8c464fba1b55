package models

import (
	"time"

	"github.com/google/uuid"
)

// WinnerCorrection: запись аудита об исправлении победителя супервизором.
type WinnerCorrection struct {
	ID               uuid.UUID `json:"id" firestore:"-"`
	CompetitionID    string    `json:"competition_id" firestore:"competition_id"`
	MatchIndex       int       `json:"match_index" firestore:"match_index"`
	PreviousWinnerID *string   `json:"previous_winner_id,omitempty" firestore:"previous_winner_id"`
	NewWinnerID      string    `json:"new_winner_id" firestore:"new_winner_id"`
	Reason           string    `json:"reason" firestore:"reason"`
	EditedByRole     Role      `json:"edited_by_role" firestore:"edited_by_role"`
	CreatedAt        time.Time `json:"created_at" firestore:"created_at"`
}
