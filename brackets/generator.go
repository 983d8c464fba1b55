package brackets

import (
	"context"

	"github.com/Dosada05/judo-pairings/models"
)

const (
	DefaultMatCount = 3
	MaxMatCount     = 3
)

// Entry is one registered athlete in one category/gender/weight group.
type Entry struct {
	AthleteID string          `json:"athlete_id"`
	Group     models.GroupKey `json:"group"`
}

type GenerateBracketParams struct {
	CompetitionID string
	Entries       []Entry
	MatCount      int
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]models.Match, error)

	GetName() string
}
