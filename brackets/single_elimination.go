package brackets

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/Dosada05/judo-pairings/models"
)

var (
	ErrNotEnoughAthletes = errors.New("not enough athletes to generate pairings (minimum 2 in one group)")
	ErrInvalidEntry      = errors.New("invalid pairing entry")
	ErrInvalidMatCount   = errors.New("mat count must be between 1 and 3")
)

type node struct {
	athleteID   *string
	sourceMatch int
}

type groupEntries struct {
	key      models.GroupKey
	athletes []string
}

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket builds one elimination bracket per group, plus a bronze match
// between the semi-final losers when both semi-finals are real matches.
// Athletes are seeded in the order given.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]models.Match, error) {
	matCount := params.MatCount
	if matCount == 0 {
		matCount = DefaultMatCount
	}
	if matCount < 1 || matCount > MaxMatCount {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMatCount, matCount)
	}

	groups, err := groupEntriesInOrder(params.Entries)
	if err != nil {
		return nil, err
	}

	matches := make([]models.Match, 0, 2*len(params.Entries))
	for groupIndex, ge := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(ge.athletes) < 2 {
			continue
		}
		mat := groupIndex%matCount + 1
		matches = appendGroupBracket(matches, ge, groupIndex, mat)
	}

	if len(matches) == 0 {
		return nil, ErrNotEnoughAthletes
	}
	return matches, nil
}

func groupEntriesInOrder(entries []Entry) ([]groupEntries, error) {
	order := make([]models.GroupKey, 0)
	byKey := make(map[models.GroupKey]*groupEntries)
	seen := make(map[models.GroupKey]map[string]bool)

	for i, e := range entries {
		if e.AthleteID == "" {
			return nil, fmt.Errorf("%w: entry %d has no athlete id", ErrInvalidEntry, i)
		}
		if e.Group.Category == "" || e.Group.Gender == "" || e.Group.Weight == "" {
			return nil, fmt.Errorf("%w: entry %d (%s) has an incomplete group", ErrInvalidEntry, i, e.AthleteID)
		}
		ge, ok := byKey[e.Group]
		if !ok {
			ge = &groupEntries{key: e.Group}
			byKey[e.Group] = ge
			seen[e.Group] = make(map[string]bool)
			order = append(order, e.Group)
		}
		if seen[e.Group][e.AthleteID] {
			return nil, fmt.Errorf("%w: athlete %s registered twice in %s", ErrInvalidEntry, e.AthleteID, e.Group)
		}
		seen[e.Group][e.AthleteID] = true
		ge.athletes = append(ge.athletes, e.AthleteID)
	}

	out := make([]groupEntries, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out, nil
}

func appendGroupBracket(matches []models.Match, ge groupEntries, groupIndex, mat int) []models.Match {
	n := len(ge.athletes)
	numRounds := bits.Len(uint(n - 1))
	size := 1 << numRounds
	pairs := size / 2
	numByes := size - n

	// Byes are spread over the first round so that two byes never meet.
	byePair := make(map[int]bool, numByes)
	for k := 0; k < numByes; k++ {
		byePair[k*pairs/numByes] = true
	}

	newMatch := func(round int, stage models.MatchStage) models.Match {
		return models.Match{
			Index:      len(matches),
			Round:      round,
			Stage:      stage,
			Status:     models.MatchStatusPending,
			Mat:        mat,
			Group:      ge.key,
			GroupIndex: groupIndex,
		}
	}

	next := 0
	currentRound := make([]node, 0, pairs)
	for p := 0; p < pairs; p++ {
		m := newMatch(1, models.StageMain)
		m.Athlete1ID = models.StringPtr(ge.athletes[next])
		next++
		if byePair[p] {
			m.Status = models.MatchStatusFinished
			m.WinnerID = models.StringPtr(*m.Athlete1ID)
			currentRound = append(currentRound, node{athleteID: m.WinnerID, sourceMatch: m.Index})
		} else {
			m.Athlete2ID = models.StringPtr(ge.athletes[next])
			next++
			currentRound = append(currentRound, node{sourceMatch: m.Index})
		}
		matches = append(matches, m)
	}

	var semis []node
	for r := 2; r <= numRounds; r++ {
		if r == numRounds {
			semis = currentRound
		}
		nextRound := make([]node, 0, len(currentRound)/2)
		for i := 0; i < len(currentRound); i += 2 {
			n1, n2 := currentRound[i], currentRound[i+1]
			m := newMatch(r, models.StageMain)
			m.From1 = models.IntPtr(n1.sourceMatch)
			m.From2 = models.IntPtr(n2.sourceMatch)
			if n1.athleteID != nil {
				m.Athlete1ID = models.StringPtr(*n1.athleteID)
			}
			if n2.athleteID != nil {
				m.Athlete2ID = models.StringPtr(*n2.athleteID)
			}
			nextRound = append(nextRound, node{sourceMatch: m.Index})
			matches = append(matches, m)
		}
		currentRound = nextRound
	}

	if len(semis) == 2 && !matches[semis[0].sourceMatch].IsBye() && !matches[semis[1].sourceMatch].IsBye() {
		m := newMatch(numRounds, models.StageBronze)
		m.From1 = models.IntPtr(semis[0].sourceMatch)
		m.From2 = models.IntPtr(semis[1].sourceMatch)
		matches = append(matches, m)
	}

	return matches
}
