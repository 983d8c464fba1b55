package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/Dosada05/judo-pairings/models"
	"github.com/stretchr/testify/require"
)

var (
	cadetsMale66    = models.GroupKey{Category: "cadets", Gender: "male", Weight: "-66"}
	seniorsFemale57 = models.GroupKey{Category: "seniors", Gender: "female", Weight: "-57"}
)

func entries(group models.GroupKey, ids ...string) []Entry {
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, Entry{AthleteID: id, Group: group})
	}
	return out
}

func athletes(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("a%d", i+1)
	}
	return ids
}

func generate(t *testing.T, es []Entry) []models.Match {
	t.Helper()
	matches, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		CompetitionID: "test",
		Entries:       es,
	})
	require.NoError(t, err)
	return matches
}

// fourAthletes: 0 = a1 vs a2, 1 = a3 vs a4, 2 = final, 3 = bronze.
func fourAthletes(t *testing.T) []models.Match {
	t.Helper()
	return generate(t, entries(cadetsMale66, "a1", "a2", "a3", "a4"))
}

func confirm(t *testing.T, matches []models.Match, idx int, winner string) []models.Match {
	t.Helper()
	res, err := SetWinner(matches, idx, winner)
	require.NoError(t, err)
	return res.Matches
}
