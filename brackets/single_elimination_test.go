package brackets

import (
	"context"
	"testing"

	"github.com/Dosada05/judo-pairings/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBracket_Shapes(t *testing.T) {
	tests := []struct {
		athletes    int
		wantMatches int
		wantBronze  bool
		wantByes    int
	}{
		{athletes: 2, wantMatches: 1},
		{athletes: 3, wantMatches: 3, wantByes: 1},
		{athletes: 4, wantMatches: 4, wantBronze: true},
		{athletes: 5, wantMatches: 8, wantBronze: true, wantByes: 3},
		{athletes: 8, wantMatches: 8, wantBronze: true},
		{athletes: 9, wantMatches: 16, wantBronze: true, wantByes: 7},
	}

	for _, tt := range tests {
		matches := generate(t, entries(cadetsMale66, athletes(tt.athletes)...))
		assert.Len(t, matches, tt.wantMatches, "athletes=%d", tt.athletes)

		byes, bronze := 0, 0
		for i, m := range matches {
			assert.Equal(t, i, m.Index)
			if m.IsBye() {
				byes++
				assert.True(t, m.IsFinished())
				assert.Equal(t, *m.Athlete1ID, *m.WinnerID)
			}
			if m.Stage == models.StageBronze {
				bronze++
			}
		}
		assert.Equal(t, tt.wantByes, byes, "athletes=%d", tt.athletes)
		assert.Equal(t, tt.wantBronze, bronze == 1, "athletes=%d", tt.athletes)
	}
}

func TestGenerateBracket_ByeWinnerPrefilled(t *testing.T) {
	matches := generate(t, entries(cadetsMale66, "a1", "a2", "a3"))

	require.True(t, matches[0].IsBye())
	final := matches[2]
	assert.Equal(t, 2, final.Round)
	require.NotNil(t, final.Athlete1ID)
	assert.Equal(t, "a1", *final.Athlete1ID)
	assert.Nil(t, final.Athlete2ID)
	assert.Equal(t, 0, *final.From1)
	assert.Equal(t, 1, *final.From2)

	matches = confirm(t, matches, 1, "a3")
	matches = confirm(t, matches, 2, "a3")

	gold := AggregateMedals(matches, models.MedalGold)
	silver := AggregateMedals(matches, models.MedalSilver)
	require.Len(t, gold, 1)
	require.Len(t, silver, 1)
	assert.Equal(t, "a3", gold[0].AthleteID)
	assert.Equal(t, "a1", silver[0].AthleteID)
}

func TestGenerateBracket_EveryAthleteAppearsOnce(t *testing.T) {
	ids := athletes(11)
	matches := generate(t, entries(cadetsMale66, ids...))

	seen := make(map[string]int)
	for _, m := range matches {
		if m.Round != 1 {
			continue
		}
		for _, a := range []*string{m.Athlete1ID, m.Athlete2ID} {
			if a != nil {
				seen[*a]++
			}
		}
	}
	require.Len(t, seen, len(ids))
	for _, id := range ids {
		assert.Equal(t, 1, seen[id], id)
	}
}

func TestGenerateBracket_MatsRotateByGroup(t *testing.T) {
	groups := []models.GroupKey{
		{Category: "cadets", Gender: "male", Weight: "-60"},
		{Category: "cadets", Gender: "male", Weight: "-66"},
		{Category: "cadets", Gender: "female", Weight: "-52"},
		{Category: "seniors", Gender: "male", Weight: "-73"},
	}
	var es []Entry
	for _, g := range groups {
		es = append(es, entries(g, g.Weight+"x", g.Weight+"y")...)
	}

	matches, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Entries: es, MatCount: 2})
	require.NoError(t, err)
	require.Len(t, matches, 4)

	for i, m := range matches {
		assert.Equal(t, i, m.GroupIndex)
		assert.Equal(t, i%2+1, m.Mat)
	}
}

func TestGenerateBracket_SkipsGroupsWithOneAthlete(t *testing.T) {
	es := append(entries(seniorsFemale57, "solo"), entries(cadetsMale66, "a1", "a2")...)
	matches := generate(t, es)

	require.Len(t, matches, 1)
	assert.Equal(t, cadetsMale66, matches[0].Group)
	assert.Equal(t, 1, matches[0].GroupIndex)
}

func TestGenerateBracket_Errors(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	tests := []struct {
		name    string
		params  GenerateBracketParams
		wantErr error
	}{
		{
			name:    "no entries",
			params:  GenerateBracketParams{},
			wantErr: ErrNotEnoughAthletes,
		},
		{
			name:    "single athlete",
			params:  GenerateBracketParams{Entries: entries(cadetsMale66, "a1")},
			wantErr: ErrNotEnoughAthletes,
		},
		{
			name:    "empty athlete id",
			params:  GenerateBracketParams{Entries: entries(cadetsMale66, "a1", "")},
			wantErr: ErrInvalidEntry,
		},
		{
			name:    "duplicate athlete",
			params:  GenerateBracketParams{Entries: entries(cadetsMale66, "a1", "a2", "a1")},
			wantErr: ErrInvalidEntry,
		},
		{
			name:    "incomplete group",
			params:  GenerateBracketParams{Entries: []Entry{{AthleteID: "a1", Group: models.GroupKey{Category: "cadets"}}}},
			wantErr: ErrInvalidEntry,
		},
		{
			name:    "too many mats",
			params:  GenerateBracketParams{Entries: entries(cadetsMale66, "a1", "a2"), MatCount: 4},
			wantErr: ErrInvalidMatCount,
		},
		{
			name:    "negative mats",
			params:  GenerateBracketParams{Entries: entries(cadetsMale66, "a1", "a2"), MatCount: -1},
			wantErr: ErrInvalidMatCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gen.GenerateBracket(context.Background(), tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGenerateBracket_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSingleEliminationGenerator().GenerateBracket(ctx, GenerateBracketParams{Entries: entries(cadetsMale66, "a1", "a2")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateBracket_PlaysToCompletion(t *testing.T) {
	for n := 2; n <= 16; n++ {
		matches := generate(t, entries(cadetsMale66, athletes(n)...))

		// Подтверждаем всё, что можно, пока сетка не закончится: побеждает athlete1.
		for progress := true; progress; {
			progress = false
			for i, m := range matches {
				if m.IsFinished() || m.Athlete1ID == nil || m.Athlete2ID == nil {
					continue
				}
				decision, err := EvaluateGate(matches, i)
				require.NoError(t, err)
				if !decision.CanConfirm {
					continue
				}
				matches = confirm(t, matches, i, *m.Athlete1ID)
				progress = true
			}
		}

		for i, m := range matches {
			assert.True(t, m.IsFinished(), "n=%d match %d left pending", n, i)
		}
		gold := AggregateMedals(matches, models.MedalGold)
		require.Len(t, gold, 1, "n=%d", n)
		assert.Equal(t, "a1", gold[0].AthleteID, "n=%d", n)
	}
}
