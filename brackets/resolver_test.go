package brackets

import (
	"testing"

	"github.com/Dosada05/judo-pairings/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetWinner_FinishesMatchAndAdvances(t *testing.T) {
	matches := fourAthletes(t)

	res, err := SetWinner(matches, 0, "a2")
	require.NoError(t, err)

	m := res.Matches[0]
	assert.Equal(t, models.MatchStatusFinished, m.Status)
	require.NotNil(t, m.WinnerID)
	assert.Equal(t, "a2", *m.WinnerID)

	// Победитель уходит в финал, проигравший в матч за бронзу.
	require.NotNil(t, res.Matches[2].Athlete1ID)
	assert.Equal(t, "a2", *res.Matches[2].Athlete1ID)
	require.NotNil(t, res.Matches[3].Athlete1ID)
	assert.Equal(t, "a1", *res.Matches[3].Athlete1ID)

	assert.Equal(t, []int{0, 2, 3}, res.Changed)
	assert.Equal(t, []int{2, 3}, res.Dependents)
	require.Len(t, res.Effects, 3)
	assert.Equal(t, Effect{Kind: EffectPersistMatch, MatchIndex: 0, WinnerID: "a2"}, res.Effects[0])
}

func TestSetWinner_DoesNotMutateInput(t *testing.T) {
	matches := fourAthletes(t)

	_, err := SetWinner(matches, 0, "a1")
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusPending, matches[0].Status)
	assert.Nil(t, matches[0].WinnerID)
	assert.Nil(t, matches[2].Athlete1ID)
}

func TestSetWinner_Errors(t *testing.T) {
	base := fourAthletes(t)
	afterFirst := confirm(t, base, 0, "a1")

	tests := []struct {
		name    string
		matches []models.Match
		idx     int
		winner  string
		wantErr error
	}{
		{name: "index out of range", matches: base, idx: 10, winner: "a1", wantErr: ErrMatchIndexOutOfRange},
		{name: "negative index", matches: base, idx: -1, winner: "a1", wantErr: ErrMatchIndexOutOfRange},
		{name: "not a participant", matches: base, idx: 0, winner: "a3", wantErr: ErrNotParticipant},
		{name: "empty winner", matches: base, idx: 0, winner: "", wantErr: ErrNotParticipant},
		{name: "already finished", matches: afterFirst, idx: 0, winner: "a2", wantErr: ErrMatchNotPending},
		{name: "final blocked", matches: afterFirst, idx: 2, winner: "a1", wantErr: ErrMatchBlocked},
		{name: "bronze blocked", matches: afterFirst, idx: 3, winner: "a2", wantErr: ErrMatchBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SetWinner(tt.matches, tt.idx, tt.winner)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSetWinner_BlockedReportsReason(t *testing.T) {
	matches := confirm(t, fourAthletes(t), 0, "a1")

	_, err := SetWinner(matches, 3, "a2")

	var gateErr *GateError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, 3, gateErr.MatchIndex)
	assert.Equal(t, ReasonWaitingSource2, gateErr.Reason)
}

func TestSetWinner_ByeRejectedWithNoOpponent(t *testing.T) {
	matches := []models.Match{{
		Index:      0,
		Athlete1ID: models.StringPtr("a1"),
		Round:      1,
		Stage:      models.StageMain,
		Status:     models.MatchStatusPending,
		Group:      cadetsMale66,
	}}

	_, err := SetWinner(matches, 0, "a1")
	assert.ErrorIs(t, err, ErrNoOpponent)
}

func TestSetWinner_GeneratedByeRejectedWithNoOpponent(t *testing.T) {
	matches := generate(t, entries(cadetsMale66, "a1", "a2", "a3"))
	require.True(t, matches[0].IsBye())
	require.True(t, matches[0].IsFinished())

	for _, athlete := range []string{"a1", "a2"} {
		_, err := SetWinner(matches, 0, athlete)
		assert.ErrorIs(t, err, ErrNoOpponent, athlete)
		assert.NotErrorIs(t, err, ErrMatchNotPending, athlete)
	}

	// Финал ждёт второй полуфинал: остаётся причина блокировки, а не "no opponent".
	_, err := SetWinner(matches, 2, "a1")
	var gateErr *GateError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, ReasonPreviousRoundIncomplete, gateErr.Reason)
	assert.NotErrorIs(t, err, ErrNoOpponent)
}

func TestSetWinner_FullBracketAndMedals(t *testing.T) {
	matches := fourAthletes(t)
	matches = confirm(t, matches, 0, "a1")
	matches = confirm(t, matches, 1, "a4")

	assert.Equal(t, "a1", *matches[2].Athlete1ID)
	assert.Equal(t, "a4", *matches[2].Athlete2ID)
	assert.Equal(t, "a2", *matches[3].Athlete1ID)
	assert.Equal(t, "a3", *matches[3].Athlete2ID)

	matches = confirm(t, matches, 2, "a1")
	matches = confirm(t, matches, 3, "a3")

	gold := AggregateMedals(matches, models.MedalGold)
	silver := AggregateMedals(matches, models.MedalSilver)
	bronze := AggregateMedals(matches, models.MedalBronze)
	require.Len(t, gold, 1)
	require.Len(t, silver, 1)
	require.Len(t, bronze, 1)
	assert.Equal(t, "a1", gold[0].AthleteID)
	assert.Equal(t, "a4", silver[0].AthleteID)
	assert.Equal(t, "a3", bronze[0].AthleteID)
}

func TestSetWinner_FinishedDependentNotOverwritten(t *testing.T) {
	matches := fourAthletes(t)
	matches = confirm(t, matches, 0, "a1")
	matches = confirm(t, matches, 1, "a4")
	matches = confirm(t, matches, 2, "a1")

	// Ручная правка: первый полуфинал снова открыт, финал уже сыгран.
	matches[0].Status = models.MatchStatusPending
	matches[0].WinnerID = nil

	res, err := SetWinner(matches, 0, "a2")
	require.NoError(t, err)
	assert.Equal(t, "a1", *res.Matches[2].Athlete1ID)
	assert.NotContains(t, res.Changed, 2)
}

func TestEditWinner_OverwritesWinnerOnly(t *testing.T) {
	matches := fourAthletes(t)
	matches = confirm(t, matches, 0, "a1")

	res, err := EditWinner(matches, 0, "a2", "video review")
	require.NoError(t, err)

	m := res.Matches[0]
	assert.Equal(t, models.MatchStatusFinished, m.Status)
	assert.Equal(t, "a2", *m.WinnerID)
	assert.Equal(t, []int{0}, res.Changed)

	// Последующие матчи не пересчитываются.
	assert.Equal(t, "a1", *res.Matches[2].Athlete1ID)
	assert.Equal(t, []int{2, 3}, res.Dependents)

	require.Len(t, res.Effects, 2)
	correction := res.Effects[1]
	assert.Equal(t, EffectRecordCorrection, correction.Kind)
	assert.Equal(t, "video review", correction.Reason)
	require.NotNil(t, correction.PreviousWinnerID)
	assert.Equal(t, "a1", *correction.PreviousWinnerID)
}

func TestEditWinner_DefaultReason(t *testing.T) {
	matches := confirm(t, fourAthletes(t), 0, "a1")

	res, err := EditWinner(matches, 0, "a2", "   ")
	require.NoError(t, err)
	assert.Equal(t, DefaultCorrectionReason, res.Effects[1].Reason)
}

func TestEditWinner_SkipsGate(t *testing.T) {
	matches := fourAthletes(t)
	// Финал помечен завершённым при незавершённом полуфинале.
	matches[2].Athlete1ID = models.StringPtr("a1")
	matches[2].Athlete2ID = models.StringPtr("a4")
	matches[2].Status = models.MatchStatusFinished
	matches[2].WinnerID = models.StringPtr("a1")

	_, err := EditWinner(matches, 2, "a4", "")
	assert.NoError(t, err)
}

func TestEditWinner_Errors(t *testing.T) {
	base := fourAthletes(t)
	finished := confirm(t, base, 0, "a1")

	tests := []struct {
		name    string
		matches []models.Match
		idx     int
		winner  string
		wantErr error
	}{
		{name: "index out of range", matches: base, idx: 4, winner: "a1", wantErr: ErrMatchIndexOutOfRange},
		{name: "pending match", matches: base, idx: 0, winner: "a1", wantErr: ErrMatchNotFinished},
		{name: "not a participant", matches: finished, idx: 0, winner: "a4", wantErr: ErrNotParticipant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EditWinner(tt.matches, tt.idx, tt.winner, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
