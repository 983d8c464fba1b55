package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGroupKey(t *testing.T) {
	tests := []struct {
		in      string
		want    GroupKey
		wantErr bool
	}{
		{in: "cadets/male/-66", want: GroupKey{Category: "cadets", Gender: "male", Weight: "-66"}},
		{in: "cadets|female|-52", want: GroupKey{Category: "cadets", Gender: "female", Weight: "-52"}},
		{in: "seniors_male_+100", want: GroupKey{Category: "seniors", Gender: "male", Weight: "+100"}},
		{in: " juniors / male / -73 ", want: GroupKey{Category: "juniors", Gender: "male", Weight: "-73"}},
		{in: "cadets/male", wantErr: true},
		{in: "cadets//-66", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGroupKey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) GroupKey {
	t.Helper()
	key, err := ParseGroupKey(s)
	require.NoError(t, err)
	return key
}

func TestGroupKeySlug(t *testing.T) {
	assert.Equal(t, "cadets-male-66", GroupKey{Category: "Cadets", Gender: "Male", Weight: "-66"}.Slug())
	assert.True(t, GroupKey{}.IsZero())
	assert.False(t, GroupKey{Weight: "-66"}.IsZero())
}

func TestMatchHelpers(t *testing.T) {
	bye := Match{Athlete1ID: StringPtr("a1")}
	assert.True(t, bye.IsBye())

	waiting := Match{Athlete1ID: StringPtr("a1"), From2: IntPtr(3)}
	assert.False(t, waiting.IsBye())

	m := Match{Athlete1ID: StringPtr("a1"), Athlete2ID: StringPtr("a2")}
	assert.True(t, m.HasParticipant("a2"))
	assert.False(t, m.HasParticipant("a3"))
	assert.False(t, m.HasParticipant(""))

	_, ok := m.Loser()
	assert.False(t, ok)

	m.WinnerID = StringPtr("a2")
	loser, ok := m.Loser()
	require.True(t, ok)
	assert.Equal(t, "a1", loser)

	m.WinnerID = StringPtr("a9")
	_, ok = m.Loser()
	assert.False(t, ok)
}

func TestPairingsCloneIsDeep(t *testing.T) {
	p := &Pairings{CompetitionID: "c", Matches: []Match{{Index: 0, Athlete1ID: StringPtr("a1"), From1: IntPtr(1)}}}
	clone := p.Clone()

	*clone.Matches[0].Athlete1ID = "changed"
	*clone.Matches[0].From1 = 7
	clone.Matches[0].Status = MatchStatusFinished

	assert.Equal(t, "a1", *p.Matches[0].Athlete1ID)
	assert.Equal(t, 1, *p.Matches[0].From1)
	assert.Empty(t, p.Matches[0].Status)
	assert.Nil(t, (*Pairings)(nil).Clone())
}

func TestRoleAndMedalValid(t *testing.T) {
	assert.True(t, RoleTableOfficial.Valid())
	assert.False(t, Role("coach").Valid())
	assert.True(t, MedalBronze.Valid())
	assert.False(t, MedalType("tin").Valid())
}
