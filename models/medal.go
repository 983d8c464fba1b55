package models

type MedalType string

const (
	MedalGold   MedalType = "gold"
	MedalSilver MedalType = "silver"
	MedalBronze MedalType = "bronze"
)

func (t MedalType) Valid() bool {
	switch t {
	case MedalGold, MedalSilver, MedalBronze:
		return true
	}
	return false
}

// MedalEntry is one medal won in one group.
type MedalEntry struct {
	Group      GroupKey  `json:"group"`
	GroupIndex int       `json:"group_index"`
	Medal      MedalType `json:"medal"`
	AthleteID  string    `json:"athlete_id"`
	MatchIndex int       `json:"match_index"`
}

// GroupPodium collects the medals of one group. Missing medals are nil.
type GroupPodium struct {
	Group      GroupKey `json:"group"`
	GroupIndex int      `json:"group_index"`
	Gold       *string  `json:"gold,omitempty"`
	Silver     *string  `json:"silver,omitempty"`
	Bronze     *string  `json:"bronze,omitempty"`
}
