package brackets

import (
	"sort"

	"github.com/Dosada05/judo-pairings/models"
)

// Group is the list of match indices belonging to one bracket.
type Group struct {
	Key        models.GroupKey
	GroupIndex int
	Indices    []int
}

// PartitionByGroup splits the match list into independent brackets ordered by
// group index, then by key.
func PartitionByGroup(matches []models.Match) []Group {
	byKey := make(map[models.GroupKey]*Group)
	for i := range matches {
		m := &matches[i]
		g, ok := byKey[m.Group]
		if !ok {
			g = &Group{Key: m.Group, GroupIndex: m.GroupIndex}
			byKey[m.Group] = g
		}
		g.Indices = append(g.Indices, i)
	}

	groups := make([]Group, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].GroupIndex != groups[j].GroupIndex {
			return groups[i].GroupIndex < groups[j].GroupIndex
		}
		return groups[i].Key.String() < groups[j].Key.String()
	})
	return groups
}

// FinalOf returns the index of the group's final: the main-stage match with the
// highest round. Ties keep the earliest index.
func FinalOf(matches []models.Match, g Group) (int, bool) {
	final, maxRound := -1, 0
	for _, i := range g.Indices {
		m := &matches[i]
		if m.Stage != models.StageMain {
			continue
		}
		if m.Round > maxRound {
			final, maxRound = i, m.Round
		}
	}
	return final, final >= 0
}

// BronzeOf returns the index of the first bronze-stage match in the group.
func BronzeOf(matches []models.Match, g Group) (int, bool) {
	for _, i := range g.Indices {
		if matches[i].Stage == models.StageBronze {
			return i, true
		}
	}
	return -1, false
}

// AggregateMedals lists the winners of one medal type across all groups.
// Groups whose deciding match is unfinished contribute nothing.
func AggregateMedals(matches []models.Match, medal models.MedalType) []models.MedalEntry {
	entries := make([]models.MedalEntry, 0)
	for _, g := range PartitionByGroup(matches) {
		athleteID, matchIdx, ok := medalOf(matches, g, medal)
		if !ok {
			continue
		}
		entries = append(entries, models.MedalEntry{
			Group:      g.Key,
			GroupIndex: g.GroupIndex,
			Medal:      medal,
			AthleteID:  athleteID,
			MatchIndex: matchIdx,
		})
	}
	return entries
}

// Podiums returns gold, silver and bronze for every group, including groups
// with no medal decided yet.
func Podiums(matches []models.Match) []models.GroupPodium {
	groups := PartitionByGroup(matches)
	podiums := make([]models.GroupPodium, 0, len(groups))
	for _, g := range groups {
		p := models.GroupPodium{Group: g.Key, GroupIndex: g.GroupIndex}
		if id, _, ok := medalOf(matches, g, models.MedalGold); ok {
			p.Gold = models.StringPtr(id)
		}
		if id, _, ok := medalOf(matches, g, models.MedalSilver); ok {
			p.Silver = models.StringPtr(id)
		}
		if id, _, ok := medalOf(matches, g, models.MedalBronze); ok {
			p.Bronze = models.StringPtr(id)
		}
		podiums = append(podiums, p)
	}
	return podiums
}

func medalOf(matches []models.Match, g Group, medal models.MedalType) (string, int, bool) {
	switch medal {
	case models.MedalGold, models.MedalSilver:
		idx, ok := FinalOf(matches, g)
		if !ok {
			return "", 0, false
		}
		final := &matches[idx]
		if !final.IsFinished() || final.WinnerID == nil {
			return "", 0, false
		}
		if medal == models.MedalGold {
			return *final.WinnerID, idx, true
		}
		loser, ok := final.Loser()
		return loser, idx, ok
	case models.MedalBronze:
		idx, ok := BronzeOf(matches, g)
		if !ok {
			return "", 0, false
		}
		bronze := &matches[idx]
		if !bronze.IsFinished() || bronze.WinnerID == nil {
			return "", 0, false
		}
		return *bronze.WinnerID, idx, true
	}
	return "", 0, false
}
