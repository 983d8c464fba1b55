package models

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"
)

// GroupKey identifies one independent bracket: category, gender and weight class.
type GroupKey struct {
	Category string `json:"category" firestore:"category"`
	Gender   string `json:"gender" firestore:"gender"`
	Weight   string `json:"weight" firestore:"weight"`
}

func (g GroupKey) String() string {
	return g.Category + "/" + g.Gender + "/" + g.Weight
}

// Slug renders the key in a form usable in URLs and object keys,
// e.g. "cadets-male-66kg".
func (g GroupKey) Slug() string {
	return slug.Make(strings.Join([]string{g.Category, g.Gender, g.Weight}, " "))
}

func (g GroupKey) IsZero() bool {
	return g.Category == "" && g.Gender == "" && g.Weight == ""
}

// ParseGroupKey accepts the legacy composite string ("cadets_male_-66", "cadets|male|-66"
// or "cadets/male/-66").
func ParseGroupKey(s string) (GroupKey, error) {
	for _, sep := range []string{"/", "|", "_"} {
		parts := strings.Split(s, sep)
		if len(parts) != 3 {
			continue
		}
		key := GroupKey{
			Category: strings.TrimSpace(parts[0]),
			Gender:   strings.TrimSpace(parts[1]),
			Weight:   strings.TrimSpace(parts[2]),
		}
		if key.Category == "" || key.Gender == "" || key.Weight == "" {
			break
		}
		return key, nil
	}
	return GroupKey{}, fmt.Errorf("invalid group key %q: expected category, gender and weight", s)
}
