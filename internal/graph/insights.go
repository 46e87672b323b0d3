package graph

import (
	"sort"

	"github.com/isaac-evs/side-b/internal/model"
)

// InsightsQuery walks a user's entries through the reverse creator edge.
const InsightsQuery = `query insights($userId: string) {
  user(func: eq(user_id, $userId)) {
    username
    entries: ~creator {
      entry_id
      has_mood { mood_name }
      selected_song { song_id title artist song_mood }
    }
  }
}`

// InsightsResult is the decoded data object of InsightsQuery.
type InsightsResult struct {
	User []struct {
		Username string `json:"username"`
		Entries  []struct {
			EntryID string    `json:"entry_id"`
			HasMood *MoodNode `json:"has_mood"`
			Song    *SongNode `json:"selected_song"`
		} `json:"entries"`
	} `json:"user"`
}

// Insights folds the query result into mood and artist distributions plus
// mood-to-song links. Counts are ordered descending, ties by name.
func (r InsightsResult) Insights(topN int) model.Insights {
	out := model.Insights{TopMoods: []model.NamedCount{}, TopArtists: []model.NamedCount{}, Links: []model.GraphLink{}}
	if len(r.User) == 0 {
		return out
	}
	u := r.User[0]
	out.Username = u.Username
	out.TotalEntries = len(u.Entries)

	moods := map[string]int{}
	artists := map[string]int{}
	seen := map[model.GraphLink]bool{}
	for _, e := range u.Entries {
		mood := ""
		if e.HasMood != nil {
			mood = e.HasMood.MoodName
			moods[mood]++
		}
		if e.Song == nil {
			continue
		}
		if e.Song.Artist != "" {
			artists[e.Song.Artist]++
		}
		if mood != "" && e.Song.Title != "" {
			l := model.GraphLink{Source: mood, Target: e.Song.Title}
			if !seen[l] {
				seen[l] = true
				out.Links = append(out.Links, l)
			}
		}
	}
	out.TopMoods = ranked(moods, 0)
	out.TopArtists = ranked(artists, topN)
	return out
}

func ranked(counts map[string]int, limit int) []model.NamedCount {
	out := make([]model.NamedCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, model.NamedCount{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
