package gateway

import (
	"sort"

	"github.com/verte-zerg/typeme/internal/model"
)

// DistinctSessions returns the session ids of results in first-seen order.
func DistinctSessions(results []model.TypingResult) []string {
	seen := make(map[string]struct{}, len(results))
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		ids = append(ids, r.UserID)
	}
	return ids
}

// BestPerSession keeps the highest-WPM result of each session, sorted by WPM descending.
// Ties keep the earlier result.
func BestPerSession(results []model.TypingResult) []model.TypingResult {
	best := make(map[string]int, len(results))
	out := make([]model.TypingResult, 0, len(results))
	for _, r := range results {
		idx, ok := best[r.UserID]
		if !ok {
			best[r.UserID] = len(out)
			out = append(out, r)
			continue
		}
		if r.WPM > out[idx].WPM || (r.WPM == out[idx].WPM && r.CreatedAt.Before(out[idx].CreatedAt)) {
			out[idx] = r
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WPM > out[j].WPM
	})
	return out
}

func paginate(results []model.TypingResult, offset, limit int) []model.TypingResult {
	if offset >= len(results) {
		return nil
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
