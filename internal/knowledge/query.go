package knowledge

import (
	"sort"
	"strings"
	"time"
)

// Statistics are the aggregate counters shown on the overview surface.
type Statistics struct {
	Total         int `json:"total"`
	Apps          int `json:"apps"`
	Categories    int `json:"categories"`
	AddedThisWeek int `json:"addedThisWeek"`
}

// GroupCount is one bucket of a distribution.
type GroupCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats recomputes aggregate statistics over the full collection.
// AddedThisWeek counts entries whose LastUpdated falls within the
// trailing 7 days (date-only comparison); entries with a missing or
// invalid date are never counted as recent.
func (s *Store) Stats() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	apps := make(map[string]struct{})
	cats := make(map[string]struct{})
	weekAgo := s.now().AddDate(0, 0, -7)
	weekAgo = time.Date(weekAgo.Year(), weekAgo.Month(), weekAgo.Day(), 0, 0, 0, 0, time.UTC)

	st := Statistics{Total: len(s.items)}
	for _, it := range s.items {
		apps[it.App] = struct{}{}
		cats[it.Category] = struct{}{}
		if d, ok := parseDate(it.LastUpdated); ok && !d.Before(weekAgo) {
			st.AddedThisWeek++
		}
	}
	st.Apps = len(apps)
	st.Categories = len(cats)
	return st
}

// distribution groups the collection by the given label, descending by
// count, ties kept in first-encountered order. Empty labels map to the
// Uncategorized sentinel. n <= 0 returns all buckets.
func (s *Store) distribution(label func(Item) string, n int) []GroupCount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[string]int)
	var groups []GroupCount
	for _, it := range s.items {
		name := label(it)
		if name == "" {
			name = Uncategorized
		}
		if i, ok := index[name]; ok {
			groups[i].Count++
			continue
		}
		index[name] = len(groups)
		groups = append(groups, GroupCount{Name: name, Count: 1})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})

	if n > 0 && len(groups) > n {
		groups = groups[:n]
	}
	return groups
}

// AppDistribution returns the per-app entry counts, descending.
func (s *Store) AppDistribution() []GroupCount {
	return s.distribution(func(it Item) string { return it.App }, 0)
}

// CategoryDistribution returns the n highest per-category counts.
func (s *Store) CategoryDistribution(n int) []GroupCount {
	return s.distribution(func(it Item) string { return it.Category }, n)
}

// Recent returns up to n entries sorted by LastUpdated descending.
// Entries with a missing or invalid date sort as oldest. Entries with
// equal dates keep their storage order (stable sort).
func (s *Store) Recent(n int) []Item {
	s.mu.RLock()
	items := make([]Item, len(s.items))
	copy(items, s.items)
	s.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		di, _ := parseDate(items[i].LastUpdated)
		dj, _ := parseDate(items[j].LastUpdated)
		return di.After(dj)
	})

	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return items
}

// filterDisabled reports whether an equality filter value is the
// "show everything" selector.
func filterDisabled(v string) bool {
	return v == "" || v == "All"
}

// Filter returns entries matching the free-text term (case-insensitive,
// over question, answer, and every alternative question) and both
// equality filters. An empty or "All" filter value disables that filter.
// The result is always a subset of the collection in storage order.
func (s *Store) Filter(term, app, category string) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term = strings.ToLower(term)
	var out []Item
	for _, it := range s.items {
		if !filterDisabled(app) && it.App != app {
			continue
		}
		if !filterDisabled(category) && it.Category != category {
			continue
		}
		if term != "" && !matchesTerm(it, term) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matchesTerm(it Item, term string) bool {
	if strings.Contains(strings.ToLower(it.Question), term) {
		return true
	}
	if strings.Contains(strings.ToLower(it.Answer), term) {
		return true
	}
	for _, q := range it.AlternativeQuestions {
		if strings.Contains(strings.ToLower(q), term) {
			return true
		}
	}
	return false
}

// Categories returns the distinct category labels in first-encountered
// order, for populating filter selectors.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, it := range s.items {
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	return out
}
