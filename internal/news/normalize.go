package news

import "strings"

// Normalize turns raw adapter output into a Feed: classifies each title,
// fills the default source, keeps the first of each (title, source) pair in
// input order, then truncates to MaxFeedItems.
func Normalize(raw []RawItem) Feed {
	out := make(Feed, 0, min(len(raw), MaxFeedItems))
	seen := make(map[identity]struct{}, len(raw))
	for _, r := range raw {
		item := NewsItem{
			Title:       strings.TrimSpace(r.Title),
			Source:      strings.TrimSpace(r.Source),
			URL:         r.URL,
			PublishedAt: r.PublishedAt,
		}
		if item.Source == "" {
			item.Source = DefaultSource
		}
		id := item.identity()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		item.Impact = Classify(item.Title)
		out = append(out, item)
		if len(out) == MaxFeedItems {
			break
		}
	}
	return out
}
