package suitelog

import "sort"

// Order returns model names sorted ascending by the ending timestamp of each
// model's first recorded function. Models without functions are skipped.
// Equal timestamps keep document order.
func Order(l *Log) []string {
	type item struct {
		name  string
		index int
		end   float64
	}

	var items []item
	i := 0
	for p := l.Models.Oldest(); p != nil; p = p.Next() {
		first := p.Value.Oldest()
		if first != nil {
			items = append(items, item{name: p.Key, index: i, end: first.Value.EndingTimestampMs})
		}
		i++
	}

	sort.SliceStable(items, func(a, b int) bool {
		if items[a].end != items[b].end {
			return items[a].end < items[b].end
		}
		return items[a].index < items[b].index
	})

	names := make([]string, len(items))
	for k, it := range items {
		names[k] = it.name
	}
	return names
}
