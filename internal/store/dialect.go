package store

import (
	"strconv"
	"strings"
)

type dialect struct {
	name string
	// serial is the column type of an auto-incrementing integer key.
	serial string
	// numbered reports whether placeholders are $1, $2, ... instead of ?.
	numbered bool
}

var (
	sqlite   = dialect{name: "sqlite", serial: "INTEGER PRIMARY KEY AUTOINCREMENT"}
	postgres = dialect{name: "postgres", serial: "BIGSERIAL PRIMARY KEY", numbered: true}
)

// rebind rewrites ? placeholders for the dialect. Queries must not contain
// literal question marks.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
