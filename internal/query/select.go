// Parses projection strings such as "id, name, property:properties(name)".

package query

import (
	"strings"
)

// projection is a parsed select string.
type projection struct {
	all     bool
	columns []column
	embeds  []embed
}

// column is a plain field, optionally renamed with "alias:field".
type column struct {
	alias, field string
}

// embed attaches a related row under alias, matched through foreignKey.
type embed struct {
	alias      string
	table      string
	foreignKey string
	sub        *projection
}

// parseProjection parses a select string. An empty string selects all
// fields. Malformed items degrade to plain column names that never match.
func parseProjection(s string) *projection {
	p := &projection{}
	s = strings.TrimSpace(s)
	if s == "" {
		p.all = true
		return p
	}
	for _, item := range splitTopLevel(s) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if item == "*" {
			p.all = true
			continue
		}
		open := strings.IndexByte(item, '(')
		if open > 0 && strings.HasSuffix(item, ")") {
			p.embeds = append(p.embeds, parseEmbed(item[:open], item[open+1:len(item)-1]))
			continue
		}
		alias, field, ok := strings.Cut(item, ":")
		if !ok {
			field = alias
		}
		p.columns = append(p.columns, column{alias: strings.TrimSpace(alias), field: strings.TrimSpace(field)})
	}
	return p
}

// parseEmbed parses "alias:table!fk" and the parenthesized field list.
func parseEmbed(head, inner string) embed {
	head = strings.TrimSpace(head)
	alias, target, ok := strings.Cut(head, ":")
	if !ok {
		target = alias
	}
	table, fk, hasFK := strings.Cut(target, "!")
	table = strings.TrimSpace(table)
	if !ok {
		alias = table
	}
	if !hasFK || strings.TrimSpace(fk) == "" {
		fk = singular(table) + "_id"
	}
	return embed{
		alias:      strings.TrimSpace(alias),
		table:      table,
		foreignKey: strings.TrimSpace(fk),
		sub:        parseProjection(inner),
	}
}

// splitTopLevel splits on commas that are not nested in parentheses.
func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// singular derives the row noun of a collection name: "properties" →
// "property", "leases" → "lease", "addresses" → "address".
func singular(table string) string {
	switch {
	case strings.HasSuffix(table, "ies") && len(table) > 3:
		return table[:len(table)-3] + "y"
	case strings.HasSuffix(table, "sses"):
		return table[:len(table)-2]
	case strings.HasSuffix(table, "s") && !strings.HasSuffix(table, "ss"):
		return table[:len(table)-1]
	default:
		return table
	}
}
