// Package listingquery builds the WHERE clause of a listing search. Both SQL
// dialects feed the page query and the count query from the same Predicate,
// so the reported total always matches the rows the page was cut from.
package listingquery

import (
	"strconv"
	"strings"

	"campusmarket/internal/domain"
)

// Dialect renders the dialect-specific parts of the predicate.
type Dialect struct {
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// ContainsFold renders a case-insensitive LIKE of column against param.
	ContainsFold func(column, param string) string
}

var Postgres = Dialect{
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	ContainsFold: func(column, param string) string {
		return column + " ILIKE " + param + " ESCAPE '\\'"
	},
}

// SQLite folds case for ASCII letters only; non-ASCII text matches by exact
// case.
var SQLite = Dialect{
	Placeholder: func(int) string { return "?" },
	ContainsFold: func(column, param string) string {
		return "LOWER(" + column + ") LIKE LOWER(" + param + ") ESCAPE '\\'"
	},
}

// Predicate is a rendered WHERE clause (without the keyword) and its args.
type Predicate struct {
	Clause string
	Args   []any
}

type builder struct {
	d     Dialect
	conds []string
	args  []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

// Build renders the predicate for f against the listings table aliased "l".
// f should already be normalized; an empty status list imposes no status
// constraint.
func Build(d Dialect, f domain.ListingFilter) Predicate {
	b := &builder{d: d}

	if len(f.Statuses) > 0 {
		ph := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			ph[i] = b.bind(string(s))
		}
		b.conds = append(b.conds, "l.status IN ("+strings.Join(ph, ", ")+")")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := ContainsPattern(s)
		title := d.ContainsFold("l.title", b.bind(pattern))
		desc := d.ContainsFold("l.description", b.bind(pattern))
		b.conds = append(b.conds, "("+title+" OR "+desc+")")
	}
	if f.Category != "" {
		b.conds = append(b.conds, "l.category = "+b.bind(f.Category))
	}
	if f.Condition != "" {
		b.conds = append(b.conds, "l.condition = "+b.bind(string(f.Condition)))
	}
	if f.Location != "" {
		b.conds = append(b.conds, "l.location = "+b.bind(string(f.Location)))
	}
	if f.MinPrice != nil {
		b.conds = append(b.conds, "l.price >= "+b.bind(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		b.conds = append(b.conds, "l.price <= "+b.bind(*f.MaxPrice))
	}
	if f.SellerID != "" {
		b.conds = append(b.conds, "l.seller_id = "+b.bind(f.SellerID))
	}

	clause := "1=1"
	if len(b.conds) > 0 {
		clause = strings.Join(b.conds, " AND ")
	}
	return Predicate{Clause: clause, Args: b.args}
}

// Page appends the ordering and the LIMIT/OFFSET window to p, continuing the
// placeholder numbering after p's args.
func Page(d Dialect, p Predicate, f domain.ListingFilter) (string, []any) {
	args := append([]any{}, p.Args...)
	args = append(args, f.Limit)
	limit := d.Placeholder(len(args))
	args = append(args, f.Offset())
	offset := d.Placeholder(len(args))
	return " ORDER BY l.created_at DESC LIMIT " + limit + " OFFSET " + offset, args
}

// ContainsPattern escapes LIKE wildcards in s and wraps it in %…%.
func ContainsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
