package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidQuery is returned for a query that would need an unchecked
// identifier spliced into SQL.
var ErrInvalidQuery = errors.New("invalid query")

// Direction is a SQL sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts only the exact lowercase keywords.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case Asc, Desc:
		return Direction(s), true
	}
	return "", false
}

func (d Direction) sql() string {
	return strings.ToUpper(string(d))
}

// Builder assembles a single SELECT with ? placeholders. Callers rebind for
// their driver.
type Builder struct {
	columns []string
	from    string
	joins   []string
	where   []string
	args    []any
	groupBy string
	orderBy []string
	limit   int
	offset  int
}

func Select(columns ...string) *Builder {
	return &Builder{columns: columns}
}

func (b *Builder) From(table string) *Builder {
	b.from = table
	return b
}

func (b *Builder) LeftJoin(clause string) *Builder {
	b.joins = append(b.joins, "LEFT JOIN "+clause)
	return b
}

func (b *Builder) Where(cond string, args ...any) *Builder {
	b.where = append(b.where, cond)
	b.args = append(b.args, args...)
	return b
}

func (b *Builder) GroupBy(column string) *Builder {
	b.groupBy = column
	return b
}

func (b *Builder) OrderBy(column string, dir Direction) *Builder {
	b.orderBy = append(b.orderBy, column+" "+dir.sql())
	return b
}

// Page sets LIMIT and OFFSET; a zero limit leaves the result unbounded.
func (b *Builder) Page(limit, offset int) *Builder {
	b.limit = limit
	b.offset = offset
	return b
}

func (b *Builder) ToSQL() (string, []any) {
	var sb strings.Builder
	args := append([]any(nil), b.args...)

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(b.columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.from)
	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	if b.groupBy != "" {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(b.groupBy)
	}
	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, b.limit, b.offset)
	}

	return sb.String(), args
}

// articleSortColumns maps the public sort keys to qualified columns. Nothing
// outside this map ever reaches ORDER BY.
var articleSortColumns = map[string]string{
	"article_id":      "a.article_id",
	"author":          "a.author",
	"title":           "a.title",
	"topic":           "a.topic",
	"created_at":      "a.created_at",
	"votes":           "a.votes",
	"article_img_url": "a.article_img_url",
}

// IsArticleSortColumn reports whether name is an allowed article sort key.
func IsArticleSortColumn(name string) bool {
	_, ok := articleSortColumns[name]
	return ok
}

// ArticleSortColumns lists the allowed sort keys in a stable order.
func ArticleSortColumns() []string {
	keys := make([]string, 0, len(articleSortColumns))
	for k := range articleSortColumns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ArticleList is a validated article listing request. An empty Topic lists
// every topic.
type ArticleList struct {
	Topic  string
	SortBy string
	Order  Direction
	Limit  int
	Offset int
}

func (q ArticleList) ToSQL() (string, []any, error) {
	column, ok := articleSortColumns[q.SortBy]
	if !ok {
		return "", nil, fmt.Errorf("%w: sort column %q", ErrInvalidQuery, q.SortBy)
	}
	if _, ok := ParseDirection(string(q.Order)); !ok {
		return "", nil, fmt.Errorf("%w: order %q", ErrInvalidQuery, q.Order)
	}

	b := Select(
		"a.article_id", "a.author", "a.title", "a.topic", "a.created_at", "a.votes", "a.article_img_url",
		"COUNT(c.comment_id) AS comment_count",
	).
		From("articles a").
		LeftJoin("comments c ON c.article_id = a.article_id")

	if q.Topic != "" {
		b.Where("a.topic = ?", q.Topic)
	}

	b.GroupBy("a.article_id").OrderBy(column, q.Order)
	if column != "a.article_id" {
		b.OrderBy("a.article_id", q.Order)
	}
	b.Page(q.Limit, q.Offset)

	sql, args := b.ToSQL()
	return sql, args, nil
}

// CommentList pages through one article's comments, newest first.
type CommentList struct {
	ArticleID int
	Limit     int
	Offset    int
}

func (q CommentList) ToSQL() (string, []any) {
	return Select("comment_id", "body", "article_id", "author", "votes", "created_at").
		From("comments").
		Where("article_id = ?", q.ArticleID).
		OrderBy("created_at", Desc).
		OrderBy("comment_id", Desc).
		Page(q.Limit, q.Offset).
		ToSQL()
}
