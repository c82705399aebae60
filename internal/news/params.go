package news

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/ncnews/ncnews-backend/internal/db/query"
)

const (
	DefaultSortBy = "created_at"
	DefaultOrder  = query.Desc
	DefaultLimit  = 10
	DefaultPage   = 1
)

// ArticleListParams are the raw query string values of an article listing.
// Empty strings mean the parameter was not given.
type ArticleListParams struct {
	Topic  string
	SortBy string
	Order  string
	Limit  string
	Page   string
}

// PageParams are the raw limit and p query values.
type PageParams struct {
	Limit string
	Page  string
}

// ParseArticleListParams validates raw listing parameters against the given
// set of existing topic slugs. Checks run in a fixed order (sort column,
// direction, topic, paging) and the first failure is returned.
func ParseArticleListParams(p ArticleListParams, topics map[string]struct{}) (query.ArticleList, error) {
	q := query.ArticleList{SortBy: DefaultSortBy, Order: DefaultOrder}

	if p.SortBy != "" {
		if !query.IsArticleSortColumn(p.SortBy) {
			return query.ArticleList{}, newError(KindInvalidSortColumn, MsgInvalidSort)
		}
		q.SortBy = p.SortBy
	}

	if p.Order != "" {
		dir, ok := query.ParseDirection(p.Order)
		if !ok {
			return query.ArticleList{}, newError(KindInvalidOrderDirection, MsgInvalidOrder)
		}
		q.Order = dir
	}

	if p.Topic != "" {
		if _, ok := topics[p.Topic]; !ok {
			return query.ArticleList{}, newError(KindTopicNotFound, MsgTopicNotFound)
		}
		q.Topic = p.Topic
	}

	limit, offset, err := ParsePage(PageParams{Limit: p.Limit, Page: p.Page})
	if err != nil {
		return query.ArticleList{}, err
	}
	q.Limit, q.Offset = limit, offset

	return q, nil
}

// ParsePage resolves limit and 1-based page into limit and offset.
func ParsePage(p PageParams) (limit, offset int, err error) {
	limit, page := DefaultLimit, DefaultPage

	if p.Limit != "" {
		if limit, err = positiveInt(p.Limit); err != nil {
			return 0, 0, err
		}
	}
	if p.Page != "" {
		if page, err = positiveInt(p.Page); err != nil {
			return 0, 0, err
		}
	}

	if page-1 > math.MaxInt32/limit {
		return 0, 0, newError(KindInvalidPagination, MsgInvalidPagination)
	}
	return limit, (page - 1) * limit, nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, wrapError(KindInvalidPagination, MsgInvalidPagination, err)
	}
	return n, nil
}

// ParseID parses a numeric path identifier.
func ParseID(s string) (int, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, wrapError(KindMalformedIdentifier, MsgBadRequest, err)
	}
	return int(n), nil
}

// ParseVoteDelta reads the inc_votes value. It must be a JSON integer.
func ParseVoteDelta(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, newError(KindInvalidVoteDelta, MsgBadRequest)
	}

	var delta int32
	if err := json.Unmarshal(raw, &delta); err != nil {
		return 0, wrapError(KindInvalidVoteDelta, MsgBadRequest, err)
	}
	return int(delta), nil
}
