package api

import (
	"encoding/json"

	"github.com/ncnews/ncnews-backend/internal/db/entities"
)

// Response envelopes. Every success body wraps its payload in a single key.

type TopicsResponse struct {
	Topics []entities.Topic `json:"topics"`
}

type TopicResponse struct {
	Topic entities.Topic `json:"topic"`
}

type ArticlesResponse struct {
	Articles []entities.ArticleSummary `json:"articles"`
}

type ArticleResponse struct {
	Article entities.Article `json:"article"`
}

type CommentsResponse struct {
	Comments []entities.Comment `json:"comments"`
}

type CommentResponse struct {
	Comment entities.Comment `json:"comment"`
}

type UsersResponse struct {
	Users []entities.User `json:"users"`
}

type UserResponse struct {
	User entities.User `json:"user"`
}

type EndpointsResponse struct {
	Endpoints map[string]any `json:"endpoints"`
}

type ErrorResponse struct {
	Msg string `json:"msg"`
}

// VoteRequest keeps inc_votes raw so a missing or non-numeric value can be
// told apart from zero.
type VoteRequest struct {
	IncVotes json.RawMessage `json:"inc_votes"`
}
