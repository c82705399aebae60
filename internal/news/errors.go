package news

import "errors"

// Kind classifies a failure the API reports to clients.
type Kind int

const (
	KindInternal Kind = iota
	KindMalformedIdentifier
	KindArticleNotFound
	KindCommentNotFound
	KindUserNotFound
	KindTopicNotFound
	KindNotFound
	KindRouteNotFound
	KindInvalidSortColumn
	KindInvalidOrderDirection
	KindInvalidPagination
	KindInvalidCommentFormat
	KindInvalidVoteDelta
	KindInvalidTopicObject
	KindMissingField
	KindBadRequest
	KindTopicExists
)

var kindNames = map[Kind]string{
	KindInternal:              "Internal",
	KindMalformedIdentifier:   "MalformedIdentifier",
	KindArticleNotFound:       "ArticleNotFound",
	KindCommentNotFound:       "CommentNotFound",
	KindUserNotFound:          "UserNotFound",
	KindTopicNotFound:         "TopicNotFound",
	KindNotFound:              "NotFound",
	KindRouteNotFound:         "RouteNotFound",
	KindInvalidSortColumn:     "InvalidSortColumn",
	KindInvalidOrderDirection: "InvalidOrderDirection",
	KindInvalidPagination:     "InvalidPagination",
	KindInvalidCommentFormat:  "InvalidCommentFormat",
	KindInvalidVoteDelta:      "InvalidVoteDelta",
	KindInvalidTopicObject:    "InvalidTopicObject",
	KindMissingField:          "MissingField",
	KindBadRequest:            "BadRequest",
	KindTopicExists:           "TopicExists",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Client-facing messages.
const (
	MsgBadRequest           = "Bad request"
	MsgNotFound             = "Not found"
	MsgArticleDoesNotExist  = "Article does not exist"
	MsgArticleNotFound      = "Article not found"
	MsgCommentNotFound      = "Comment not found"
	MsgUserNotFound         = "User not found"
	MsgTopicNotFound        = "Topic not found"
	MsgInvalidSort          = "Invalid sort query"
	MsgInvalidOrder         = "Invalid order query"
	MsgInvalidPagination    = "Invalid pagination query"
	MsgInvalidCommentFormat = "Invalid comment format"
	MsgInvalidTopicObject   = "Invalid Topic Object"
	MsgTopicExists          = "Topic already exists"
	MsgInternal             = "Internal server error"
)

// Error is a classified failure. Msg is safe to show to clients; Err keeps
// the underlying cause for logs.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// RouteNotFound is reported for paths no handler serves.
func RouteNotFound() error {
	return newError(KindRouteNotFound, MsgNotFound)
}

// BadRequest is reported for request bodies that are not valid JSON.
func BadRequest(err error) error {
	return wrapError(KindBadRequest, MsgBadRequest, err)
}
