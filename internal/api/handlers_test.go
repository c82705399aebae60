package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ncnews/ncnews-backend/internal/db/entities"
	"github.com/ncnews/ncnews-backend/internal/metrics"
	"github.com/ncnews/ncnews-backend/internal/news"
)

type MockNewsService struct {
	mock.Mock
}

func (m *MockNewsService) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockNewsService) ListTopics(ctx context.Context) ([]entities.Topic, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Topic), args.Error(1)
}

func (m *MockNewsService) CreateTopic(ctx context.Context, in news.NewTopicInput) (entities.Topic, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(entities.Topic), args.Error(1)
}

func (m *MockNewsService) ListUsers(ctx context.Context) ([]entities.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.User), args.Error(1)
}

func (m *MockNewsService) GetUser(ctx context.Context, username string) (entities.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(entities.User), args.Error(1)
}

func (m *MockNewsService) ListArticles(ctx context.Context, p news.ArticleListParams) ([]entities.ArticleSummary, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.ArticleSummary), args.Error(1)
}

func (m *MockNewsService) GetArticle(ctx context.Context, id int) (entities.Article, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entities.Article), args.Error(1)
}

func (m *MockNewsService) CreateArticle(ctx context.Context, in news.NewArticleInput) (entities.Article, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(entities.Article), args.Error(1)
}

func (m *MockNewsService) VoteArticle(ctx context.Context, id, delta int) (entities.Article, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(entities.Article), args.Error(1)
}

func (m *MockNewsService) DeleteArticle(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockNewsService) ListComments(ctx context.Context, articleID int, p news.PageParams) ([]entities.Comment, error) {
	args := m.Called(ctx, articleID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Comment), args.Error(1)
}

func (m *MockNewsService) CreateComment(ctx context.Context, articleID int, in news.NewCommentInput) (entities.Comment, error) {
	args := m.Called(ctx, articleID, in)
	return args.Get(0).(entities.Comment), args.Error(1)
}

func (m *MockNewsService) VoteComment(ctx context.Context, id, delta int) (entities.Comment, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(entities.Comment), args.Error(1)
}

func (m *MockNewsService) DeleteComment(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

var _ NewsService = (*MockNewsService)(nil)

func createTestRouter(t *testing.T) (http.Handler, *MockNewsService) {
	t.Helper()

	logger := zap.NewNop().Sugar()
	svc := &MockNewsService{}

	handler, err := NewHandler(svc, nil, nil, nil, logger)
	require.NoError(t, err)

	router := handler.Routes(NewMiddleware(logger, metrics.NewNop()), RouterConfig{
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		RateLimitRPM:       60000,
		RequestTimeout:     5 * time.Second,
	})
	return router, svc
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMsg(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Msg
}

func kindError(kind news.Kind, msg string) error {
	return &news.Error{Kind: kind, Msg: msg}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind   news.Kind
		status int
	}{
		{news.KindMalformedIdentifier, http.StatusBadRequest},
		{news.KindInvalidSortColumn, http.StatusBadRequest},
		{news.KindInvalidOrderDirection, http.StatusBadRequest},
		{news.KindInvalidPagination, http.StatusBadRequest},
		{news.KindInvalidCommentFormat, http.StatusBadRequest},
		{news.KindInvalidVoteDelta, http.StatusBadRequest},
		{news.KindInvalidTopicObject, http.StatusBadRequest},
		{news.KindMissingField, http.StatusBadRequest},
		{news.KindBadRequest, http.StatusBadRequest},
		{news.KindArticleNotFound, http.StatusNotFound},
		{news.KindCommentNotFound, http.StatusNotFound},
		{news.KindUserNotFound, http.StatusNotFound},
		{news.KindTopicNotFound, http.StatusNotFound},
		{news.KindNotFound, http.StatusNotFound},
		{news.KindRouteNotFound, http.StatusNotFound},
		{news.KindTopicExists, http.StatusConflict},
		{news.KindInternal, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			assert.Equal(t, tc.status, statusFor(tc.kind))
		})
	}
}

func TestGetEndpoints(t *testing.T) {
	router, _ := createTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EndpointsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Endpoints, "GET /api/articles")
	assert.Contains(t, resp.Endpoints, "PATCH /api/comments/:comment_id")
}

func TestUnknownRoute(t *testing.T) {
	router, _ := createTestRouter(t)

	for _, path := range []string{"/not-a-route", "/api/nope", "/api/articles/1/nope"} {
		rec := do(t, router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Not found", decodeMsg(t, rec), path)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router, _ := createTestRouter(t)

	rec := do(t, router, http.MethodPut, "/api/topics", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", decodeMsg(t, rec))
}

func TestListTopics(t *testing.T) {
	router, svc := createTestRouter(t)
	svc.On("ListTopics", mock.Anything).Return([]entities.Topic{
		{Slug: "mitch", Description: "The man, the Mitch, the legend"},
	}, nil)

	rec := do(t, router, http.MethodGet, "/api/topics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp TopicsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Topics, 1)
	assert.Equal(t, "mitch", resp.Topics[0].Slug)
}

func TestCreateTopic(t *testing.T) {
	router, svc := createTestRouter(t)
	in := news.NewTopicInput{Slug: "dogs", Description: "Not cats"}
	svc.On("CreateTopic", mock.Anything, in).Return(entities.Topic{Slug: "dogs", Description: "Not cats"}, nil)

	rec := do(t, router, http.MethodPost, "/api/topics", `{"slug":"dogs","description":"Not cats"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp TopicResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "dogs", resp.Topic.Slug)
}

func TestCreateTopicEmptyBodyReachesService(t *testing.T) {
	router, svc := createTestRouter(t)
	svc.On("CreateTopic", mock.Anything, news.NewTopicInput{}).
		Return(entities.Topic{}, kindError(news.KindInvalidTopicObject, news.MsgInvalidTopicObject))

	rec := do(t, router, http.MethodPost, "/api/topics", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Topic Object", decodeMsg(t, rec))
}

func TestMalformedJSONBody(t *testing.T) {
	router, svc := createTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/articles", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Bad request", decodeMsg(t, rec))
	svc.AssertNotCalled(t, "CreateArticle", mock.Anything, mock.Anything)
}

func TestListArticlesPassesQuery(t *testing.T) {
	router, svc := createTestRouter(t)
	params := news.ArticleListParams{Topic: "cats", SortBy: "votes", Order: "asc", Limit: "5", Page: "2"}
	svc.On("ListArticles", mock.Anything, params).Return([]entities.ArticleSummary{
		{ArticleID: 5, Topic: "cats", CommentCount: 2},
	}, nil)

	rec := do(t, router, http.MethodGet, "/api/articles?topic=cats&sort_by=votes&order=asc&limit=5&p=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ArticlesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Articles, 1)
	assert.Equal(t, "cats", resp.Articles[0].Topic)
	svc.AssertExpectations(t)
}

func TestListArticlesErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"invalid sort", kindError(news.KindInvalidSortColumn, news.MsgInvalidSort), http.StatusBadRequest, "Invalid sort query"},
		{"invalid order", kindError(news.KindInvalidOrderDirection, news.MsgInvalidOrder), http.StatusBadRequest, "Invalid order query"},
		{"unknown topic", kindError(news.KindTopicNotFound, news.MsgTopicNotFound), http.StatusNotFound, "Topic not found"},
		{"internal", errors.New("connection refused"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, svc := createTestRouter(t)
			svc.On("ListArticles", mock.Anything, mock.Anything).Return(nil, tc.err)

			rec := do(t, router, http.MethodGet, "/api/articles", "")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, decodeMsg(t, rec))
		})
	}
}

func TestInternalErrorDoesNotLeakCause(t *testing.T) {
	router, svc := createTestRouter(t)
	svc.On("GetArticle", mock.Anything, 1).
		Return(entities.Article{}, errors.New(`pq: relation "articles" does not exist`))

	rec := do(t, router, http.MethodGet, "/api/articles/1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestGetArticleMalformedID(t *testing.T) {
	router, svc := createTestRouter(t)

	for _, path := range []string{"/api/articles/banana", "/api/articles/1.5", "/api/articles/99999999999"} {
		rec := do(t, router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "Bad request", decodeMsg(t, rec), path)
	}
	svc.AssertNotCalled(t, "GetArticle", mock.Anything, mock.Anything)
}

func TestGetArticleNotFound(t *testing.T) {
	router, svc := createTestRouter(t)
	svc.On("GetArticle", mock.Anything, 999).
		Return(entities.Article{}, kindError(news.KindArticleNotFound, news.MsgArticleDoesNotExist))

	rec := do(t, router, http.MethodGet, "/api/articles/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Article does not exist", decodeMsg(t, rec))
}

func TestVoteArticle(t *testing.T) {
	router, svc := createTestRouter(t)
	svc.On("VoteArticle", mock.Anything, 1, 1).Return(entities.Article{ArticleID: 1, Votes: 101}, nil)

	rec := do(t, router, http.MethodPatch, "/api/articles/1", `{"inc_votes":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ArticleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 101, resp.Article.Votes)
}

func TestVoteArticleInvalidDelta(t *testing.T) {
	router, svc := createTestRouter(t)

	for _, body := range []string{`{}`, `{"inc_votes":"one"}`, `{"inc_votes":1.5}`, `{"inc_votes":null}`, ``} {
		rec := do(t, router, http.MethodPatch, "/api/articles/1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Bad request", decodeMsg(t, rec), body)
	}
	svc.AssertNotCalled(t, "VoteArticle", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteArticle(t *testing.T) {
	router, svc := createTestRouter(t)
	svc.On("DeleteArticle", mock.Anything, 1).Return(nil)
	svc.On("DeleteArticle", mock.Anything, 999).Return(kindError(news.KindArticleNotFound, news.MsgArticleNotFound))

	rec := do(t, router, http.MethodDelete, "/api/articles/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(t, router, http.MethodDelete, "/api/articles/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListComments(t *testing.T) {
	router, svc := createTestRouter(t)
	svc.On("ListComments", mock.Anything, 2, news.PageParams{Limit: "3"}).Return([]entities.Comment{}, nil)

	rec := do(t, router, http.MethodGet, "/api/articles/2/comments?limit=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"comments":[]}`, rec.Body.String())
}

func TestCreateComment(t *testing.T) {
	router, svc := createTestRouter(t)
	in := news.NewCommentInput{Username: "lurker", Body: "first"}
	svc.On("CreateComment", mock.Anything, 2, in).
		Return(entities.Comment{CommentID: 19, ArticleID: 2, Author: "lurker", Body: "first"}, nil)

	rec := do(t, router, http.MethodPost, "/api/articles/2/comments", `{"username":"lurker","body":"first","votes":50}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp CommentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 19, resp.Comment.CommentID)
	assert.Equal(t, 0, resp.Comment.Votes)
}

func TestCreateCommentInvalidFormat(t *testing.T) {
	router, svc := createTestRouter(t)
	svc.On("CreateComment", mock.Anything, 1, news.NewCommentInput{Username: "u1"}).
		Return(entities.Comment{}, kindError(news.KindInvalidCommentFormat, news.MsgInvalidCommentFormat))

	rec := do(t, router, http.MethodPost, "/api/articles/1/comments", `{"username":"u1","body":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid comment format", decodeMsg(t, rec))
}

func TestVoteCommentReturnsOK(t *testing.T) {
	router, svc := createTestRouter(t)
	svc.On("VoteComment", mock.Anything, 4, -1).Return(entities.Comment{CommentID: 4, Votes: -101}, nil)

	rec := do(t, router, http.MethodPatch, "/api/comments/4", `{"inc_votes":-1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CommentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, -101, resp.Comment.Votes)
}

func TestDeleteComment(t *testing.T) {
	router, svc := createTestRouter(t)
	svc.On("DeleteComment", mock.Anything, 1).Return(nil)
	svc.On("DeleteComment", mock.Anything, 1000).Return(kindError(news.KindCommentNotFound, news.MsgCommentNotFound))

	rec := do(t, router, http.MethodDelete, "/api/comments/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodDelete, "/api/comments/1000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Comment not found", decodeMsg(t, rec))
}

func TestUsers(t *testing.T) {
	router, svc := createTestRouter(t)
	svc.On("ListUsers", mock.Anything).Return([]entities.User{{Username: "lurker", Name: "do_nothing"}}, nil)
	svc.On("GetUser", mock.Anything, "lurker").Return(entities.User{Username: "lurker", Name: "do_nothing"}, nil)
	svc.On("GetUser", mock.Anything, "nobody").Return(entities.User{}, kindError(news.KindUserNotFound, news.MsgUserNotFound))

	rec := do(t, router, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list UsersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Users, 1)

	rec = do(t, router, http.MethodGet, "/api/users/lurker", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var one UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, "do_nothing", one.User.Name)

	rec = do(t, router, http.MethodGet, "/api/users/nobody", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeMsg(t, rec))
}

func TestReadyz(t *testing.T) {
	router, svc := createTestRouter(t)
	svc.On("Ping", mock.Anything).Return(nil).Once()
	svc.On("Ping", mock.Anything).Return(errors.New("down")).Once()

	rec := do(t, router, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestReadyzChecksEventBus(t *testing.T) {
	logger := zap.NewNop().Sugar()
	svc := &MockNewsService{}
	svc.On("Ping", mock.Anything).Return(nil)
	bus := &MockPinger{}
	bus.On("Ping", mock.Anything).Return(nil).Once()
	bus.On("Ping", mock.Anything).Return(errors.New("redis down")).Once()

	handler, err := NewHandler(svc, bus, nil, nil, logger)
	require.NoError(t, err)
	router := handler.Routes(NewMiddleware(logger, metrics.NewNop()), RouterConfig{
		RateLimitRPM:   60000,
		RequestTimeout: 5 * time.Second,
	})

	rec := do(t, router, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NOT READY", rec.Body.String())
	bus.AssertExpectations(t)
}

func TestRequestIDHeader(t *testing.T) {
	router, svc := createTestRouter(t)
	svc.On("ListTopics", mock.Anything).Return([]entities.Topic{}, nil)

	rec := do(t, router, http.MethodGet, "/api/topics", "")
	assert.Len(t, rec.Header().Get("X-Request-Id"), 36)

	req := httptest.NewRequest(http.MethodGet, "/api/topics", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestRateLimit(t *testing.T) {
	logger := zap.NewNop().Sugar()
	limited := NewMiddleware(logger, nil).RateLimit(6)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Burst of one: the second immediate request is refused.
	rec := do(t, limited, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, limited, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded", decodeMsg(t, rec))
}

func TestRecovererReturnsJSON(t *testing.T) {
	logger := zap.NewNop().Sugar()
	h := NewMiddleware(logger, nil).Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeMsg(t, rec))
}

func TestStreamRoutesWithoutFeeds(t *testing.T) {
	router, _ := createTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/ws", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/stream", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
