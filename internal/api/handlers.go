package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ncnews/ncnews-backend/internal/db/entities"
	"github.com/ncnews/ncnews-backend/internal/news"
)

const maxBodyBytes = 1 << 20

//go:embed endpoints.yaml
var endpointsYAML []byte

// NewsService is the set of operations the handlers call. *news.Service
// implements it.
type NewsService interface {
	Ping(ctx context.Context) error

	ListTopics(ctx context.Context) ([]entities.Topic, error)
	CreateTopic(ctx context.Context, in news.NewTopicInput) (entities.Topic, error)

	ListUsers(ctx context.Context) ([]entities.User, error)
	GetUser(ctx context.Context, username string) (entities.User, error)

	ListArticles(ctx context.Context, p news.ArticleListParams) ([]entities.ArticleSummary, error)
	GetArticle(ctx context.Context, id int) (entities.Article, error)
	CreateArticle(ctx context.Context, in news.NewArticleInput) (entities.Article, error)
	VoteArticle(ctx context.Context, id, delta int) (entities.Article, error)
	DeleteArticle(ctx context.Context, id int) error

	ListComments(ctx context.Context, articleID int, p news.PageParams) ([]entities.Comment, error)
	CreateComment(ctx context.Context, articleID int, in news.NewCommentInput) (entities.Comment, error)
	VoteComment(ctx context.Context, id, delta int) (entities.Comment, error)
	DeleteComment(ctx context.Context, id int) error
}

var _ NewsService = (*news.Service)(nil)

// Pinger reports whether a backing service answers. events.Bus implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc       NewsService
	bus       Pinger
	wsHandler http.Handler
	sse       http.Handler
	endpoints map[string]any
	logger    *zap.SugaredLogger
}

// NewHandler wires the service, the event bus checked by /readyz and the live
// feeds. bus and either feed may be nil; a nil feed's route answers 404.
func NewHandler(svc NewsService, bus Pinger, wsHandler, sse http.Handler, logger *zap.SugaredLogger) (*Handler, error) {
	var endpoints map[string]any
	if err := yaml.Unmarshal(endpointsYAML, &endpoints); err != nil {
		return nil, fmt.Errorf("failed to parse endpoints document: %w", err)
	}

	return &Handler{
		svc:       svc,
		bus:       bus,
		wsHandler: wsHandler,
		sse:       sse,
		endpoints: endpoints,
		logger:    logger,
	}, nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Readyz reports ready once the database, and the event bus when set,
// answer a ping.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]Pinger{"database": h.svc}
	if h.bus != nil {
		checks["event bus"] = h.bus
	}

	for name, p := range checks {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warnw("Readiness check failed", "dependency", name, "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("NOT READY"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}

func (h *Handler) GetEndpoints(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, EndpointsResponse{Endpoints: h.endpoints})
}

// Topics

func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.svc.ListTopics(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, TopicsResponse{Topics: topics})
}

func (h *Handler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var in news.NewTopicInput
	if err := h.decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	topic, err := h.svc.CreateTopic(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, TopicResponse{Topic: topic})
}

// Users

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, UsersResponse{Users: users})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, UserResponse{User: user})
}

// Live feeds

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHandler == nil {
		h.NotFound(w, r)
		return
	}
	h.wsHandler.ServeHTTP(w, r)
}

func (h *Handler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	if h.sse == nil {
		h.NotFound(w, r)
		return
	}
	h.sse.ServeHTTP(w, r)
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeServiceError(w, r, news.RouteNotFound())
}

func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// Utility methods

// decodeJSON reads a JSON object body into dst. An empty body leaves dst at
// its zero value so the service reports the missing fields.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return news.BadRequest(err)
	}
	return nil
}

// pathID parses a numeric path parameter.
func pathID(r *http.Request, name string) (int, error) {
	return news.ParseID(chi.URLParam(r, name))
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warnw("Failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, ErrorResponse{Msg: msg})
}
