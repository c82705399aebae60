package news

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ncnews/ncnews-backend/internal/db"
	"github.com/ncnews/ncnews-backend/internal/db/entities"
	"github.com/ncnews/ncnews-backend/internal/db/query"
	"github.com/ncnews/ncnews-backend/internal/events"
	"github.com/ncnews/ncnews-backend/internal/metrics"
	"github.com/ncnews/ncnews-backend/internal/repository"
)

// NewTopicInput is the body of a topic creation request.
type NewTopicInput struct {
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// NewArticleInput is the body of an article creation request.
type NewArticleInput struct {
	Author        string `json:"author"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	Topic         string `json:"topic"`
	ArticleImgURL string `json:"article_img_url"`
}

// NewCommentInput is the body of a comment creation request. Other fields
// in the body are ignored.
type NewCommentInput struct {
	Username string `json:"username"`
	Body     string `json:"body"`
}

// Service validates requests, runs the existence checks that pick the
// right error kind, performs the write and publishes a domain event.
type Service struct {
	repo      *repository.Repository
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.SugaredLogger

	sf singleflight.Group // dedupes concurrent slug lookups
}

const slugLookupTimeout = 5 * time.Second

func NewService(repo *repository.Repository, publisher events.Publisher, m *metrics.Metrics, logger *zap.SugaredLogger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Topics

func (s *Service) ListTopics(ctx context.Context) ([]entities.Topic, error) {
	topics, err := s.repo.ListTopics(ctx)
	if err != nil {
		return nil, s.storageError("list topics", err)
	}
	return topics, nil
}

func (s *Service) CreateTopic(ctx context.Context, in NewTopicInput) (entities.Topic, error) {
	if in.Slug == "" || in.Description == "" {
		return entities.Topic{}, newError(KindInvalidTopicObject, MsgInvalidTopicObject)
	}

	exists, err := s.repo.TopicExists(ctx, in.Slug)
	if err != nil {
		return entities.Topic{}, s.storageError("check topic", err)
	}
	if exists {
		return entities.Topic{}, newError(KindTopicExists, MsgTopicExists)
	}

	topic, err := s.repo.InsertTopic(ctx, entities.Topic{Slug: in.Slug, Description: in.Description})
	if err != nil {
		if errors.Is(err, db.ErrUniqueConstraint) {
			return entities.Topic{}, wrapError(KindTopicExists, MsgTopicExists, err)
		}
		return entities.Topic{}, s.storageError("insert topic", err)
	}

	s.publish(ctx, events.TopicCreated, topic.Slug, topic)
	return topic, nil
}

// Users

func (s *Service) ListUsers(ctx context.Context) ([]entities.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, s.storageError("list users", err)
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, username string) (entities.User, error) {
	user, err := s.repo.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return entities.User{}, newError(KindUserNotFound, MsgUserNotFound)
		}
		return entities.User{}, s.storageError("get user", err)
	}
	return user, nil
}

// Articles

// ListArticles validates p against the topics stored right now and returns
// one page of summaries.
func (s *Service) ListArticles(ctx context.Context, p ArticleListParams) ([]entities.ArticleSummary, error) {
	var topics map[string]struct{}
	if p.Topic != "" {
		var err error
		if topics, err = s.topicSlugs(ctx); err != nil {
			return nil, err
		}
	}

	q, err := ParseArticleListParams(p, topics)
	if err != nil {
		return nil, err
	}

	articles, err := s.repo.ListArticles(ctx, q)
	if err != nil {
		return nil, s.storageError("list articles", err)
	}
	return articles, nil
}

func (s *Service) GetArticle(ctx context.Context, id int) (entities.Article, error) {
	article, err := s.repo.GetArticle(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return entities.Article{}, newError(KindArticleNotFound, MsgArticleDoesNotExist)
		}
		return entities.Article{}, s.storageError("get article", err)
	}
	return article, nil
}

func (s *Service) CreateArticle(ctx context.Context, in NewArticleInput) (entities.Article, error) {
	if in.Author == "" || in.Title == "" || in.Body == "" || in.Topic == "" {
		return entities.Article{}, newError(KindMissingField, MsgBadRequest)
	}
	if in.ArticleImgURL == "" {
		in.ArticleImgURL = entities.DefaultArticleImgURL
	}

	userExists, err := s.repo.UserExists(ctx, in.Author)
	if err != nil {
		return entities.Article{}, s.storageError("check author", err)
	}
	if !userExists {
		return entities.Article{}, newError(KindUserNotFound, MsgNotFound)
	}

	topicExists, err := s.repo.TopicExists(ctx, in.Topic)
	if err != nil {
		return entities.Article{}, s.storageError("check topic", err)
	}
	if !topicExists {
		return entities.Article{}, newError(KindTopicNotFound, MsgNotFound)
	}

	id, err := s.repo.InsertArticle(ctx, entities.NewArticle{
		Author:        in.Author,
		Title:         in.Title,
		Body:          in.Body,
		Topic:         in.Topic,
		ArticleImgURL: in.ArticleImgURL,
	})
	if err != nil {
		return entities.Article{}, s.storageError("insert article", err)
	}

	// Re-read so the response carries the derived comment_count.
	article, err := s.repo.GetArticle(ctx, id)
	if err != nil {
		return entities.Article{}, s.storageError("get created article", err)
	}

	s.publish(ctx, events.ArticleCreated, strconv.Itoa(id), article)
	return article, nil
}

// VoteArticle adds delta to the article's votes unless that would take them
// below zero, in which case nothing changes and KindInvalidVoteDelta is
// returned.
func (s *Service) VoteArticle(ctx context.Context, id, delta int) (entities.Article, error) {
	if err := s.requireArticle(ctx, id, MsgArticleNotFound); err != nil {
		return entities.Article{}, err
	}

	article, err := s.repo.AddArticleVotes(ctx, id, delta)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Zero rows: the floor rejected it, unless the row vanished meanwhile.
			if err := s.requireArticle(ctx, id, MsgArticleNotFound); err != nil {
				return entities.Article{}, err
			}
			return entities.Article{}, wrapError(KindInvalidVoteDelta, MsgBadRequest,
				fmt.Errorf("votes would drop below zero"))
		}
		return entities.Article{}, s.storageError("vote article", err)
	}

	s.recordVote(ctx, "article")
	s.publish(ctx, events.ArticleVoted, strconv.Itoa(id), voteEvent{ID: id, Delta: delta, Votes: article.Votes})
	return article, nil
}

// DeleteArticle removes the article and, first, every comment on it, in one
// transaction.
func (s *Service) DeleteArticle(ctx context.Context, id int) error {
	var removed int64
	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		exists, err := tx.ArticleExists(ctx, id)
		if err != nil {
			return s.storageError("check article", err)
		}
		if !exists {
			return newError(KindArticleNotFound, MsgArticleNotFound)
		}

		if removed, err = tx.DeleteCommentsByArticle(ctx, id); err != nil {
			return s.storageError("delete article comments", err)
		}
		if err := tx.DeleteArticle(ctx, id); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return newError(KindArticleNotFound, MsgArticleNotFound)
			}
			return s.storageError("delete article", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debugw("Article deleted", "article_id", id, "comments_removed", removed)
	s.publish(ctx, events.ArticleDeleted, strconv.Itoa(id), map[string]any{
		"article_id":       id,
		"comments_removed": removed,
	})
	return nil
}

// Comments

// ListComments pages through an article's comments, newest first. An
// existing article without comments yields an empty list.
func (s *Service) ListComments(ctx context.Context, articleID int, p PageParams) ([]entities.Comment, error) {
	limit, offset, err := ParsePage(p)
	if err != nil {
		return nil, err
	}

	if err := s.requireArticle(ctx, articleID, MsgArticleDoesNotExist); err != nil {
		return nil, err
	}

	comments, err := s.repo.ListComments(ctx, query.CommentList{ArticleID: articleID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, s.storageError("list comments", err)
	}
	return comments, nil
}

func (s *Service) CreateComment(ctx context.Context, articleID int, in NewCommentInput) (entities.Comment, error) {
	if in.Username == "" || in.Body == "" {
		return entities.Comment{}, newError(KindInvalidCommentFormat, MsgInvalidCommentFormat)
	}

	if err := s.requireArticle(ctx, articleID, MsgArticleNotFound); err != nil {
		return entities.Comment{}, err
	}

	userExists, err := s.repo.UserExists(ctx, in.Username)
	if err != nil {
		return entities.Comment{}, s.storageError("check user", err)
	}
	if !userExists {
		return entities.Comment{}, newError(KindUserNotFound, MsgUserNotFound)
	}

	comment, err := s.repo.InsertComment(ctx, entities.NewComment{
		ArticleID: articleID,
		Author:    in.Username,
		Body:      in.Body,
	})
	if err != nil {
		return entities.Comment{}, s.storageError("insert comment", err)
	}

	s.publish(ctx, events.CommentCreated, strconv.Itoa(comment.CommentID), comment)
	return comment, nil
}

// VoteComment adds delta with no lower bound.
func (s *Service) VoteComment(ctx context.Context, id, delta int) (entities.Comment, error) {
	if err := s.requireComment(ctx, id); err != nil {
		return entities.Comment{}, err
	}

	comment, err := s.repo.AddCommentVotes(ctx, id, delta)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return entities.Comment{}, newError(KindCommentNotFound, MsgCommentNotFound)
		}
		return entities.Comment{}, s.storageError("vote comment", err)
	}

	s.recordVote(ctx, "comment")
	s.publish(ctx, events.CommentVoted, strconv.Itoa(id), voteEvent{ID: id, Delta: delta, Votes: comment.Votes})
	return comment, nil
}

func (s *Service) DeleteComment(ctx context.Context, id int) error {
	if err := s.requireComment(ctx, id); err != nil {
		return err
	}

	if err := s.repo.DeleteComment(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return newError(KindCommentNotFound, MsgCommentNotFound)
		}
		return s.storageError("delete comment", err)
	}

	s.publish(ctx, events.CommentDeleted, strconv.Itoa(id), map[string]int{"comment_id": id})
	return nil
}

// helpers

type voteEvent struct {
	ID    int `json:"id"`
	Delta int `json:"inc_votes"`
	Votes int `json:"votes"`
}

// topicSlugs reads the current slug set. Concurrent callers share one query,
// which runs detached from any single caller's cancellation; each caller
// still stops waiting when its own context ends. The returned map must not
// be modified.
func (s *Service) topicSlugs(ctx context.Context) (map[string]struct{}, error) {
	ch := s.sf.DoChan("topic-slugs", func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), slugLookupTimeout)
		defer cancel()
		return s.repo.TopicSlugs(lookupCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, s.storageError("list topic slugs", res.Err)
		}
		return res.Val.(map[string]struct{}), nil
	case <-ctx.Done():
		return nil, s.storageError("list topic slugs", ctx.Err())
	}
}

func (s *Service) requireArticle(ctx context.Context, id int, msg string) error {
	exists, err := s.repo.ArticleExists(ctx, id)
	if err != nil {
		return s.storageError("check article", err)
	}
	if !exists {
		return newError(KindArticleNotFound, msg)
	}
	return nil
}

func (s *Service) requireComment(ctx context.Context, id int) error {
	exists, err := s.repo.CommentExists(ctx, id)
	if err != nil {
		return s.storageError("check comment", err)
	}
	if !exists {
		return newError(KindCommentNotFound, MsgCommentNotFound)
	}
	return nil
}

// storageError classifies an error from the repository. Constraint and type
// errors become client errors; everything else stays internal.
func (s *Service) storageError(op string, err error) error {
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	switch {
	case errors.Is(err, db.ErrForeignKeyConstraint):
		return wrapError(KindNotFound, MsgNotFound, err)
	case errors.Is(err, db.ErrInvalidInput):
		return wrapError(KindBadRequest, MsgBadRequest, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// publish is best effort: the write has already committed.
func (s *Service) publish(ctx context.Context, eventType, id string, payload any) {
	if s.publisher == nil {
		return
	}

	ev, err := events.New(eventType, id, payload)
	if err != nil {
		s.logger.Warnw("Failed to build event", "type", eventType, "id", id, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warnw("Failed to publish event", "type", eventType, "id", id, "error", err)
	}
}

func (s *Service) recordVote(ctx context.Context, target string) {
	if s.metrics != nil {
		s.metrics.RecordVote(ctx, target)
	}
}
