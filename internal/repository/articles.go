package repository

import (
	"context"

	"github.com/ncnews/ncnews-backend/internal/db"
	"github.com/ncnews/ncnews-backend/internal/db/entities"
	"github.com/ncnews/ncnews-backend/internal/db/query"
)

const articleColumns = `article_id, author, title, body, topic, created_at, votes, article_img_url`

func (r *Repository) ListArticles(ctx context.Context, q query.ArticleList) ([]entities.ArticleSummary, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, &db.DatabaseError{Op: "list articles", Err: err}
	}

	articles := []entities.ArticleSummary{}
	if err := r.selectAll(ctx, "list articles", &articles, sql, args...); err != nil {
		return nil, err
	}
	return articles, nil
}

// GetArticle returns the full article with its live comment count.
func (r *Repository) GetArticle(ctx context.Context, id int) (entities.Article, error) {
	sql, args := query.Select(
		"a.article_id", "a.author", "a.title", "a.body", "a.topic", "a.created_at", "a.votes", "a.article_img_url",
		"COUNT(c.comment_id) AS comment_count",
	).
		From("articles a").
		LeftJoin("comments c ON c.article_id = a.article_id").
		Where("a.article_id = ?", id).
		GroupBy("a.article_id").
		ToSQL()

	var article entities.Article
	err := r.get(ctx, "get article", &article, sql, args...)
	return article, err
}

func (r *Repository) ArticleExists(ctx context.Context, id int) (bool, error) {
	return r.exists(ctx, "article exists", `SELECT 1 FROM articles WHERE article_id = ?`, id)
}

// InsertArticle stores the article and returns its assigned id.
func (r *Repository) InsertArticle(ctx context.Context, a entities.NewArticle) (int, error) {
	var id int
	err := r.get(ctx, "insert article", &id,
		`INSERT INTO articles (author, title, body, topic, article_img_url)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING article_id`,
		a.Author, a.Title, a.Body, a.Topic, a.ArticleImgURL)
	return id, err
}

// AddArticleVotes applies delta in one conditional UPDATE that only matches
// when the result stays non-negative. A missing row and a floor violation
// both surface as db.ErrNotFound; callers tell them apart with ArticleExists.
func (r *Repository) AddArticleVotes(ctx context.Context, id, delta int) (entities.Article, error) {
	var updated int
	if err := r.get(ctx, "vote article", &updated,
		`UPDATE articles SET votes = votes + ?
		 WHERE article_id = ? AND votes + ? >= 0
		 RETURNING article_id`,
		delta, id, delta); err != nil {
		return entities.Article{}, err
	}

	var article entities.Article
	err := r.get(ctx, "get article", &article,
		`SELECT `+articleColumns+` FROM articles WHERE article_id = ?`, updated)
	return article, err
}

// DeleteArticle removes the article row only; comments must be removed first.
func (r *Repository) DeleteArticle(ctx context.Context, id int) error {
	n, err := r.exec(ctx, "delete article", `DELETE FROM articles WHERE article_id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return &db.DatabaseError{Op: "delete article", Err: db.ErrNotFound}
	}
	return nil
}
