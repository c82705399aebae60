package repository

import (
	"context"

	"github.com/ncnews/ncnews-backend/internal/db"
	"github.com/ncnews/ncnews-backend/internal/db/entities"
	"github.com/ncnews/ncnews-backend/internal/db/query"
)

const commentColumns = `comment_id, body, article_id, author, votes, created_at`

func (r *Repository) ListComments(ctx context.Context, q query.CommentList) ([]entities.Comment, error) {
	sql, args := q.ToSQL()

	comments := []entities.Comment{}
	if err := r.selectAll(ctx, "list comments", &comments, sql, args...); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *Repository) GetComment(ctx context.Context, id int) (entities.Comment, error) {
	var comment entities.Comment
	err := r.get(ctx, "get comment", &comment,
		`SELECT `+commentColumns+` FROM comments WHERE comment_id = ?`, id)
	return comment, err
}

func (r *Repository) CommentExists(ctx context.Context, id int) (bool, error) {
	return r.exists(ctx, "comment exists", `SELECT 1 FROM comments WHERE comment_id = ?`, id)
}

func (r *Repository) InsertComment(ctx context.Context, c entities.NewComment) (entities.Comment, error) {
	var id int
	if err := r.get(ctx, "insert comment", &id,
		`INSERT INTO comments (body, article_id, author) VALUES (?, ?, ?) RETURNING comment_id`,
		c.Body, c.ArticleID, c.Author); err != nil {
		return entities.Comment{}, err
	}
	return r.GetComment(ctx, id)
}

// AddCommentVotes applies delta with no floor.
func (r *Repository) AddCommentVotes(ctx context.Context, id, delta int) (entities.Comment, error) {
	n, err := r.exec(ctx, "vote comment",
		`UPDATE comments SET votes = votes + ? WHERE comment_id = ?`, delta, id)
	if err != nil {
		return entities.Comment{}, err
	}
	if n == 0 {
		return entities.Comment{}, &db.DatabaseError{Op: "vote comment", Err: db.ErrNotFound}
	}
	return r.GetComment(ctx, id)
}

func (r *Repository) DeleteComment(ctx context.Context, id int) error {
	n, err := r.exec(ctx, "delete comment", `DELETE FROM comments WHERE comment_id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return &db.DatabaseError{Op: "delete comment", Err: db.ErrNotFound}
	}
	return nil
}

// DeleteCommentsByArticle returns how many comments were removed.
func (r *Repository) DeleteCommentsByArticle(ctx context.Context, articleID int) (int64, error) {
	return r.exec(ctx, "delete article comments", `DELETE FROM comments WHERE article_id = ?`, articleID)
}
