package repository

import (
	"context"

	"github.com/ncnews/ncnews-backend/internal/db/entities"
)

func (r *Repository) ListTopics(ctx context.Context) ([]entities.Topic, error) {
	topics := []entities.Topic{}
	err := r.selectAll(ctx, "list topics", &topics,
		`SELECT slug, description FROM topics ORDER BY slug`)
	return topics, err
}

// TopicSlugs returns the set of slugs currently stored.
func (r *Repository) TopicSlugs(ctx context.Context) (map[string]struct{}, error) {
	var slugs []string
	if err := r.selectAll(ctx, "list topic slugs", &slugs, `SELECT slug FROM topics`); err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		set[s] = struct{}{}
	}
	return set, nil
}

func (r *Repository) TopicExists(ctx context.Context, slug string) (bool, error) {
	return r.exists(ctx, "topic exists", `SELECT 1 FROM topics WHERE slug = ?`, slug)
}

func (r *Repository) InsertTopic(ctx context.Context, topic entities.Topic) (entities.Topic, error) {
	if _, err := r.exec(ctx, "insert topic",
		`INSERT INTO topics (slug, description) VALUES (?, ?)`,
		topic.Slug, topic.Description); err != nil {
		return entities.Topic{}, err
	}

	var created entities.Topic
	err := r.get(ctx, "get topic", &created,
		`SELECT slug, description FROM topics WHERE slug = ?`, topic.Slug)
	return created, err
}
