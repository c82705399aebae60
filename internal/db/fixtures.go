package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ncnews/ncnews-backend/internal/db/entities"
)

// ArticleFixture is an article row with its id and timestamp fixed, so seeded
// databases are identical across runs.
type ArticleFixture struct {
	ArticleID     int
	Title         string
	Topic         string
	Author        string
	Body          string
	CreatedAt     time.Time
	Votes         int
	ArticleImgURL string
}

type CommentFixture struct {
	CommentID int
	Body      string
	ArticleID int
	Author    string
	Votes     int
	CreatedAt time.Time
}

// Fixtures is a complete seed data set.
type Fixtures struct {
	Topics   []entities.Topic
	Users    []entities.User
	Articles []ArticleFixture
	Comments []CommentFixture
}

func at(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(fmt.Sprintf("bad fixture timestamp %q: %v", value, err))
	}
	return t
}

const fixtureImg = "https://images.pexels.com/photos/158651/news-newsletter-newspaper-information-158651.jpeg?w=700&h=700"

// TestFixtures is the small data set the test suites and local development
// seed from. Article 1 carries 100 votes and most comments, "cats" has a
// single article and "paper" has none.
var TestFixtures = Fixtures{
	Topics: []entities.Topic{
		{Slug: "mitch", Description: "The man, the Mitch, the legend"},
		{Slug: "cats", Description: "Not dogs"},
		{Slug: "paper", Description: "what books are made of"},
	},
	Users: []entities.User{
		{Username: "butter_bridge", Name: "jonny", AvatarURL: "https://www.healthytherapies.com/wp-content/uploads/2016/06/Lime3.jpg"},
		{Username: "icellusedkars", Name: "sam", AvatarURL: "https://avatars2.githubusercontent.com/u/24604688?s=460&v=4"},
		{Username: "rogersop", Name: "paul", AvatarURL: "https://avatars2.githubusercontent.com/u/24394918?s=400&v=4"},
		{Username: "lurker", Name: "do_nothing", AvatarURL: "https://www.golenbock.com/wp-content/uploads/2015/01/placeholder-user.png"},
	},
	Articles: []ArticleFixture{
		{1, "Living in the shadow of a great man", "mitch", "butter_bridge", "I find this existence challenging", at("2020-07-09T20:11:00Z"), 100, fixtureImg},
		{2, "Sony Vaio; or, The Laptop", "mitch", "icellusedkars", "Call me Mitchell. Some years ago I was without a laptop.", at("2020-10-16T05:03:00Z"), 0, fixtureImg},
		{3, "Eight pug gifs that remind me of mitch", "mitch", "icellusedkars", "some gifs", at("2020-11-03T09:12:00Z"), 0, fixtureImg},
		{4, "Student SUES Mitch!", "mitch", "rogersop", "We all love Mitch and his wonderful, unique typing style.", at("2020-05-06T01:14:00Z"), 0, fixtureImg},
		{5, "UNCOVERED: catspiracy to bring down democracy", "cats", "rogersop", "Bastet walks amongst us, and the cats are taking arms!", at("2020-08-03T13:14:00Z"), 0, fixtureImg},
		{6, "A", "mitch", "icellusedkars", "Delicious tin of cat food", at("2020-10-18T01:00:00Z"), 0, fixtureImg},
		{7, "Z", "mitch", "icellusedkars", "I was hungry.", at("2020-01-07T14:08:00Z"), 0, fixtureImg},
		{8, "Does Mitch predate civilisation?", "mitch", "icellusedkars", "Archaeologists have uncovered a gigantic statue from the dawn of humanity.", at("2020-04-17T01:08:00Z"), 0, fixtureImg},
		{9, "They're not exactly dogs, are they?", "mitch", "butter_bridge", "Well? Think about it.", at("2020-06-06T09:10:00Z"), 0, fixtureImg},
		{10, "Seven inspirational thought leaders from Manchester UK", "mitch", "rogersop", "Who are we kidding, there is only one, and it's Mitch!", at("2020-05-14T04:15:00Z"), 0, fixtureImg},
		{11, "Am I a cat?", "mitch", "icellusedkars", "Having run out of ideas for articles, I am staring at the wall blankly.", at("2020-01-15T22:21:00Z"), 0, fixtureImg},
		{12, "Moustache", "mitch", "butter_bridge", "Have you seen the size of that thing?", at("2020-10-11T11:24:00Z"), 0, fixtureImg},
		{13, "Another article about Mitch", "mitch", "butter_bridge", "There will never be enough articles about Mitch!", at("2020-10-11T11:24:00Z"), 0, fixtureImg},
	},
	Comments: []CommentFixture{
		{1, "Oh, I've got compassion running out of my nose, pal! I'm the Sultan of Sentiment!", 9, "butter_bridge", 16, at("2020-04-06T12:17:00Z")},
		{2, "The beautiful thing about treasure is that it exists. Got to find out what kind of sheets these are; not cotton, not rayon, silky.", 1, "butter_bridge", 14, at("2020-10-31T03:03:00Z")},
		{3, "Replacing the quiet elegance of the dark suit and tie with the casual indifference of these muted earth tones is a form of fashion suicide.", 1, "icellusedkars", 100, at("2020-03-01T01:13:00Z")},
		{4, "I carry a log. Yes. Is it funny to you? It is not to me.", 1, "icellusedkars", -100, at("2020-02-23T12:01:00Z")},
		{5, "I hate streaming noses", 1, "icellusedkars", 0, at("2020-11-03T21:00:00Z")},
		{6, "I hate streaming eyes even more", 1, "icellusedkars", 0, at("2020-04-11T21:02:00Z")},
		{7, "Lobster pot", 1, "icellusedkars", 0, at("2020-05-15T20:19:00Z")},
		{8, "Delicious crackerbreads", 1, "icellusedkars", 0, at("2020-04-14T20:19:00Z")},
		{9, "Superficially charming", 1, "icellusedkars", 0, at("2020-01-01T03:08:00Z")},
		{10, "git push origin master", 3, "icellusedkars", 0, at("2020-06-20T07:24:00Z")},
		{11, "Ambidextrous marsupial", 3, "icellusedkars", 0, at("2020-09-19T23:10:00Z")},
		{12, "Massive intercranial brain haemorrhage", 1, "icellusedkars", 0, at("2020-03-02T07:10:00Z")},
		{13, "Fruit pastilles", 1, "icellusedkars", 0, at("2020-06-15T10:25:00Z")},
		{14, "What do you see? I have no idea where this will lead us. This place I speak of, is known as the Black Lodge.", 5, "icellusedkars", 16, at("2020-06-09T05:00:00Z")},
		{15, "I am 100% sure that we're not completely sure.", 5, "butter_bridge", 1, at("2020-11-24T00:08:00Z")},
		{16, "This is a bad article name", 6, "butter_bridge", 1, at("2020-10-11T15:23:00Z")},
		{17, "The owls are not what they seem.", 9, "icellusedkars", 20, at("2020-03-14T17:02:00Z")},
		{18, "This morning, I showered for nine minutes.", 1, "butter_bridge", 16, at("2020-07-21T00:20:00Z")},
	},
}

// Seed replaces all data with the given fixtures inside one transaction and
// moves the id sequences past the highest fixture id.
func Seed(ctx context.Context, conn *sqlx.DB, fx Fixtures) error {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	if err := truncate(ctx, tx, conn.DriverName()); err != nil {
		return err
	}

	for _, t := range fx.Topics {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO topics (slug, description) VALUES (?, ?)`),
			t.Slug, t.Description); err != nil {
			return fmt.Errorf("failed to seed topic %s: %w", t.Slug, err)
		}
	}

	for _, u := range fx.Users {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO users (username, name, avatar_url) VALUES (?, ?, ?)`),
			u.Username, u.Name, u.AvatarURL); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Username, err)
		}
	}

	for _, a := range fx.Articles {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO articles (article_id, title, topic, author, body, created_at, votes, article_img_url)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			a.ArticleID, a.Title, a.Topic, a.Author, a.Body, a.CreatedAt.UTC(), a.Votes, a.ArticleImgURL); err != nil {
			return fmt.Errorf("failed to seed article %d: %w", a.ArticleID, err)
		}
	}

	for _, c := range fx.Comments {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO comments (comment_id, body, article_id, author, votes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`),
			c.CommentID, c.Body, c.ArticleID, c.Author, c.Votes, c.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("failed to seed comment %d: %w", c.CommentID, err)
		}
	}

	if conn.DriverName() == "pgx" {
		for _, seq := range []struct{ table, column string }{
			{"articles", "article_id"},
			{"comments", "comment_id"},
		} {
			query := fmt.Sprintf(
				`SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE((SELECT MAX(%s) FROM %s), 0) + 1, false)`,
				seq.table, seq.column, seq.column, seq.table)
			if _, err := tx.ExecContext(ctx, query); err != nil {
				return fmt.Errorf("failed to reset %s sequence: %w", seq.table, err)
			}
		}
	}

	return tx.Commit()
}

func truncate(ctx context.Context, tx *sqlx.Tx, driverName string) error {
	if driverName == "pgx" {
		if _, err := tx.ExecContext(ctx, `TRUNCATE comments, articles, users, topics RESTART IDENTITY CASCADE`); err != nil {
			return fmt.Errorf("failed to truncate tables: %w", err)
		}
		return nil
	}

	for _, table := range []string{"comments", "articles", "users", "topics"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name IN ('articles', 'comments')`); err != nil {
		return fmt.Errorf("failed to reset sqlite sequences: %w", err)
	}
	return nil
}
