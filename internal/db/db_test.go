package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncnews/ncnews-backend/internal/db"
	"github.com/ncnews/ncnews-backend/internal/db/dbtest"
)

func TestSeedLoadsFixtures(t *testing.T) {
	conn := dbtest.OpenSeeded(t)
	ctx := context.Background()

	counts := map[string]int{
		"topics":   len(db.TestFixtures.Topics),
		"users":    len(db.TestFixtures.Users),
		"articles": len(db.TestFixtures.Articles),
		"comments": len(db.TestFixtures.Comments),
	}
	for table, want := range counts {
		var got int
		require.NoError(t, conn.GetContext(ctx, &got, "SELECT COUNT(*) FROM "+table))
		assert.Equal(t, want, got, table)
	}

	var votes int
	require.NoError(t, conn.GetContext(ctx, &votes, "SELECT votes FROM articles WHERE article_id = 1"))
	assert.Equal(t, 100, votes)
}

func TestSeedIsRepeatable(t *testing.T) {
	conn := dbtest.OpenSeeded(t)
	ctx := context.Background()

	_, err := conn.ExecContext(ctx,
		`INSERT INTO articles (title, topic, author, body) VALUES ('extra', 'cats', 'lurker', 'x')`)
	require.NoError(t, err)

	require.NoError(t, db.Seed(ctx, conn, db.TestFixtures))

	var maxID int
	require.NoError(t, conn.GetContext(ctx, &maxID, "SELECT MAX(article_id) FROM articles"))
	assert.Equal(t, 13, maxID)

	var id int
	require.NoError(t, conn.GetContext(ctx, &id,
		`INSERT INTO articles (title, topic, author, body) VALUES ('next', 'cats', 'lurker', 'x') RETURNING article_id`))
	assert.Equal(t, 14, id)
}

func TestClassify(t *testing.T) {
	conn := dbtest.OpenSeeded(t)
	ctx := context.Background()

	t.Run("no rows", func(t *testing.T) {
		var slug string
		err := conn.GetContext(ctx, &slug, "SELECT slug FROM topics WHERE slug = 'dogs'")
		err = db.Classify("get topic", err)
		assert.True(t, errors.Is(err, db.ErrNotFound))

		var dbErr *db.DatabaseError
		require.ErrorAs(t, err, &dbErr)
		assert.Equal(t, "get topic", dbErr.Op)
	})

	t.Run("foreign key", func(t *testing.T) {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO comments (body, article_id, author) VALUES ('hi', 999, 'lurker')`)
		require.Error(t, err)
		assert.True(t, errors.Is(db.Classify("insert comment", err), db.ErrForeignKeyConstraint))
	})

	t.Run("unique", func(t *testing.T) {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO topics (slug, description) VALUES ('cats', 'again')`)
		require.Error(t, err)
		assert.True(t, errors.Is(db.Classify("insert topic", err), db.ErrUniqueConstraint))
	})

	t.Run("passthrough", func(t *testing.T) {
		cause := errors.New("boom")
		err := db.Classify("op", cause)
		assert.True(t, errors.Is(err, cause))
		assert.Nil(t, db.Classify("op", nil))
	})
}

func TestMigrateDownAndUp(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()

	version, err := db.SchemaVersion(ctx, conn.DB, db.DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	require.NoError(t, db.MigrateDown(ctx, conn.DB, db.DriverSQLite))
	_, err = conn.ExecContext(ctx, "SELECT 1 FROM topics")
	assert.Error(t, err)

	require.NoError(t, db.MigrateUp(ctx, conn.DB, db.DriverSQLite))
	_, err = conn.ExecContext(ctx, "SELECT 1 FROM topics")
	assert.NoError(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := db.Open(context.Background(), db.Config{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}
