package storage

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDBPlaceholderFollowsDriver(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		DriverPostgres: "SELECT id FROM articles WHERE id = $1",
		DriverSQLite:   "SELECT id FROM articles WHERE id = ?",
	}
	for driver, want := range cases {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()

			conn, _, err := sqlmock.New()
			require.NoError(t, err)
			t.Cleanup(func() { _ = conn.Close() })

			db := NewDB(sqlx.NewDb(conn, driver))
			query, _, err := db.sb.Select("id").From("articles").Where("id = ?", 1).ToSql()
			require.NoError(t, err)
			assert.Equal(t, want, query)
		})
	}
}
