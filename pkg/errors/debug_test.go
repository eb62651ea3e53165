package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpUnpacksPostgresDrivers(t *testing.T) {
	cases := map[string]error{
		"pgx": &pgconn.PgError{Code: "23505", ConstraintName: "shops_name_key", TableName: "shops", Message: "duplicate key"},
		"pq":  &pq.Error{Code: "23505", Constraint: "shops_name_key", Table: "shops", Message: "duplicate key"},
	}
	for name, driverErr := range cases {
		t.Run(name, func(t *testing.T) {
			err := Wrap(CodeConflict, fmt.Errorf("insert shop: %w", driverErr), "shop exists")

			d := Dump(err)
			require.NotNil(t, d.PG)
			assert.Equal(t, "23505", d.PG.Code)
			assert.Equal(t, CodeConflict, d.Code)
			assert.Len(t, d.Chain, 3)

			fields := d.Fields()
			assert.Equal(t, "shops_name_key", fields["pg_constraint"])
			assert.Equal(t, "shops", fields["pg_table"])
			assert.NotContains(t, fields, "pg_detail")
			assert.NotContains(t, fields, "sqlite_message")
		})
	}
}

func TestDumpKeepsSQLiteConstraintText(t *testing.T) {
	d := Dump(stderrors.New("insert: UNIQUE constraint failed: shops.name"))

	assert.Nil(t, d.PG)
	assert.Equal(t, "constraint failed: shops.name", d.SQLite)
	assert.Equal(t, "constraint failed: shops.name", d.Fields()["sqlite_message"])
}

func TestDumpNil(t *testing.T) {
	assert.Empty(t, Dump(nil).Fields())
}
