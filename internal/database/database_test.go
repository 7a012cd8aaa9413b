package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campusreserve/internal/domain"
)

func TestMysqlDSN(t *testing.T) {
	assert.Equal(t,
		"app:secret@tcp(db:3306)/reservas?parseTime=true",
		mysqlDSN("mysql://app:secret@db:3306/reservas"))
	assert.Equal(t,
		"app@tcp(db)/reservas?charset=utf8mb4&parseTime=true",
		mysqlDSN("mysql://app@db/reservas?charset=utf8mb4"))
}

func TestConnectSQLiteAndMigrate(t *testing.T) {
	db, err := Connect("file:database_test?mode=memory&cache=shared", Options{MaxOpen: 1, Silent: true}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, model := range []any{&domain.Space{}, &domain.Resource{}, &domain.Reservation{}, &domain.ReservationResource{}, &domain.Notification{}} {
		assert.True(t, db.Migrator().HasTable(model))
	}
}
