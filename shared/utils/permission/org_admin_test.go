package permission

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"meallens-backend/shared/database"
)

// newMockDB swaps the global connection for a mocked one and restores it on cleanup
func newMockDB(t *testing.T) (sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	previous := database.DB
	database.DB = gormDB
	t.Cleanup(func() {
		database.DB = previous
	})

	return mock, mockDB
}

func expectEnterpriseLookup(mock sqlmock.Sqlmock, orgID, createdBy uuid.UUID) {
	rows := sqlmock.NewRows([]string{"id", "name", "created_by"}).
		AddRow(orgID, "Sunrise Clinic", createdBy)
	mock.ExpectQuery(`SELECT \* FROM "enterprises" WHERE id = \$1`).
		WithArgs(orgID, 1).
		WillReturnRows(rows)
}

func TestCheckOrgAdminDB(t *testing.T) {
	t.Run("owner manages without a membership row", func(t *testing.T) {
		mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		userID := uuid.New()
		orgID := uuid.New()
		expectEnterpriseLookup(mock, orgID, userID)

		isAdmin, reason := checkOrgAdminDB(userID, orgID)

		assert.True(t, isAdmin)
		assert.Equal(t, ReasonOwner, reason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("admin member may manage", func(t *testing.T) {
		mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		userID := uuid.New()
		orgID := uuid.New()
		expectEnterpriseLookup(mock, orgID, uuid.New())

		membershipRows := sqlmock.NewRows([]string{"id", "organization_id", "user_id", "role", "status"}).
			AddRow(uuid.New(), orgID, userID, "admin", "active")
		mock.ExpectQuery(`SELECT \* FROM "organization_users" WHERE organization_id = \$1 AND user_id = \$2`).
			WithArgs(orgID, userID, 1).
			WillReturnRows(membershipRows)

		isAdmin, reason := checkOrgAdminDB(userID, orgID)

		assert.True(t, isAdmin)
		assert.Equal(t, ReasonAdmin, reason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-admin role is denied with role in reason", func(t *testing.T) {
		mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		userID := uuid.New()
		orgID := uuid.New()
		expectEnterpriseLookup(mock, orgID, uuid.New())

		membershipRows := sqlmock.NewRows([]string{"id", "organization_id", "user_id", "role", "status"}).
			AddRow(uuid.New(), orgID, userID, "doctor", "active")
		mock.ExpectQuery(`SELECT \* FROM "organization_users" WHERE organization_id = \$1 AND user_id = \$2`).
			WithArgs(orgID, userID, 1).
			WillReturnRows(membershipRows)

		isAdmin, reason := checkOrgAdminDB(userID, orgID)

		assert.False(t, isAdmin)
		assert.Equal(t, "User role 'doctor' does not have permission to manage users", reason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-member is denied", func(t *testing.T) {
		mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		userID := uuid.New()
		orgID := uuid.New()
		expectEnterpriseLookup(mock, orgID, uuid.New())

		mock.ExpectQuery(`SELECT \* FROM "organization_users" WHERE organization_id = \$1 AND user_id = \$2`).
			WithArgs(orgID, userID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		isAdmin, reason := checkOrgAdminDB(userID, orgID)

		assert.False(t, isAdmin)
		assert.Equal(t, ReasonNotMember, reason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown organization", func(t *testing.T) {
		mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		userID := uuid.New()
		orgID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "enterprises" WHERE id = \$1`).
			WithArgs(orgID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		isAdmin, reason := checkOrgAdminDB(userID, orgID)

		assert.False(t, isAdmin)
		assert.Equal(t, ReasonOrgNotFound, reason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCanCreateOrganization(t *testing.T) {
	t.Run("organization members cannot create", func(t *testing.T) {
		mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		userID := uuid.New()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "organization_users" WHERE user_id = \$1`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		allowed, reason, err := CanCreateOrganization(userID)

		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, "Organization members cannot create organizations", reason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing owner may create", func(t *testing.T) {
		mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		userID := uuid.New()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "organization_users" WHERE user_id = \$1`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "enterprises" WHERE created_by = \$1`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		allowed, reason, err := CanCreateOrganization(userID)

		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, "owner", reason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("organization signup may create", func(t *testing.T) {
		mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		userID := uuid.New()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "organization_users" WHERE user_id = \$1`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "enterprises" WHERE created_by = \$1`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		userRows := sqlmock.NewRows([]string{"id", "email", "signup_type"}).
			AddRow(userID, "owner@clinic.example", "organization")
		mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
			WithArgs(userID, 1).
			WillReturnRows(userRows)

		allowed, reason, err := CanCreateOrganization(userID)

		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, "organization signup", reason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("individual signup is denied", func(t *testing.T) {
		mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		userID := uuid.New()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "organization_users" WHERE user_id = \$1`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "enterprises" WHERE created_by = \$1`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		userRows := sqlmock.NewRows([]string{"id", "email", "signup_type"}).
			AddRow(userID, "solo@example.com", "individual")
		mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
			WithArgs(userID, 1).
			WillReturnRows(userRows)

		allowed, reason, err := CanCreateOrganization(userID)

		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, "Individual accounts cannot create organizations", reason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
