package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newServiceMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
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

	return gormDB, mock, mockDB
}

func pendingInvitationRows(invitationID, orgID uuid.UUID, email string, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "organization_id", "email", "role", "status", "invited_by", "expires_at"}).
		AddRow(invitationID, orgID, email, "patient", "pending", uuid.New(), expiresAt)
}

func TestAutoAcceptPendingInvitations(t *testing.T) {
	t.Run("existing member gets no second membership row", func(t *testing.T) {
		gormDB, mock, mockDB := newServiceMockDB(t)
		defer mockDB.Close()

		userID := uuid.New()
		orgID := uuid.New()
		invitationID := uuid.New()
		email := "member@example.com"

		mock.ExpectQuery(`SELECT \* FROM "invitations" WHERE email = \$1 AND status = \$2`).
			WithArgs(email, "pending").
			WillReturnRows(pendingInvitationRows(invitationID, orgID, email, time.Now().Add(24*time.Hour)))
		mock.ExpectQuery(`SELECT \* FROM "enterprises" WHERE "enterprises"\."id" = \$1`).
			WithArgs(orgID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_by"}).
				AddRow(orgID, "Sunrise Clinic", uuid.New()))

		membershipRows := sqlmock.NewRows([]string{"id", "organization_id", "user_id", "role", "status"}).
			AddRow(uuid.New(), orgID, userID, "patient", "active")
		mock.ExpectQuery(`SELECT \* FROM "organization_users" WHERE organization_id = \$1 AND user_id = \$2`).
			WithArgs(orgID, userID, 1).
			WillReturnRows(membershipRows)

		// The invitation still flips; no INSERT and no owner notification
		mock.ExpectExec(`UPDATE "invitations" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		svc := NewInvitationService(gormDB, newIdleDispatcher(1))
		accepted := svc.AutoAcceptPendingInvitations(userID, email)

		assert.Equal(t, []uuid.UUID{invitationID}, accepted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired invitation is skipped and stays pending", func(t *testing.T) {
		gormDB, mock, mockDB := newServiceMockDB(t)
		defer mockDB.Close()

		userID := uuid.New()
		orgID := uuid.New()
		email := "late@example.com"

		mock.ExpectQuery(`SELECT \* FROM "invitations" WHERE email = \$1 AND status = \$2`).
			WithArgs(email, "pending").
			WillReturnRows(pendingInvitationRows(uuid.New(), orgID, email, time.Now().Add(-time.Hour)))
		mock.ExpectQuery(`SELECT \* FROM "enterprises" WHERE "enterprises"\."id" = \$1`).
			WithArgs(orgID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_by"}).
				AddRow(orgID, "Sunrise Clinic", uuid.New()))

		svc := NewInvitationService(gormDB, newIdleDispatcher(1))
		accepted := svc.AutoAcceptPendingInvitations(userID, email)

		assert.Empty(t, accepted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("new member joins and owner is notified", func(t *testing.T) {
		gormDB, mock, mockDB := newServiceMockDB(t)
		defer mockDB.Close()

		userID := uuid.New()
		orgID := uuid.New()
		ownerID := uuid.New()
		invitationID := uuid.New()
		email := "fresh@example.com"

		mock.ExpectQuery(`SELECT \* FROM "invitations" WHERE email = \$1 AND status = \$2`).
			WithArgs(email, "pending").
			WillReturnRows(pendingInvitationRows(invitationID, orgID, email, time.Now().Add(24*time.Hour)))
		mock.ExpectQuery(`SELECT \* FROM "enterprises" WHERE "enterprises"\."id" = \$1`).
			WithArgs(orgID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_by"}).
				AddRow(orgID, "Sunrise Clinic", ownerID))

		mock.ExpectQuery(`SELECT \* FROM "organization_users" WHERE organization_id = \$1 AND user_id = \$2`).
			WithArgs(orgID, userID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		mock.ExpectQuery(`INSERT INTO "organization_users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))

		mock.ExpectExec(`UPDATE "invitations" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
			WithArgs(ownerID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name"}).
				AddRow(ownerID, "owner@clinic.example", "Olive", "Owner"))
		mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
			WithArgs(userID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name"}).
				AddRow(userID, email, "Fred", "Fresh"))

		dispatcher := newIdleDispatcher(1)
		svc := NewInvitationService(gormDB, dispatcher)
		accepted := svc.AutoAcceptPendingInvitations(userID, email)

		assert.Equal(t, []uuid.UUID{invitationID}, accepted)
		require.Len(t, dispatcher.jobs, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
