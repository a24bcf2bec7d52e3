package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"meallens-backend/shared/database"
)

// newHandlerMockDB swaps the global connection for a mocked one and restores it on cleanup
func newHandlerMockDB(t *testing.T) (sqlmock.Sqlmock, *sql.DB) {
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

func newHandlerTestContext(t *testing.T, method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(method, target, nil)
	return ctx, recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func expectInvitationByToken(mock sqlmock.Sqlmock, token, status string, orgID uuid.UUID, expiresAt time.Time) uuid.UUID {
	invitationID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "organization_id", "email", "role", "token", "message", "status", "invited_by", "expires_at"}).
		AddRow(invitationID, orgID, "invitee@example.com", "patient", token, "Looking forward to working with you", status, uuid.New(), expiresAt)
	mock.ExpectQuery(`SELECT \* FROM "invitations" WHERE token = \$1`).
		WithArgs(token, 1).
		WillReturnRows(rows)
	return invitationID
}

func expectEnterprisePreload(mock sqlmock.Sqlmock, orgID uuid.UUID) {
	rows := sqlmock.NewRows([]string{"id", "name", "organization_type", "created_by"}).
		AddRow(orgID, "Sunrise Clinic", "clinic", uuid.New())
	mock.ExpectQuery(`SELECT \* FROM "enterprises" WHERE "enterprises"\."id" = \$1`).
		WithArgs(orgID).
		WillReturnRows(rows)
}

func TestVerifyInvitation(t *testing.T) {
	t.Run("valid pending invitation", func(t *testing.T) {
		mock, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		orgID := uuid.New()
		expectInvitationByToken(mock, "good-token", "pending", orgID, time.Now().Add(24*time.Hour))
		expectEnterprisePreload(mock, orgID)

		ctx, recorder := newHandlerTestContext(t, http.MethodGet, "/api/invitations/verify/good-token")
		ctx.Params = gin.Params{{Key: "token", Value: "good-token"}}

		VerifyInvitation(ctx)

		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, true, body["success"])
		invitation := body["invitation"].(map[string]interface{})
		assert.Equal(t, "invitee@example.com", invitation["email"])
		assert.Equal(t, "patient", invitation["role"])
		assert.Equal(t, "Looking forward to working with you", invitation["message"])
		assert.Equal(t, "Sunrise Clinic", invitation["enterprise_name"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired invitation", func(t *testing.T) {
		mock, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		orgID := uuid.New()
		expectInvitationByToken(mock, "stale-token", "pending", orgID, time.Now().Add(-time.Hour))
		expectEnterprisePreload(mock, orgID)

		ctx, recorder := newHandlerTestContext(t, http.MethodGet, "/api/invitations/verify/stale-token")
		ctx.Params = gin.Params{{Key: "token", Value: "stale-token"}}

		VerifyInvitation(ctx)

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Invitation has expired", body["error"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelled invitation", func(t *testing.T) {
		mock, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		orgID := uuid.New()
		expectInvitationByToken(mock, "dead-token", "cancelled", orgID, time.Now().Add(24*time.Hour))
		expectEnterprisePreload(mock, orgID)

		ctx, recorder := newHandlerTestContext(t, http.MethodGet, "/api/invitations/verify/dead-token")
		ctx.Params = gin.Params{{Key: "token", Value: "dead-token"}}

		VerifyInvitation(ctx)

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "Invitation is cancelled", body["error"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown token", func(t *testing.T) {
		mock, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "invitations" WHERE token = \$1`).
			WithArgs("missing-token", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		ctx, recorder := newHandlerTestContext(t, http.MethodGet, "/api/invitations/verify/missing-token")
		ctx.Params = gin.Params{{Key: "token", Value: "missing-token"}}

		VerifyInvitation(ctx)

		require.Equal(t, http.StatusNotFound, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "Invalid invitation token", body["error"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing token", func(t *testing.T) {
		_, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		ctx, recorder := newHandlerTestContext(t, http.MethodGet, "/api/invitations/verify")

		VerifyInvitation(ctx)

		require.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestInviteUser(t *testing.T) {
	t.Run("refused when membership count has reached max_users", func(t *testing.T) {
		mock, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		ownerID := uuid.New()
		orgID := uuid.New()

		enterpriseRows := func() *sqlmock.Rows {
			return sqlmock.NewRows([]string{"id", "name", "max_users", "created_by"}).
				AddRow(orgID, "Sunrise Clinic", 2, ownerID)
		}
		mock.ExpectQuery(`SELECT \* FROM "enterprises" WHERE id = \$1`).
			WithArgs(orgID, 1).
			WillReturnRows(enterpriseRows())
		// Admin check loads the enterprise again
		mock.ExpectQuery(`SELECT \* FROM "enterprises" WHERE id = \$1`).
			WithArgs(orgID, 1).
			WillReturnRows(enterpriseRows())

		mock.ExpectQuery(`SELECT count\(\*\) FROM "organization_users" WHERE organization_id = \$1`).
			WithArgs(orgID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		ctx, recorder := newHandlerTestContext(t, http.MethodPost, "/api/enterprise/"+orgID.String()+"/invite")
		ctx.Request = httptest.NewRequest(http.MethodPost, "/api/enterprise/"+orgID.String()+"/invite",
			strings.NewReader(`{"email":"late@example.com","role":"patient"}`))
		ctx.Request.Header.Set("Content-Type", "application/json")
		ctx.Params = gin.Params{{Key: "id", Value: orgID.String()}}
		ctx.Set("userID", ownerID)

		InviteUser(ctx)

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Maximum user limit (2) reached", body["error"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCancelInvitation(t *testing.T) {
	t.Run("owner cancels a pending invitation", func(t *testing.T) {
		mock, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		ownerID := uuid.New()
		orgID := uuid.New()
		invitationID := uuid.New()

		invitationRows := sqlmock.NewRows([]string{"id", "organization_id", "email", "role", "status"}).
			AddRow(invitationID, orgID, "invitee@example.com", "patient", "pending")
		mock.ExpectQuery(`SELECT \* FROM "invitations" WHERE id = \$1`).
			WithArgs(invitationID, 1).
			WillReturnRows(invitationRows)

		enterpriseRows := sqlmock.NewRows([]string{"id", "name", "created_by"}).
			AddRow(orgID, "Sunrise Clinic", ownerID)
		mock.ExpectQuery(`SELECT \* FROM "enterprises" WHERE id = \$1`).
			WithArgs(orgID, 1).
			WillReturnRows(enterpriseRows)

		mock.ExpectExec(`UPDATE "invitations" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ctx, recorder := newHandlerTestContext(t, http.MethodPost, "/api/invitations/"+invitationID.String()+"/cancel")
		ctx.Params = gin.Params{{Key: "id", Value: invitationID.String()}}
		ctx.Set("userID", ownerID)

		CancelInvitation(ctx)

		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "Invitation cancelled successfully", body["message"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already accepted invitation", func(t *testing.T) {
		mock, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		ownerID := uuid.New()
		orgID := uuid.New()
		invitationID := uuid.New()

		invitationRows := sqlmock.NewRows([]string{"id", "organization_id", "email", "role", "status"}).
			AddRow(invitationID, orgID, "invitee@example.com", "patient", "accepted")
		mock.ExpectQuery(`SELECT \* FROM "invitations" WHERE id = \$1`).
			WithArgs(invitationID, 1).
			WillReturnRows(invitationRows)

		enterpriseRows := sqlmock.NewRows([]string{"id", "name", "created_by"}).
			AddRow(orgID, "Sunrise Clinic", ownerID)
		mock.ExpectQuery(`SELECT \* FROM "enterprises" WHERE id = \$1`).
			WithArgs(orgID, 1).
			WillReturnRows(enterpriseRows)

		ctx, recorder := newHandlerTestContext(t, http.MethodPost, "/api/invitations/"+invitationID.String()+"/cancel")
		ctx.Params = gin.Params{{Key: "id", Value: invitationID.String()}}
		ctx.Set("userID", ownerID)

		CancelInvitation(ctx)

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "Cannot cancel invitation with status 'accepted'", body["error"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-member is denied", func(t *testing.T) {
		mock, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		callerID := uuid.New()
		orgID := uuid.New()
		invitationID := uuid.New()

		invitationRows := sqlmock.NewRows([]string{"id", "organization_id", "email", "role", "status"}).
			AddRow(invitationID, orgID, "invitee@example.com", "patient", "pending")
		mock.ExpectQuery(`SELECT \* FROM "invitations" WHERE id = \$1`).
			WithArgs(invitationID, 1).
			WillReturnRows(invitationRows)

		enterpriseRows := sqlmock.NewRows([]string{"id", "name", "created_by"}).
			AddRow(orgID, "Sunrise Clinic", uuid.New())
		mock.ExpectQuery(`SELECT \* FROM "enterprises" WHERE id = \$1`).
			WithArgs(orgID, 1).
			WillReturnRows(enterpriseRows)

		mock.ExpectQuery(`SELECT \* FROM "organization_users" WHERE organization_id = \$1 AND user_id = \$2`).
			WithArgs(orgID, callerID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		ctx, recorder := newHandlerTestContext(t, http.MethodPost, "/api/invitations/"+invitationID.String()+"/cancel")
		ctx.Params = gin.Params{{Key: "id", Value: invitationID.String()}}
		ctx.Set("userID", callerID)

		CancelInvitation(ctx)

		require.Equal(t, http.StatusForbidden, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "Access denied: User is not a member of this organization", body["error"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid invitation id", func(t *testing.T) {
		_, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		ctx, recorder := newHandlerTestContext(t, http.MethodPost, "/api/invitations/not-a-uuid/cancel")
		ctx.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
		ctx.Set("userID", uuid.New())

		CancelInvitation(ctx)

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "Invalid invitation ID format", body["error"])
	})
}
