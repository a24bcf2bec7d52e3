package handlers

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func mealPlanColumns() []string {
	return []string{
		"id", "user_id", "name", "start_date", "end_date",
		"meal_plan", "has_sickness", "sickness_type", "user_info", "is_approved",
	}
}

func TestGetMyMealPlans(t *testing.T) {
	t.Run("returns only approved plans", func(t *testing.T) {
		mock, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		userID := uuid.New()
		planID := uuid.New()

		rows := sqlmock.NewRows(mealPlanColumns()).AddRow(
			planID, userID, "Week 34 plan", "2026-08-17", "2026-08-23",
			[]byte(`{"monday":{"breakfast":"oats"}}`), false, "",
			[]byte(`{"is_created_by_user":true}`), true,
		)
		mock.ExpectQuery(`SELECT \* FROM "meal_plan_management" WHERE user_id = \$1 AND is_approved = \$2 ORDER BY updated_at DESC`).
			WithArgs(userID, true).
			WillReturnRows(rows)

		ctx, recorder := newHandlerTestContext(t, http.MethodGet, "/api/meal-plans")
		ctx.Set("userID", userID)

		GetMyMealPlans(ctx)

		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(1), body["total_count"])

		plans := body["meal_plans"].([]interface{})
		require.Len(t, plans, 1)
		plan := plans[0].(map[string]interface{})
		assert.Equal(t, "Week 34 plan", plan["name"])
		assert.Equal(t, true, plan["is_approved"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no approved plans yet", func(t *testing.T) {
		mock, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		userID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "meal_plan_management" WHERE user_id = \$1 AND is_approved = \$2 ORDER BY updated_at DESC`).
			WithArgs(userID, true).
			WillReturnRows(sqlmock.NewRows(mealPlanColumns()))

		ctx, recorder := newHandlerTestContext(t, http.MethodGet, "/api/meal-plans")
		ctx.Set("userID", userID)

		GetMyMealPlans(ctx)

		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, float64(0), body["total_count"])
		assert.Empty(t, body["meal_plans"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestApproveMealPlan(t *testing.T) {
	t.Run("owner approves a member's plan", func(t *testing.T) {
		mock, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		ownerID := uuid.New()
		orgID := uuid.New()
		memberID := uuid.New()
		planID := uuid.New()

		enterpriseRows := sqlmock.NewRows([]string{"id", "name", "created_by"}).
			AddRow(orgID, "Sunrise Clinic", ownerID)
		mock.ExpectQuery(`SELECT \* FROM "enterprises" WHERE id = \$1`).
			WithArgs(orgID, 1).
			WillReturnRows(enterpriseRows)

		planRows := sqlmock.NewRows(mealPlanColumns()).AddRow(
			planID, memberID, "Recovery plan", "2026-08-24", "2026-08-30",
			[]byte(`{}`), false, "",
			[]byte(`{"creator_email":"admin@clinic.example","is_created_by_user":false}`), false,
		)
		mock.ExpectQuery(`SELECT \* FROM "meal_plan_management" WHERE id = \$1`).
			WithArgs(planID, 1).
			WillReturnRows(planRows)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "organization_users" WHERE organization_id = \$1 AND user_id = \$2`).
			WithArgs(orgID, memberID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		mock.ExpectExec(`UPDATE "meal_plan_management" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ctx, recorder := newHandlerTestContext(t, http.MethodPost,
			"/api/enterprise/"+orgID.String()+"/meal-plan/"+planID.String()+"/approve")
		ctx.Params = gin.Params{
			{Key: "id", Value: orgID.String()},
			{Key: "planId", Value: planID.String()},
		}
		ctx.Set("userID", ownerID)

		ApproveMealPlan(ctx)

		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "Meal plan approved! User can now see this plan.", body["message"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("plan does not exist", func(t *testing.T) {
		mock, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		ownerID := uuid.New()
		orgID := uuid.New()
		planID := uuid.New()

		enterpriseRows := sqlmock.NewRows([]string{"id", "name", "created_by"}).
			AddRow(orgID, "Sunrise Clinic", ownerID)
		mock.ExpectQuery(`SELECT \* FROM "enterprises" WHERE id = \$1`).
			WithArgs(orgID, 1).
			WillReturnRows(enterpriseRows)

		mock.ExpectQuery(`SELECT \* FROM "meal_plan_management" WHERE id = \$1`).
			WithArgs(planID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		ctx, recorder := newHandlerTestContext(t, http.MethodPost,
			"/api/enterprise/"+orgID.String()+"/meal-plan/"+planID.String()+"/approve")
		ctx.Params = gin.Params{
			{Key: "id", Value: orgID.String()},
			{Key: "planId", Value: planID.String()},
		}
		ctx.Set("userID", ownerID)

		ApproveMealPlan(ctx)

		require.Equal(t, http.StatusNotFound, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "Meal plan not found", body["error"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("plan owner outside the organization", func(t *testing.T) {
		mock, mockDB := newHandlerMockDB(t)
		defer mockDB.Close()

		ownerID := uuid.New()
		orgID := uuid.New()
		outsiderID := uuid.New()
		planID := uuid.New()

		enterpriseRows := sqlmock.NewRows([]string{"id", "name", "created_by"}).
			AddRow(orgID, "Sunrise Clinic", ownerID)
		mock.ExpectQuery(`SELECT \* FROM "enterprises" WHERE id = \$1`).
			WithArgs(orgID, 1).
			WillReturnRows(enterpriseRows)

		planRows := sqlmock.NewRows(mealPlanColumns()).AddRow(
			planID, outsiderID, "Stray plan", "2026-08-24", "2026-08-30",
			[]byte(`{}`), false, "", []byte(`{}`), false,
		)
		mock.ExpectQuery(`SELECT \* FROM "meal_plan_management" WHERE id = \$1`).
			WithArgs(planID, 1).
			WillReturnRows(planRows)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "organization_users" WHERE organization_id = \$1 AND user_id = \$2`).
			WithArgs(orgID, outsiderID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		ctx, recorder := newHandlerTestContext(t, http.MethodPost,
			"/api/enterprise/"+orgID.String()+"/meal-plan/"+planID.String()+"/approve")
		ctx.Params = gin.Params{
			{Key: "id", Value: orgID.String()},
			{Key: "planId", Value: planID.String()},
		}
		ctx.Set("userID", ownerID)

		ApproveMealPlan(ctx)

		require.Equal(t, http.StatusForbidden, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "User is not a member of this organization", body["error"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
