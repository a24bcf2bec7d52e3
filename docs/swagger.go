// Package docs MealLens AI API documentation
package docs

// Swagger documentation info
// @title MealLens AI API
// @version 1.0
// @description API documentation for the MealLens AI enterprise backend

// @contact.name API Support
// @contact.email support@meallensai.com

// @host localhost:8080
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// @tag.name auth
// @tag.description Registration, login and session identity

// @tag.name enterprises
// @tag.description Organization registration and management

// @tag.name invitations
// @tag.description Member invitation lifecycle

// @tag.name memberships
// @tag.description Organization member management

// @tag.name meal-plans
// @tag.description Meal plan creation and approval workflow

// @tag.name settings
// @tag.description User health-profile settings and change history

// @tag.name detection
// @tag.description Food detection uploads and history
