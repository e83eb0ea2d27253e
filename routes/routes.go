package routes

import (
	"database/sql"

	"expense-api/handlers"
	"expense-api/services"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, db *sql.DB) {
	authHandler := &handlers.AuthHandler{DB: db}

	rg.POST("/auth/signup", authHandler.Signup)
	rg.POST("/auth/login", authHandler.Login)
	rg.POST("/auth/refresh", authHandler.Refresh)
	rg.POST("/auth/logout", authHandler.Logout)
	rg.GET("/auth/verify", authHandler.VerifyEmail)
	rg.POST("/auth/static-login", authHandler.StaticLogin)
}

// SetupUserRoutes sets up protected user self-service routes.
func SetupUserRoutes(rg *gin.RouterGroup, db *sql.DB) {
	userHandler := &handlers.UserHandler{DB: db}

	rg.GET("/user/profile", userHandler.GetProfile)
	rg.PUT("/user/profile", userHandler.UpdateProfile)
	rg.POST("/user/password", userHandler.ChangePassword)
	rg.POST("/user/2fa/setup", userHandler.SetupTOTP)
	rg.POST("/user/2fa/verify", userHandler.VerifyTOTP)
	rg.POST("/user/2fa/disable", userHandler.DisableTOTP)
	rg.DELETE("/user/account", userHandler.DeleteAccount)
}

// SetupExpenseRoutes sets up protected expense, category, budget and
// analytics routes.
func SetupExpenseRoutes(rg *gin.RouterGroup, db *sql.DB, ws *handlers.WSHandler) {
	expenseHandler := &handlers.ExpenseHandler{DB: db, WS: ws}
	categoryHandler := &handlers.CategoryHandler{DB: db}
	budgetHandler := &handlers.BudgetHandler{DB: db}
	analyticsHandler := &handlers.AnalyticsHandler{DB: db}

	rg.GET("/expenses", expenseHandler.ListExpenses)
	rg.POST("/expenses", expenseHandler.CreateExpense)
	rg.PUT("/expenses/:id", expenseHandler.UpdateExpense)
	rg.DELETE("/expenses/:id", expenseHandler.DeleteExpense)

	rg.GET("/categories", categoryHandler.ListCategories)
	rg.POST("/categories", categoryHandler.CreateCategory)
	rg.PUT("/categories/reorder", categoryHandler.ReorderCategories)
	rg.PUT("/categories/:id", categoryHandler.UpdateCategory)
	rg.DELETE("/categories/:id", categoryHandler.DeleteCategory)

	rg.GET("/budgets", budgetHandler.ListBudgets)
	rg.POST("/budgets", budgetHandler.CreateBudget)
	rg.PUT("/budgets/:id", budgetHandler.UpdateBudget)
	rg.DELETE("/budgets/:id", budgetHandler.DeleteBudget)
	rg.GET("/budgets/alerts", budgetHandler.GetBudgetAlerts)

	rg.GET("/analytics/summary", analyticsHandler.GetSummary)
	rg.GET("/analytics/trends", analyticsHandler.GetTrends)
	rg.GET("/analytics/distribution", analyticsHandler.GetDistribution)
	rg.GET("/analytics/recent", analyticsHandler.GetRecent)
}

// SetupExchangeRoutes sets up protected import/export routes.
func SetupExchangeRoutes(rg *gin.RouterGroup, db *sql.DB, ws *handlers.WSHandler) {
	exchangeHandler := &handlers.ExchangeHandler{
		Exchange: services.NewExchangeService(db),
		WS:       ws,
	}

	rg.GET("/export", exchangeHandler.Export)
	rg.POST("/import/preview", exchangeHandler.Preview)
	rg.POST("/import", exchangeHandler.Import)
}

// SetupGroupRoutes sets up protected group routes (read side for members).
func SetupGroupRoutes(rg *gin.RouterGroup, db *sql.DB) {
	groupHandler := &handlers.GroupHandler{DB: db}

	rg.GET("/groups", groupHandler.GetMyGroups)
}

// SetupAdminRoutes sets up admin-only routes. The caller is expected to have
// wrapped rg in AdminMiddleware.
func SetupAdminRoutes(rg *gin.RouterGroup, db *sql.DB) {
	adminHandler := &handlers.AdminHandler{DB: db}
	groupHandler := &handlers.GroupHandler{DB: db}

	rg.GET("/admin/users", adminHandler.ListUsers)
	rg.PUT("/admin/users/:id/admin", adminHandler.ToggleAdmin)

	rg.GET("/admin/static-users", adminHandler.ListStaticUsers)
	rg.POST("/admin/static-users", adminHandler.CreateStaticUser)
	rg.PUT("/admin/static-users/:id", adminHandler.UpdateStaticUser)
	rg.DELETE("/admin/static-users/:id", adminHandler.DeleteStaticUser)

	rg.GET("/admin/groups", groupHandler.ListGroups)
	rg.POST("/admin/groups", groupHandler.CreateGroup)
	rg.PUT("/admin/groups/:id", groupHandler.UpdateGroup)
	rg.DELETE("/admin/groups/:id", groupHandler.DeleteGroup)
	rg.POST("/admin/groups/:id/members", groupHandler.AddMember)
	rg.DELETE("/admin/groups/:id/members/:member_id", groupHandler.RemoveMember)

	rg.POST("/admin/cleanup-sessions", adminHandler.CleanupSessions)
	rg.GET("/admin/stats", adminHandler.GetStats)
}
