package routes

import (
	"github.com/SOTO729/Evaluaasiv3-sub005/internal/handlers"
	"github.com/SOTO729/Evaluaasiv3-sub005/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registra los endpoints públicos de autenticación.
// No llevan middleware de sesión.
func RegisterAuthRoutes(r *gin.Engine) {
	r.POST("/auth/login", handlers.LoginHandler)
}

// RegisterAPIRoutes registra el API autenticado del asistente de asignación
// y sus módulos de apoyo.
func RegisterAPIRoutes(api *gin.RouterGroup, provisioning *handlers.ProvisioningHandler, exams *handlers.ExamHandler) {
	apiGroup := api.Group("/api")
	{
		apiGroup.POST("/auth/logout", handlers.LogoutHandler)
		apiGroup.GET("/auth/me", handlers.MeHandler)

		// --- ASISTENTE DE ASIGNACIÓN ---
		prov := apiGroup.Group("/provisioning")
		{
			prov.POST("/provision", middleware.RoleMiddleware("operator"), provisioning.ProvisionHandler)
			prov.GET("/cost-preview", provisioning.CostPreviewHandler)
			prov.POST("/bulk-file", middleware.RoleMiddleware("operator"), provisioning.UploadBulkFileHandler)
		}

		// --- CATÁLOGO DE EXÁMENES ---
		examGroup := apiGroup.Group("/exams")
		{
			examGroup.GET("/available", exams.AvailableExamsHandler)
			examGroup.GET("/:id", exams.GetExamHandler)
			examGroup.POST("/:id/publish", middleware.RoleMiddleware("author"), exams.PublishExamHandler)
			examGroup.POST("/:id/resolve-conflict", middleware.RoleMiddleware("author"), exams.ResolveConflictHandler)
			examGroup.POST("/:id/unpublish", middleware.RoleMiddleware("author"), exams.UnpublishExamHandler)
		}

		// --- GRUPOS Y SALDOS ---
		groups := apiGroup.Group("/groups")
		{
			groups.GET("", handlers.ListGroupsHandler)
			groups.GET("/:id", handlers.GetGroupHandler)
			groups.GET("/:id/members", handlers.ListGroupMembersHandler)
			groups.GET("/:id/balance", handlers.GetGroupBalanceHandler)
			groups.POST("/:id/balance/top-up", middleware.RoleMiddleware("finance"), handlers.TopUpBalanceHandler)
			groups.GET("/:id/assignments", handlers.ListGroupAssignmentsHandler)
			groups.GET("/:id/assignments/export", handlers.ExportAssignmentsHandler)
			groups.GET("/:id/bulk-template", handlers.DownloadBulkTemplateHandler)
		}
	}
}
