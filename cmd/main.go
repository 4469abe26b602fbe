package main

import (
	"log/slog"
	"os"

	"github.com/SOTO729/Evaluaasiv3-sub005/config"
	"github.com/SOTO729/Evaluaasiv3-sub005/internal/handlers"
	"github.com/SOTO729/Evaluaasiv3-sub005/internal/middleware"
	"github.com/SOTO729/Evaluaasiv3-sub005/internal/provisioning"
	"github.com/SOTO729/Evaluaasiv3-sub005/internal/routes"
	"github.com/SOTO729/Evaluaasiv3-sub005/internal/store"
	"github.com/SOTO729/Evaluaasiv3-sub005/models"
	"github.com/gin-gonic/gin"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config.LoadAuthConfig()
	config.ConnectDB()
	config.ConnectRedis()

	if err := config.DB.AutoMigrate(
		&models.Campus{},
		&models.CandidateGroup{},
		&models.GroupMember{},
		&models.Candidate{},
		&models.Exam{},
		&models.StudyMaterial{},
		&models.Assignment{},
		&models.GroupBalance{},
		&models.BalanceTransaction{},
		&models.PriceRule{},
		&models.User{},
		&models.Role{},
	); err != nil {
		slog.Error("Falló la migración automática", "error", err)
		os.Exit(1)
	}
	slog.Info("Migración de la base de datos completada.")

	// El almacén GORM cubre todas las interfaces del motor de asignación.
	dataStore := store.NewGormStore(config.DB)

	// Sin Redis, los candados de publicación son locales al proceso.
	var locker provisioning.SlotLocker
	if config.RDB != nil {
		locker = store.NewRedisSlotLocker(config.RDB)
	} else {
		locker = provisioning.NewLocalSlotLocker()
	}

	ledger := provisioning.NewLedger(dataStore)
	orchestrator := provisioning.NewOrchestrator(dataStore, dataStore, dataStore, ledger, dataStore)
	guard := provisioning.NewPublicationGuard(dataStore, locker)
	bulkFiles := store.NewBulkFileCache(config.RDB)

	provisioningHandler := handlers.NewProvisioningHandler(orchestrator, ledger, dataStore, bulkFiles)
	examHandler := handlers.NewExamHandler(guard)

	router := gin.Default()

	routes.RegisterAuthRoutes(router)

	authorized := router.Group("/")
	authorized.Use(middleware.AuthMiddleware())
	routes.RegisterAPIRoutes(authorized, provisioningHandler, examHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	slog.Info("Servidor escuchando", "port", port)
	if err := router.Run(":" + port); err != nil {
		slog.Error("El servidor terminó con error", "error", err)
		os.Exit(1)
	}
}
