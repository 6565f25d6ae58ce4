package main

import (
	"context"
	"fmt"
	common_api "go-grc/internal/common/api"
	"go-grc/internal/config"
	"go-grc/internal/database"
	"go-grc/internal/features/approval"
	"go-grc/internal/features/archive"
	"go-grc/internal/features/audit"
	"go-grc/internal/features/automation"
	"go-grc/internal/features/notification"
	"go-grc/internal/features/report"
	"go-grc/internal/features/system"
	"go-grc/internal/features/template"
	"go-grc/internal/logger"
	"go-grc/internal/middleware"
	"go-grc/pkg/utils"
	"log"

	_ "go-grc/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Use custom CORS middleware
	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for i, route := range routes {
		log.Printf("Setting up route %d: %T\n", i+1, route)
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// @title           GRC Approval Workflow API
// @version         1.0
// @description     Approval workflow engine for governance, risk and compliance entities.

// @contact.name    API Support
// @contact.email   support@swagger.io

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host            localhost:8080
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Initialize Repository
			audit.NewAuditRepository,
			template.NewTemplateRepository,
			approval.NewApprovalRepository,
			approval.NewStepRepository,
			approval.NewActionLogRepository,
			notification.NewNotificationRepository,
			automation.NewAutomationRepository,
			report.NewReportRepository,
			archive.NewArchiveRunRepository,

			notification.NewHub,

			audit.NewAuditService,
			template.NewTemplateService,
			approval.NewApprovalService,
			notification.NewNotificationService,
			automation.NewActionExecutor,
			automation.NewAutomationService,
			report.NewReportService,
			archive.NewArchiveService,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(r approval.ApprovalRepository) template.InstanceCounter { return r },
			func(s notification.NotificationService) approval.Notifier { return s },
			func(s automation.AutomationService) approval.AutomationTrigger { return s },

			// Initialize Controller
			template.NewTemplateController,
			approval.NewApprovalController,
			audit.NewAuditController,
			notification.NewNotificationController,
			automation.NewAutomationController,
			report.NewReportController,
			archive.NewArchiveController,
			system.NewHealthController,
			system.NewWebSocketController,

			// Initialize API Routes
			AsRoute(template.NewTemplateApi),
			AsRoute(approval.NewApprovalApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(notification.NewNotificationApi),
			AsRoute(automation.NewAutomationApi),
			AsRoute(report.NewReportApi),
			AsRoute(archive.NewArchiveApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewWebSocketApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) {
				utils.SetSecret(cfg.JWTSecret)
			},

			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, reportService report.ReportService) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return reportService.InitializeScheduler(ctx)
					},
					OnStop: func(ctx context.Context) error {
						reportService.StopScheduler()
						return nil
					},
				})
			},
		),
	)

	app.Run()
}
