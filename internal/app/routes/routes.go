package routes

import (
	"github.com/gin-gonic/gin"
	appAuth "github.com/quantumlab/labtrack/internal/app/auth"
	"github.com/quantumlab/labtrack/internal/app/controllers"
	"github.com/quantumlab/labtrack/internal/middleware"
	"github.com/quantumlab/labtrack/internal/pkg/websocket"
)

// Controllers groups every HTTP handler the router mounts
type Controllers struct {
	Auth          *controllers.AuthController
	Users         *controllers.UserController
	Experiments   *controllers.ExperimentController
	Files         *controllers.FileController
	Notifications *controllers.NotificationController
	Logs          *controllers.LogController
	Messages      *controllers.MessageController
	Dashboard     *controllers.DashboardController
	Realtime      *websocket.Handler
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	// --- Public Auth routes ---
	auth := router.Group("/auth")
	{
		auth.POST("/login", c.Auth.Login)
		auth.POST("/register", c.Auth.Register)
	}

	// --- Authenticated Routes Group ---
	authenticated := router.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	authenticated.GET("/auth/me", c.Auth.Me)
	if c.Realtime != nil {
		authenticated.GET("/ws", c.Realtime.HandleConnection)
	}

	// --- Admin routes ---
	admin := authenticated.Group("/admin")
	admin.Use(authMiddleware.Require(appAuth.CapAdminAccess))
	{
		admin.GET("/dashboard-stats", authMiddleware.Require(appAuth.CapStatsRead), c.Dashboard.GetStats)

		users := admin.Group("")
		users.Use(authMiddleware.Require(appAuth.CapUsersManage))
		{
			users.POST("/create-user", c.Users.CreateUser)
			users.GET("/users", c.Users.ListUsers)
			users.PUT("/users/:id", c.Users.UpdateUserStatus)
			users.PUT("/users/:id/status", c.Users.UpdateUserStatus)
			users.PUT("/toggle-status/:id", c.Users.UpdateUserStatus)
			users.PUT("/users/:id/password", c.Users.ResetPassword)
			users.DELETE("/users/:id", c.Users.DeleteUser)
		}

		experiments := admin.Group("/experiments")
		experiments.Use(authMiddleware.Require(appAuth.CapExperimentsManage))
		{
			experiments.POST("", c.Experiments.CreateExperiment)
			experiments.GET("", c.Experiments.ListExperiments)
			experiments.PUT("/:id", c.Experiments.UpdateExperiment)
			experiments.PUT("/:id/status", c.Experiments.UpdateStatus)
			experiments.PUT("/:id/assign", c.Experiments.AssignExperiment)
			experiments.DELETE("/:id", c.Experiments.DeleteExperiment)
		}

		logs := admin.Group("/logs")
		logs.Use(authMiddleware.Require(appAuth.CapLogsRead))
		{
			logs.GET("", c.Logs.ListLogs)
			logs.GET("/export", c.Logs.ExportLogs)
		}

		mountInbox(admin, c, authMiddleware)
	}

	// --- User routes ---
	user := authenticated.Group("/user")
	{
		mine := user.Group("/experiments")
		mine.Use(authMiddleware.Require(appAuth.CapExperimentsOwn))
		{
			mine.GET("", c.Experiments.ListMyExperiments)
			mine.GET("/:id", c.Experiments.GetMyExperiment)
			mine.PUT("/:id/status", c.Experiments.MarkDone)
		}

		mountInbox(user, c, authMiddleware)
	}

	// --- Experiment files and reports ---
	files := authenticated.Group("/experiments")
	files.Use(authMiddleware.Require(appAuth.CapExperimentFiles))
	{
		files.GET("/user", c.Files.ListMyFiles)
		files.GET("/approved", c.Files.ListApprovedFiles)
		files.GET("/admin/approved-files", c.Files.ListApprovedFiles)

		files.POST("/:id/files", c.Files.UploadFile)
		files.GET("/:id/files", c.Files.ListFiles)
		files.DELETE("/:id/files/:fileId", c.Files.DeleteFile)

		files.POST("/:id/report", c.Files.UpsertReport)
		files.PUT("/:id/report", c.Files.UpsertReport)
		files.GET("/:id/report", c.Files.GetReport)
	}

	// --- Direct messages ---
	messages := authenticated.Group("/messages")
	messages.Use(authMiddleware.Require(appAuth.CapMessagesUse))
	{
		messages.POST("", c.Messages.SendMessage)
		messages.GET("/conversation/:otherUserId", c.Messages.GetConversation)
		messages.PUT("/conversation/:otherUserId/mark-read", c.Messages.MarkConversationRead)
		messages.GET("/unread-count", c.Messages.UnreadCount)
	}
}

// mountInbox adds the notification inbox and self-service settings to a role prefix
func mountInbox(group *gin.RouterGroup, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	inbox := group.Group("")
	inbox.Use(authMiddleware.Require(appAuth.CapNotificationsRead, appAuth.CapProfileEdit))
	{
		inbox.GET("/notifications", c.Notifications.ListNotifications)
		inbox.GET("/notifications/unread-count", c.Notifications.UnreadCount)
		inbox.PUT("/notifications/:id/read", c.Notifications.MarkRead)
		inbox.PUT("/notifications/mark-all-read", c.Notifications.MarkAllRead)
		inbox.GET("/notifications/prefs", c.Users.GetPrefs)
		inbox.PUT("/notifications/prefs", c.Users.UpdatePrefs)

		inbox.GET("/profile", c.Users.GetProfile)
		inbox.PUT("/profile", c.Users.UpdateProfile)
		inbox.PUT("/change-password", c.Users.ChangePassword)
		inbox.POST("/avatar", c.Users.UploadAvatar)
	}
}
