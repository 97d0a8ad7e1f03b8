package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/taskify/internal/handler" // import the handlers that implement business logic
)

// Handlers gathers every handler the API mounts.  The router package only
// wires paths to methods; all behavior lives in the handler package.
type Handlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Board    *handler.BoardHandler
	Column   *handler.ColumnHandler
	Task     *handler.TaskHandler
	Subtask  *handler.SubtaskHandler
	Password *handler.PasswordHandler
}

// Register mounts the health check and the whole /api/v1 surface on the
// provided Echo instance.  Authorization is NOT applied here: the Auth
// middleware is installed globally in main and decides per request, via its
// public-prefix allow list, whether a session is required.  That keeps the
// route table and the access policy in one place each.
func Register(e *echo.Echo, h Handlers) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)

	// All API endpoints live under a versioned prefix.
	v1 := e.Group("/api/v1")

	// Account registration and profile management.  /user/create is on the
	// public allow list; everything else under /user requires a session.
	user := v1.Group("/user")
	user.POST("/create", h.User.Create)
	user.GET("/all", h.User.List)
	user.GET("/:id", h.User.Get)
	user.PUT("/:id", h.User.Update)
	user.DELETE("/:id", h.User.Delete)

	// Session endpoints.  Only /auth/login is public; logout, refresh and
	// me operate on an existing session.
	auth := v1.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/logout", h.Auth.Logout)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.GET("/me", h.Auth.Me)

	// Board CRUD plus the nested details view of every board the caller
	// owns, down to subtasks.
	board := v1.Group("/board")
	board.POST("/create", h.Board.Create)
	board.GET("/all", h.Board.List)
	board.GET("/details/user", h.Board.Details)
	board.GET("/:id", h.Board.Get)
	board.PUT("/:id", h.Board.Update)
	board.DELETE("/:id", h.Board.Delete)

	// Column CRUD.  Columns are listed through their board.
	column := v1.Group("/column")
	column.POST("/create", h.Column.Create)
	column.GET("/board/:board_id", h.Column.ListByBoard)
	column.GET("/:id", h.Column.Get)
	column.PUT("/:id", h.Column.Update)
	column.DELETE("/:id", h.Column.Delete)

	// Task CRUD.  Tasks are listed through their column.
	task := v1.Group("/task")
	task.POST("/create", h.Task.Create)
	task.GET("/column/:column_id", h.Task.ListByColumn)
	task.GET("/:id", h.Task.Get)
	task.PUT("/:id", h.Task.Update)
	task.DELETE("/:id", h.Task.Delete)

	// Moving a task is its own top-level operation because it crosses
	// columns and rewrites positions on both sides.
	v1.PUT("/move/task", h.Task.Move)

	// Subtask CRUD.  Subtasks are listed through their task.
	subtask := v1.Group("/subtask")
	subtask.POST("/create", h.Subtask.Create)
	subtask.GET("/:task_id", h.Subtask.ListByTask)
	subtask.PUT("/:id", h.Subtask.Update)
	subtask.DELETE("/:id", h.Subtask.Delete)

	// Password reset flow.  The whole /password/ prefix is public: the
	// caller has, by definition, no working credentials.
	password := v1.Group("/password")
	password.POST("/send_otp", h.Password.SendOTP)
	password.POST("/verify_otp", h.Password.VerifyOTP)
	password.POST("/reset_password", h.Password.ResetPassword)
}
