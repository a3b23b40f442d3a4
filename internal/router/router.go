package router

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/tailms-api/internal/dto"
	"github.com/noah-isme/tailms-api/internal/handler"
	"github.com/noah-isme/tailms-api/internal/middleware"
	"github.com/noah-isme/tailms-api/internal/models"
	"github.com/noah-isme/tailms-api/pkg/config"
	"github.com/noah-isme/tailms-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tailms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tailms-api/pkg/middleware/requestid"
)

const (
	auditResourceCourses = "courses"
	auditResourceModules = "modules"
	auditResourceLessons = "lessons"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth           *handler.AuthHandler
	Users          *handler.UserHandler
	AdminCourses   *handler.AdminCourseHandler
	StudentCourses *handler.StudentCourseHandler
	Metrics        *handler.MetricsHandler
}

// Deps carries the cross-cutting collaborators used by middleware.
type Deps struct {
	Tokens    middleware.TokenValidator
	Audit     middleware.AuditWriter
	Observer  middleware.HTTPObserver
	Validator *validator.Validate
	Logger    *zap.Logger
}

// New builds the gin engine with every route registered.
func New(cfg *config.Config, h Handlers, deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if deps.Observer != nil {
		r.Use(middleware.Metrics(deps.Observer))
	}
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	auth := middleware.JWT(deps.Tokens)
	v := deps.Validator

	authGroup := api.Group("/auth")
	authGroup.POST("/login", middleware.ValidateBody[models.LoginRequest](v), h.Auth.Login)
	authGroup.POST("/refresh", middleware.ValidateBody[models.RefreshTokenRequest](v), h.Auth.Refresh)
	authGroup.POST("/logout", auth, middleware.ValidateBody[handler.LogoutRequest](v), h.Auth.Logout)
	authGroup.POST("/change-password", auth, middleware.ValidateBody[models.ChangePasswordRequest](v), h.Auth.ChangePassword)
	authGroup.GET("/me", auth, h.Auth.Me)

	admin := middleware.RequireRoles(models.RoleAdmin)

	users := api.Group("/users", auth)
	users.GET("/profile", h.Users.Profile)
	users.GET("", admin, h.Users.List)
	users.POST("", admin, middleware.ValidateBody[dto.CreateUserRequest](v), h.Users.Create)
	users.GET("/:id", admin, h.Users.Get)
	users.PATCH("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.Self), middleware.ValidateBody[dto.UpdateUserRequest](v), h.Users.Update)
	users.PATCH("/:id/status", admin, middleware.ValidateBody[dto.UpdateUserStatusRequest](v), h.Users.UpdateStatus)
	users.DELETE("/:id", admin, h.Users.Delete)

	audit := func(action, resource, idParam string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, deps.Logger, action, resource, idParam)
	}

	courses := api.Group("/admin/courses", auth, admin)
	courses.POST("", audit(models.AuditActionCourseCreate, auditResourceCourses, ""), middleware.ValidateBody[dto.CreateCourseRequest](v), h.AdminCourses.Create)
	courses.GET("", h.AdminCourses.List)
	courses.GET("/:id", h.AdminCourses.Get)
	courses.PATCH("/:id", audit(models.AuditActionCourseUpdate, auditResourceCourses, "id"), middleware.ValidateBody[dto.UpdateCourseRequest](v), h.AdminCourses.Update)
	courses.DELETE("/:id", audit(models.AuditActionCourseDelete, auditResourceCourses, "id"), h.AdminCourses.Delete)
	courses.GET("/:id/enrollments", h.AdminCourses.Enrollments)
	courses.GET("/:id/enrollments/export", h.AdminCourses.ExportEnrollments)
	courses.POST("/:id/modules", audit(models.AuditActionModuleCreate, auditResourceModules, ""), middleware.ValidateBody[dto.CreateModuleRequest](v), h.AdminCourses.CreateModule)
	courses.PATCH("/modules/:moduleId", audit(models.AuditActionModuleUpdate, auditResourceModules, "moduleId"), middleware.ValidateBody[dto.UpdateModuleRequest](v), h.AdminCourses.UpdateModule)
	courses.DELETE("/modules/:moduleId", audit(models.AuditActionModuleDelete, auditResourceModules, "moduleId"), h.AdminCourses.DeleteModule)
	courses.POST("/modules/:moduleId/lessons", audit(models.AuditActionLessonCreate, auditResourceLessons, ""), middleware.ValidateBody[dto.CreateLessonRequest](v), h.AdminCourses.CreateLesson)
	courses.PATCH("/lessons/:lessonId", audit(models.AuditActionLessonUpdate, auditResourceLessons, "lessonId"), middleware.ValidateBody[dto.UpdateLessonRequest](v), h.AdminCourses.UpdateLesson)
	courses.DELETE("/lessons/:lessonId", audit(models.AuditActionLessonDelete, auditResourceLessons, "lessonId"), h.AdminCourses.DeleteLesson)

	student := api.Group("/student/courses", auth, middleware.RequireRoles(models.RoleStudent))
	student.GET("", h.StudentCourses.List)
	student.GET("/my-enrollments", h.StudentCourses.MyEnrollments)
	student.GET("/:id", h.StudentCourses.Get)
	student.POST("/:id/enroll", h.StudentCourses.Enroll)
	student.GET("/:id/progress", h.StudentCourses.Progress)
	student.POST("/lessons/:lessonId/complete", h.StudentCourses.CompleteLesson)

	return r
}
