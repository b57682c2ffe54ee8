package http

import (
	"context"
	stdhttp "net/http"

	"commonthread/internal/auth"
	"commonthread/internal/config"
	"commonthread/internal/domain/org"
	"commonthread/internal/http/handler"
	"commonthread/internal/http/middleware"
	"commonthread/internal/rbac"
	"commonthread/internal/repository"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

const (
	jsonKeyStatus    = "status"
	statusOK         = "ok"
	requestBodyLimit = "1M"
)

var editMethods = []string{stdhttp.MethodPost, stdhttp.MethodPatch}

type ServerDependencies struct {
	Config    *config.Config
	Store     *repository.Store
	Tokens    *auth.TokenService
	Guard     *auth.Guard
	Checker   *rbac.Checker
	Hasher    handler.PasswordHasher
	Presigner handler.Presigner
	Producer  handler.Enqueuer
	Chatter   handler.Chatter
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
}

func NewServer(deps *ServerDependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Set custom HTTP error handler
	e.HTTPErrorHandler = CustomHTTPErrorHandler

	e.Server.ReadTimeout = deps.Config.Server.ReadTimeout
	e.Server.WriteTimeout = deps.Config.Server.WriteTimeout

	// Older clients call /user/ and /stories/ with a trailing slash.
	e.Pre(echomiddleware.RemoveTrailingSlash())

	// Request ID middleware (first, so all logs have request ID)
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	metrics := middleware.NewRequestMetrics()
	e.Use(metrics.Middleware())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))

	globalRateLimiter := middleware.NewGlobalRateLimiter()
	e.Use(globalRateLimiter.Middleware())

	// Strict rate limiting for credential endpoints
	strictRateLimiter := middleware.NewStrictRateLimiter()

	registerRoutes(e, deps, strictRateLimiter.Middleware())
	e.GET("/metrics/requests", metrics.Handler)

	return &Server{
		echo: e,
		deps: deps,
	}
}

func registerRoutes(e *echo.Echo, deps *ServerDependencies, strict echo.MiddlewareFunc) {
	store := deps.Store
	buckets := handler.Buckets{
		StoryAudio:   deps.Config.Buckets.StoryAudio,
		StoryImages:  deps.Config.Buckets.StoryImages,
		UserProfiles: deps.Config.Buckets.UserProfiles,
		OrgProfiles:  deps.Config.Buckets.OrgProfiles,
	}

	authHandler := handler.NewAuthHandler(store.Users, deps.Hasher, deps.Tokens)
	userHandler := handler.NewUserHandler(store.Users, store.Orgs, deps.Hasher, deps.Presigner, buckets)
	orgHandler := handler.NewOrgHandler(store.Tx, store.Orgs, store.Memberships, store.Projects, store.Users, deps.Checker, deps.Presigner, buckets)
	projectHandler := handler.NewProjectHandler(store.Tx, store.Projects, store.Orgs, store.Stories, store.Tags, store.Users, deps.Chatter)
	storyHandler := handler.NewStoryHandler(store.Tx, store.Stories, store.Projects, store.Tags, store.Users, store.Tasks, deps.Producer, deps.Presigner, buckets)

	g := deps.Guard
	none := auth.NoResource()
	self := auth.RequireResource(rbac.KindSelfUser)
	orgRes := auth.RequireResource(rbac.KindOrg)
	projectRes := auth.RequireResource(rbac.KindProject)
	storyRes := auth.RequireResource(rbac.KindStory)
	orgBody := auth.RequireBodyResource(rbac.KindOrg)
	projectBody := auth.RequireBodyResource(rbac.KindProject)
	anyRes := auth.RequireResource(rbac.KindStory, rbac.KindProject, rbac.KindOrg, rbac.KindSelfUser)

	e.GET("/health", healthCheck)

	e.POST("/login", authHandler.Login, strict)
	e.POST("/create_access", authHandler.CreateAccess, strict)

	e.POST("/user/create", userHandler.Create, strict)
	e.GET("/user", userHandler.Me, g.Require(org.TierUser, none))
	e.Match(editMethods, "/user/:user_id/edit", userHandler.Edit, g.Require(org.TierUser, self))
	e.DELETE("/user/:user_id/delete", userHandler.Delete, g.Require(org.TierUser, self))

	e.POST("/org/create", orgHandler.Create, g.Require(org.TierUser, none))
	e.GET("/org/:org_id", orgHandler.Get, g.Require(org.TierVisitor, orgRes))
	e.GET("/org/:org_id/admin", orgHandler.ListMembers, g.Require(org.TierAdmin, orgRes))
	e.POST("/org/:org_id/admin", orgHandler.UpdateAccess, g.Require(org.TierAdmin, orgRes))
	e.Match(editMethods, "/org/:org_id/edit", orgHandler.Edit, g.Require(org.TierAdmin, orgRes))
	e.DELETE("/org/:org_id/delete", orgHandler.Delete, g.Require(org.TierCreator, orgRes))
	e.POST("/org/:org_id/add-user", orgHandler.AddMember, g.Require(org.TierAdmin, orgRes))
	e.POST("/org/:org_id/delete-user", orgHandler.RemoveMember, g.Require(org.TierAdmin, orgRes))
	e.GET("/org/:org_id/projects", orgHandler.Projects, g.Require(org.TierVisitor, orgRes))

	e.POST("/project/create", projectHandler.Create, g.Require(org.TierAdmin, orgBody))
	e.GET("/project/:project_id", projectHandler.Get, g.Require(org.TierVisitor, projectRes))
	e.POST("/project/:project_id/chat", projectHandler.Chat, g.Require(org.TierVisitor, projectRes))
	e.Match(editMethods, "/project/:org_id/:project_id/edit", projectHandler.Edit, g.Require(org.TierAdmin, projectRes))
	e.DELETE("/project/:org_id/:project_id/delete", projectHandler.Delete, g.Require(org.TierAdmin, projectRes))

	e.POST("/story/create", storyHandler.Create, g.Require(org.TierUser, projectBody))
	e.GET("/stories", storyHandler.List, g.Require(org.TierVisitor, anyRes))
	e.GET("/story/:story_id", storyHandler.Get, g.Require(org.TierVisitor, storyRes))
	e.Match(editMethods, "/story/:story_id/edit", storyHandler.Edit, g.Require(org.TierAdmin, storyRes))
	e.DELETE("/story/:story_id/delete", storyHandler.Delete, g.Require(org.TierAdmin, storyRes))
	e.GET("/story/:story_id/ml-status", storyHandler.MLStatus, g.Require(org.TierVisitor, storyRes))
	e.POST("/story/:story_id/ml-requeue", storyHandler.Requeue, g.Require(org.TierAdmin, storyRes))
}

// Handler exposes the router, for tests and for embedding.
func (s *Server) Handler() stdhttp.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func healthCheck(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, map[string]string{
		jsonKeyStatus: statusOK,
	})
}
