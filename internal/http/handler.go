package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"petition/internal/auth"
	"petition/internal/csrf"
	"petition/internal/service"
	"petition/internal/session"
)

const defaultQueryTimeout = 5 * time.Second

const (
	msgGeneric     = "Something went wrong on our side. Please try again."
	msgForm        = "Please fill in all required fields correctly."
	msgPassword    = "Your password must be at most 72 bytes long."
	msgCredentials = "Invalid email or password."
)

// Options carries the collaborators of Handler.
type Options struct {
	Petition     service.PetitionService
	Sessions     *session.Store
	CSRF         *csrf.Guard
	Logger       *logrus.Logger
	QueryTimeout time.Duration
	// Ping reports database readiness for /healthz. Optional.
	Ping func(ctx context.Context) error
}

// Handler wires HTTP routes to the petition workflow.
type Handler struct {
	petition     service.PetitionService
	sessions     *session.Store
	csrf         *csrf.Guard
	logger       *logrus.Logger
	queryTimeout time.Duration
	ping         func(ctx context.Context) error
}

func NewHandler(opts Options) (*Handler, error) {
	if err := registerValidators(); err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = defaultQueryTimeout
	}
	return &Handler{
		petition:     opts.Petition,
		sessions:     opts.Sessions,
		csrf:         opts.CSRF,
		logger:       opts.Logger,
		queryTimeout: opts.QueryTimeout,
		ping:         opts.Ping,
	}, nil
}

// RegisterRoutes installs the request pipeline and the petition routes.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(loadTemplates())
	router.Use(h.pipeline()...)

	router.GET("/", h.guard(auth.HomeRule, nil), h.home)

	router.GET("/register", h.showRegister)
	router.POST("/register", h.register)

	router.GET("/login", h.guard(auth.RequireAnonymous("/"), nil), h.showLogin)
	router.POST("/login", h.login)

	requireUser := h.guard(auth.RequireUser("/register"), nil)
	router.GET("/profile", requireUser, h.showProfile)
	router.POST("/profile", requireUser, h.saveProfile)

	router.POST("/sign-petition", h.guard(auth.RequireUser(""), h.signDenied), h.sign)
	router.GET("/thank-you", h.guard(auth.RequireSigned("/"), nil), h.thanks)

	router.GET("/signers", h.signers)
	router.GET("/signers/:city", h.signers)

	router.GET("/logout", h.logout)

	router.GET("/healthz", h.health)
	router.NoRoute(func(c *gin.Context) {
		h.renderError(c, http.StatusNotFound, "This page does not exist.")
	})
}

// queryContext bounds a single directory call.
func (h *Handler) queryContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.queryTimeout)
}

// collaboratorFailure logs an unexpected directory error for route.
func (h *Handler) collaboratorFailure(c *gin.Context, err error) {
	entry := h.logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"route":  c.FullPath(),
	})
	if errors.Is(err, context.DeadlineExceeded) {
		entry.Warn("directory call timed out")
		return
	}
	entry.Error("directory call failed")
}

// commit writes tok back to the client and makes it current for the rest of the request.
func (h *Handler) commit(c *gin.Context, tok session.Token) bool {
	if err := h.sessions.Save(c.Writer, tok); err != nil {
		h.logger.WithError(err).Error("save session")
		h.renderError(c, http.StatusInternalServerError, msgGeneric)
		return false
	}
	c.Set(sessionKey, tok)
	return true
}

func (h *Handler) health(c *gin.Context) {
	if h.ping != nil {
		ctx, cancel := h.queryContext(c)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.logger.WithError(err).Warn("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": "ok"})
}
