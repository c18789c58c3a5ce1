package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"petition/internal/auth"
	"petition/internal/csrf"
	"petition/internal/session"
)

const sessionKey = "session"

// pipeline returns the request stages in the order they must run. Each stage
// may rely on everything the earlier ones established.
func (h *Handler) pipeline() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		h.recovery(),
		h.requestLogger(),
		frameGuard(),
		h.loadSession(),
		h.verifyCSRF(),
	}
}

// recovery turns a panic into a generic 500 page.
func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		h.logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"panic":  err,
		}).Error("recovered from panic")
		if c.Writer.Written() {
			c.Abort()
			return
		}
		h.renderError(c, http.StatusInternalServerError, msgGeneric)
		c.Abort()
	})
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
			"client":  c.ClientIP(),
		}).Info("request")
	}
}

// frameGuard forbids framing before anything else can write the response.
func frameGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
	}
}

// loadSession makes a token available to every later stage. Visitors without
// a valid cookie get a fresh anonymous one, written back at once so their
// CSRF secret survives until the next request.
func (h *Handler) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, fresh, err := h.sessions.Load(c.Request)
		if err != nil {
			h.logger.WithError(err).Debug("discarding session cookie")
		}
		if fresh {
			if !h.commit(c, tok) {
				c.Abort()
				return
			}
		}
		c.Set(sessionKey, tok)
		c.Next()
	}
}

// verifyCSRF rejects state-changing requests whose token was not minted for
// this session.
func (h *Handler) verifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			c.Next()
			return
		}

		submitted := c.PostForm(csrf.FieldName)
		if submitted == "" {
			submitted = c.GetHeader(csrf.HeaderName)
		}
		if !h.csrf.Validate(sessionFrom(c).CSRFSecret, submitted) {
			h.logger.WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			}).Warn("csrf token rejected")
			h.renderError(c, http.StatusForbidden, "Your form has expired. Reload the page and try again.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// guard applies an AuthGate rule. A denial without a redirect goes to deny,
// or a bare 403 when deny is nil.
func (h *Handler) guard(rule auth.Rule, deny gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := rule(auth.StateOf(sessionFrom(c)))
		switch {
		case d.Allow:
			c.Next()
		case d.Redirect != "":
			c.Redirect(http.StatusFound, d.Redirect)
			c.Abort()
		case deny != nil:
			deny(c)
			c.Abort()
		default:
			h.renderError(c, http.StatusForbidden, "You cannot do that right now.")
			c.Abort()
		}
	}
}

// sessionFrom returns the token placed by loadSession.
func sessionFrom(c *gin.Context) session.Token {
	if v, ok := c.Get(sessionKey); ok {
		if tok, ok := v.(session.Token); ok {
			return tok
		}
	}
	return session.Token{}
}
