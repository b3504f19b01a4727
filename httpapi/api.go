package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maantoa/tomeauth"
)

const userContextKey = "tomeauth.user"

// Handler serves the auth routes of one engine.
type Handler struct {
	engine        *tomeauth.Engine
	profileHeader string
	metrics       http.Handler
	logger        *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *Handler) { a.metrics = h }
}

// WithLogger sets the logger used for failed health checks and unmapped
// errors. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Handler) { a.logger = logger }
}

// NewHandler returns a Handler over engine. The profile header comes from the
// engine configuration.
func NewHandler(engine *tomeauth.Engine, opts ...Option) *Handler {
	h := &Handler{
		engine:        engine,
		profileHeader: engine.Config().HTTP.ProfileHeader,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.profileHeader == "" {
		h.profileHeader = tomeauth.DefaultConfig().HTTP.ProfileHeader
	}
	return h
}

// Router builds a gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestScope())
	h.Register(r)
	return r
}

// Register adds the routes to r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/healthz", h.Health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}

	r.POST("/auth/signin", h.SignIn)
	r.POST("/auth/signout", h.SignOut)
	r.POST("/auth/verify", h.Verify)
	r.GET("/auth/me", h.RequireSession(), h.Me)
	r.GET("/auth/activity", h.RequireSession(), h.Activity)
	r.POST("/auth/refresh", h.RequireSession(), h.Refresh)
}

// requestScope moves the profile header and client IP into the request
// context.
func (h *Handler) requestScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := tomeauth.WithClientIP(c.Request.Context(), c.ClientIP())
		if id := c.GetHeader(h.profileHeader); id != "" {
			ctx = tomeauth.WithProfile(ctx, id)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireSession aborts with 401 unless the profile has a current user. The
// user is stored on the gin context for later handlers.
func (h *Handler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.engine.CurrentUser(c.Request.Context())
		if err != nil {
			status, msg := h.statusFor(err)
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// UserFrom returns the user stored by RequireSession.
func UserFrom(c *gin.Context) (*tomeauth.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*tomeauth.User)
	return u, ok
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.engine.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		status, msg := h.statusFor(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) SignOut(c *gin.Context) {
	h.engine.SignOut(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	user, _ := UserFrom(c)
	c.JSON(http.StatusOK, user)
}

func (h *Handler) Verify(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"valid": h.engine.VerifySession(c.Request.Context())})
}

func (h *Handler) Refresh(c *gin.Context) {
	user, _ := UserFrom(c)
	if err := h.engine.RefreshSession(c.Request.Context(), user.ID); err != nil {
		status, msg := h.statusFor(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Activity(c *gin.Context) {
	ctx := c.Request.Context()
	attempts, err := h.engine.LoginAttempts(ctx)
	if err != nil {
		status, msg := h.statusFor(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lastActivity":  h.engine.LastActivity(ctx).UTC().Format(time.RFC3339),
		"loginAttempts": attempts,
	})
}

func (h *Handler) Health(c *gin.Context) {
	status := h.engine.Health(c.Request.Context())
	if !status.Healthy {
		h.logger.Warn("health check failed", "error", status.Err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  status.Err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"latencyMs": status.Latency.Milliseconds(),
	})
}

func (h *Handler) statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, tomeauth.ErrInvalidFormat):
		return http.StatusBadRequest, tomeauth.ErrInvalidFormat.Error()
	case errors.Is(err, tomeauth.ErrThrottled):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, tomeauth.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, tomeauth.ErrNoSession):
		return http.StatusUnauthorized, tomeauth.ErrNoSession.Error()
	case errors.Is(err, tomeauth.ErrSessionExpired):
		return http.StatusConflict, err.Error()
	case errors.Is(err, tomeauth.ErrRefreshFailed):
		return http.StatusServiceUnavailable, tomeauth.ErrRefreshFailed.Error()
	case errors.Is(err, tomeauth.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, tomeauth.ErrStorageUnavailable.Error()
	default:
		h.logger.Error("request failed", "error", err)
		return http.StatusInternalServerError, "internal error"
	}
}
