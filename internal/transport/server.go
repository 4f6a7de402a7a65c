package transport

import (
	"net/http"
	"net/url"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Rajchodisetti/newsdesk/internal/desk"
	"github.com/Rajchodisetti/newsdesk/internal/observ"
)

type Server struct {
	R        *gin.Engine
	Desk     *desk.Desk
	Logger   *zap.Logger
	origin   string
	upgrader websocket.Upgrader
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewServer wires the router and middleware. frontendOrigin is allowed for
// CORS and websocket upgrades in addition to localhost origins.
func NewServer(d *desk.Desk, logger *zap.Logger, frontendOrigin string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := gin.New()
	s := &Server{
		R:      g,
		Desk:   d,
		Logger: logger,
		origin: frontendOrigin,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.allowedOrigin(origin)
		},
	}

	// Request logging
	g.Use(func(cn *gin.Context) {
		start := time.Now()
		cn.Next()
		latency := time.Since(start)
		logger.Info("http_request",
			zap.String("method", cn.Request.Method),
			zap.String("path", cn.Request.URL.Path),
			zap.Int("status", cn.Writer.Status()),
			zap.String("ip", cn.ClientIP()),
			zap.Duration("latency", latency),
		)
		observ.IncCounter("http_requests_total", map[string]string{"path": cn.FullPath()})
		observ.RecordDuration("http_request", latency, map[string]string{"path": cn.FullPath()})
	})

	g.Use(gin.Recovery())

	// CORS
	g.Use(func(cn *gin.Context) {
		origin := cn.GetHeader("Origin")
		cn.Writer.Header().Set("Vary", "Origin")
		cn.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Cache-Control")
		cn.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		cn.Writer.Header().Set("Access-Control-Max-Age", "86400")
		if origin != "" && s.allowedOrigin(origin) {
			cn.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		if cn.Request.Method == http.MethodOptions {
			cn.AbortWithStatus(http.StatusNoContent)
			return
		}
		cn.Next()
	})

	g.GET("/api/health", s.health)
	g.GET("/api/news", s.getNews)
	g.GET("/api/calls", s.getCalls)
	g.GET("/sse/quotes", s.streamQuotesSSE)
	g.GET("/ws/quotes", s.streamQuotesWS)
	g.GET("/metrics", gin.WrapH(observ.Handler()))

	return s
}

func (s *Server) allowedOrigin(origin string) bool {
	if s.origin == "*" || (s.origin != "" && origin == s.origin) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1":
		return true
	}
	return false
}

// --- Helpers ---

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, apiError{Code: "bad_request", Message: msg})
}

func (s *Server) internalError(c *gin.Context, code string, err error) {
	s.Logger.Error("internal_error", zap.String("where", code), zap.Error(err))
	c.JSON(http.StatusInternalServerError, apiError{Code: code, Message: "internal server error"})
}

func (s *Server) symbols(c *gin.Context) ([]string, bool) {
	syms, err := desk.ParseSymbols(c.Query("symbols"))
	if err != nil {
		s.badRequest(c, err.Error())
		return nil, false
	}
	return syms, true
}

// --- Handlers ---

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "at": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) getNews(c *gin.Context) {
	syms, ok := s.symbols(c)
	if !ok {
		return
	}
	out, err := s.Desk.News(c.Request.Context(), syms)
	if err != nil {
		if c.Request.Context().Err() != nil {
			return // client went away
		}
		s.internalError(c, "news_failed", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getCalls(c *gin.Context) {
	syms, ok := s.symbols(c)
	if !ok {
		return
	}
	calls, err := s.Desk.Calls(c.Request.Context(), syms)
	if err != nil {
		if c.Request.Context().Err() != nil {
			return // client went away
		}
		s.internalError(c, "calls_failed", err)
		return
	}
	c.JSON(http.StatusOK, calls)
}
