package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"

	"github.com/chaos-io/bgremover/cache"
	"github.com/chaos-io/bgremover/config"
)

// Server 上传、一次性处理和 WebSocket 实时调参
type Server struct {
	cfg      *config.Config
	proc     *cache.Processor
	store    *UploadStore
	cron     *cron.Cron
	engine   *gin.Engine
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func New(cfg *config.Config, proc *cache.Processor, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if proc == nil {
		c, err := cache.New(cfg.Cache.Size)
		if err != nil {
			return nil, err
		}
		proc = cache.NewProcessor(nil, c)
	}
	s := &Server{
		cfg:    cfg,
		proc:   proc,
		store:  NewUploadStore(),
		cron:   cron.New(),
		logger: logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
	if err := s.schedule(); err != nil {
		return nil, err
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))
	r.Use(cors.New(s.corsConfig()))

	r.GET("/healthz", s.health)
	r.POST("/upload", s.upload)
	r.DELETE("/upload/:id", s.deleteUpload)
	r.POST("/process/:id", s.process)
	r.GET("/ws/:id", s.live)
	r.DELETE("/cache", s.purgeCache)
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if s.allowAllOrigins() {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.Server.AllowedOrigins
	}
	return cfg
}

func (s *Server) allowAllOrigins() bool {
	if len(s.cfg.Server.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.cfg.Server.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Store() *UploadStore {
	return s.store
}

func (s *Server) schedule() error {
	sweep := "@every " + s.cfg.Server.SweepInterval.String()
	if _, err := s.cron.AddFunc(sweep, s.sweep); err != nil {
		return fmt.Errorf("schedule upload sweep: %w", err)
	}
	if s.cfg.Server.StatsInterval > 0 && s.proc.Cache != nil {
		stats := "@every " + s.cfg.Server.StatsInterval.String()
		if _, err := s.cron.AddFunc(stats, s.logStats); err != nil {
			return fmt.Errorf("schedule cache stats: %w", err)
		}
	}
	return nil
}

func (s *Server) sweep() {
	if n := s.store.Filter(s.cfg.Server.UploadTTL.Std()); n > 0 {
		s.logger.Info("expired uploads removed", "count", n, "remaining", s.store.Len())
	}
}

func (s *Server) logStats() {
	st := s.proc.Cache.Stats()
	s.logger.Info("cache stats", "size", st.Size, "hits", st.Hits, "misses", st.Misses, "evictions", st.Evictions)
}

// Run 启动定时任务并监听，ctx 取消后优雅退出
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.cron.Start()
	defer s.cron.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.allowAllOrigins() {
		return true
	}
	for _, o := range s.cfg.Server.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
			"client", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			logger.Warn("request", append(attrs, "error", c.Errors.String())...)
			return
		}
		logger.Info("request", attrs...)
	}
}
