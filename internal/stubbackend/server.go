// Package stubbackend is a stand-in for the video processing backend. It
// serves the same routes (health, upload, result stream, processed videos)
// and streams scripted results, which is enough to drive the client end to
// end without the detection pipeline.
package stubbackend

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/pkg/models"
)

const writeWait = 5 * time.Second

// Options configures a stub server.
type Options struct {
	// UploadDir receives uploads. A job id is known when a file of that name
	// exists here.
	UploadDir     string
	ProcessedDir  string
	ViolationsDir string

	// Script produces the stream for each connection. Defaults to a
	// generated 30 frame run.
	Script Script
	// FrameInterval paces the stream.
	FrameInterval time.Duration
	// DropFirst closes the first N stream connections without a close
	// frame and before any payload.
	DropFirst int
	// AnyJob streams for job ids that were never uploaded.
	AnyJob bool
}

// Server is the stub backend.
type Server struct {
	logger   *logrus.Entry
	opts     Options
	router   *gin.Engine
	upgrader websocket.Upgrader
	server   *http.Server

	mu      sync.Mutex
	dropped int
	streams int
}

// New creates a stub server.
func New(logger *logrus.Entry, opts Options) *Server {
	if opts.Script == nil {
		opts.Script = GeneratedScript(30)
	}
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		logger: logger,
		opts:   opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.GET("/health", s.handleHealth)
	r.POST("/upload", s.handleUpload)
	r.GET("/ws/:job", s.handleStream)
	if opts.ProcessedDir != "" {
		r.Static("/processed", opts.ProcessedDir)
	}
	if opts.ViolationsDir != "" {
		r.Static("/violations", opts.ViolationsDir)
	}
	s.router = r
	return s
}

// Handler exposes the routes, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Streams counts stream connections accepted so far, dropped ones included.
func (s *Server) Streams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams
}

// ListenAndServe serves on addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to listen").WithDetail("addr", addr)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{Handler: s.router}
	srv := s.server
	s.mu.Unlock()

	s.logger.WithField("addr", listener.Addr().String()).Info("Stub backend listening")
	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down stub backend...")
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("Request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "field 'file' is required"})
		return
	}
	if s.opts.UploadDir == "" {
		c.JSON(http.StatusOK, gin.H{"error": "uploads are disabled"})
		return
	}

	name := filepath.Base(file.Filename)
	dst := filepath.Join(s.opts.UploadDir, name)
	if err := os.MkdirAll(s.opts.UploadDir, 0o755); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}
	if err := c.SaveUploadedFile(file, dst); err != nil {
		s.logger.WithError(err).Error("Upload failed")
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	s.logger.WithField("file", name).Info("File saved")
	c.JSON(http.StatusOK, gin.H{"filename": name, "path": dst})
}

func (s *Server) knownJob(job string) bool {
	if s.opts.AnyJob {
		return true
	}
	if s.opts.UploadDir == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(s.opts.UploadDir, filepath.Base(job)))
	return err == nil && !info.IsDir()
}

func (s *Server) handleStream(c *gin.Context) {
	job := c.Param("job")
	direction, err := models.ParseDirection(c.Query("direction"))
	if err != nil {
		direction = models.DirectionAuto
	}
	log := s.logger.WithFields(logrus.Fields{"job": job, "direction": direction.String()})

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Upgrade failed")
		return
	}
	defer conn.Close()

	s.mu.Lock()
	s.streams++
	drop := s.dropped < s.opts.DropFirst
	if drop {
		s.dropped++
	}
	s.mu.Unlock()

	if drop {
		log.Info("Dropping stream connection")
		return
	}

	log.Info("Stream connected")

	if !s.knownJob(job) {
		log.Warn("File not found")
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(models.ErrorEnvelope("File not found"))
		closeNormally(conn, "")
		return
	}

	payloads, err := s.opts.Script(job, direction)
	if err != nil {
		log.WithError(err).Error("Script failed")
		_ = conn.WriteJSON(models.ErrorEnvelope(err.Error()))
		closeNormally(conn, "")
		return
	}

	// The client never sends anything; reading only notices its close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var ticker *time.Ticker
	if s.opts.FrameInterval > 0 {
		ticker = time.NewTicker(s.opts.FrameInterval)
		defer ticker.Stop()
	}

	for i, payload := range payloads {
		if i > 0 && ticker != nil {
			select {
			case <-ticker.C:
			case <-gone:
				log.Info("Client disconnected from stream")
				return
			}
		}
		select {
		case <-gone:
			log.Info("Client disconnected from stream")
			return
		default:
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.WithError(err).Debug("Stream write failed")
			return
		}
	}

	closeNormally(conn, "done")
	log.WithField("payloads", len(payloads)).Info("Stream finished")
}

func closeNormally(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
