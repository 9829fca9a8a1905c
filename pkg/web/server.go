// Package web provides an optional status server for the sampler:
// liveness, capture stats, the latest frame, and a websocket feed of
// new frames.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/gemblerz/camera-sampler/internal/log"
	"github.com/gemblerz/camera-sampler/pkg/camera"
)

// Status reports the sampler's current state.
type Status struct {
	Stream      string    `json:"stream"`
	Mode        string    `json:"mode"`
	Cronjob     string    `json:"cronjob"`
	Captures    uint64    `json:"captures"`
	LastCapture time.Time `json:"last_capture"`
}

// Server is the status HTTP server.
type Server struct {
	app  *fiber.App
	addr string

	mu     sync.RWMutex
	status Status
	frame  []byte

	frames *Hub
}

// NewServer creates a status server listening on addr once started.
func NewServer(addr string, status Status) *Server {
	s := &Server{
		addr:   addr,
		status: status,
		frames: NewHub(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "camera-sampler",
		DisableStartupMessage: true,
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/frame", s.handleFrame)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.frames.Serve))

	s.app = app
	return s
}

// StartAsync starts the frame hub and the listener in the background.
func (s *Server) StartAsync() {
	go s.frames.Run()
	go func() {
		log.Info("status server listening", "addr", s.addr)
		if err := s.app.Listen(s.addr); err != nil {
			log.Error("status server stopped", "error", err)
		}
	}()
}

// Shutdown stops the frame hub and gracefully stops the server.
func (s *Server) Shutdown() error {
	s.frames.Stop()
	return s.app.Shutdown()
}

// Publish records a new sample and pushes its JPEG to connected
// websocket clients. Safe for concurrent use.
func (s *Server) Publish(sample camera.Sample) {
	s.mu.Lock()
	s.status.Captures++
	s.status.LastCapture = sample.Timestamp
	s.frame = sample.Data
	s.mu.Unlock()

	s.frames.Broadcast(sample.Data)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()
	return c.JSON(status)
}

func (s *Server) handleFrame(c *fiber.Ctx) error {
	s.mu.RLock()
	frame := s.frame
	s.mu.RUnlock()

	if frame == nil {
		return fiber.NewError(fiber.StatusNotFound, "no frame captured yet")
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(frame)
}
