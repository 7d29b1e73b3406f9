package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/qvox/qvox-server/internal/cache"
	"github.com/qvox/qvox-server/internal/config"
	"github.com/qvox/qvox-server/internal/engine"
	generationservice "github.com/qvox/qvox-server/internal/service/generation_service"
	"github.com/qvox/qvox-server/internal/storage"
	taskmanager "github.com/qvox/qvox-server/internal/task_manager"
	"github.com/qvox/qvox-server/internal/web/middleware"
)

type Server struct {
	router  chi.Router
	engine  *engine.Engine
	storage storage.Storage
	cache   cache.Cache
	tasks   *taskmanager.Manager
	gen     *generationservice.Service
	limiter *middleware.Limiter
}

func NewServer(e *engine.Engine, s storage.Storage, c cache.Cache, tm *taskmanager.Manager, webCfg *config.WebConfig) *Server {
	srv := &Server{
		router:  chi.NewRouter(),
		engine:  e,
		storage: s,
		cache:   c,
		tasks:   tm,
		gen:     generationservice.NewService(e, s, tm),
		limiter: middleware.NewLimiter(webCfg.GEN_QUEUE_SIZE, webCfg.GEN_MAX_INFLIGHT),
	}

	srv.routes()
	return srv
}

// Router exposes the handler for main.go and the tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Generation submissions go through the backpressure limiter; polling
	// and file management stay unthrottled.
	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Limit)
		r.Post("/clone", s.handleClone)
		r.Post("/clone-with-upload", s.handleCloneWithUpload)
		r.Post("/clone-multi-speaker", s.handleCloneMultiSpeaker)
		r.Post("/voice-design", s.handleVoiceDesign)
		r.Post("/custom-voice", s.handleCustomVoice)
	})

	r.Get("/tasks/{id}", s.handleTaskStatus)
	r.Post("/tasks/{id}/cancel", s.handleTaskCancel)
	r.Get("/tasks/{id}/audio", s.handleTaskAudio)

	r.Get("/references", s.handleListReferences)
	r.Post("/upload-reference", s.handleUploadReference)
	r.Get("/references/{id}/audio", s.handleReferenceAudio)
	r.Delete("/references/{id}", s.handleDeleteReference)
	r.Put("/references/{id}/name", s.handleRenameReference)

	r.Get("/generated", s.handleListGenerated)
	r.Delete("/generated/{id}", s.handleDeleteGenerated)

	r.Get("/health", s.handleHealth)
	r.Get("/capabilities", s.handleCapabilities)
	r.Get("/languages", s.handleLanguages)
}
