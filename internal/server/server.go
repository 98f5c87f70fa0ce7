// Package server wires stores, handlers, and middleware into the HTTP
// router.
package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mjimenez-dev/casita/internal/auth"
	"github.com/mjimenez-dev/casita/internal/config"
	"github.com/mjimenez-dev/casita/internal/handler"
	"github.com/mjimenez-dev/casita/internal/middleware"
	"github.com/mjimenez-dev/casita/internal/photo"
	"github.com/mjimenez-dev/casita/internal/store"
	ws "github.com/mjimenez-dev/casita/internal/websocket"
)

type Server struct {
	cfg         *config.Config
	hub         *ws.Hub
	userStore   *store.UserStore
	tokens      *auth.Tokens
	authH       *handler.AuthHandler
	userH       *handler.UserHandler
	familyH     *handler.FamilyHandler
	taskH       *handler.TaskHandler
	assignmentH *handler.AssignmentHandler
	rewardH     *handler.RewardHandler
	photoH      *handler.PhotoHandler
	files       *photo.Store
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger)

	userStore := store.NewUserStore(db)
	familyStore := store.NewFamilyStore(db)
	taskStore := store.NewTaskStore(db)
	assignmentStore := store.NewAssignmentStore(db)
	photoStore := store.NewPhotoStore(db)
	rewardStore := store.NewRewardStore(db)

	files, err := photo.NewStore(cfg.UploadDir, logger)
	if err != nil {
		return nil, fmt.Errorf("init photo store: %w", err)
	}

	tokens := auth.NewTokens(cfg.JWTSecret)

	return &Server{
		cfg:         cfg,
		hub:         hub,
		userStore:   userStore,
		tokens:      tokens,
		authH:       handler.NewAuthHandler(userStore, familyStore, tokens, cfg, logger),
		userH:       handler.NewUserHandler(userStore, logger),
		familyH:     handler.NewFamilyHandler(familyStore, userStore, files, hub, logger),
		taskH:       handler.NewTaskHandler(taskStore, hub, logger),
		assignmentH: handler.NewAssignmentHandler(assignmentStore, taskStore, photoStore, files, cfg, hub, logger),
		rewardH:     handler.NewRewardHandler(rewardStore, userStore, hub, logger),
		photoH:      handler.NewPhotoHandler(photoStore, assignmentStore, taskStore, files, hub, logger),
		files:       files,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}, nil
}

// RateLimiter exposes the limiter for the periodic cleanup task.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/user/login", s.rateLimited(s.authH.Login))
	outerMux.HandleFunc("POST /api/user/login-with-family", s.rateLimited(s.authH.LoginWithFamily))
	outerMux.HandleFunc("POST /api/user/register", s.rateLimited(s.authH.Register))
	outerMux.HandleFunc("GET /api/families/public", s.familyH.ListPublic)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.files.Root()))))

	// Protected routes behind RequireAuth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens, s.userStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))
	outerMux.Handle("GET /ws", authMiddleware(ws.Handle(s.hub, s.cfg.AllowedOrigins)))

	h := middleware.CORS(s.cfg.AllowedOrigins)(outerMux)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Session
	mux.HandleFunc("POST /api/user/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/user/me", s.authH.Me)

	// Users
	mux.HandleFunc("GET /api/users", s.userH.List)
	mux.HandleFunc("POST /api/users", s.userH.Create)
	mux.HandleFunc("PUT /api/users/{id}", s.userH.Update)
	mux.HandleFunc("DELETE /api/users/{id}", s.userH.Delete)
	mux.HandleFunc("GET /api/users/{id}/stats", s.userH.Stats)

	// Families
	mux.HandleFunc("GET /api/families", s.familyH.List)
	mux.HandleFunc("POST /api/families", s.familyH.Create)
	mux.HandleFunc("GET /api/families/{id}", s.familyH.Get)
	mux.HandleFunc("PATCH /api/families/{id}", s.familyH.Update)
	mux.HandleFunc("DELETE /api/families/{id}", s.familyH.Delete)
	mux.HandleFunc("POST /api/families/{id}/admin", s.familyH.CreateAdmin)
	mux.HandleFunc("GET /api/families/{id}/stats", s.familyH.Stats)

	// Task catalog
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)

	// Assignment lifecycle
	mux.HandleFunc("POST /api/tasks/assign/{task_id}", s.assignmentH.Assign)
	mux.HandleFunc("PATCH /api/tasks/complete/{id}", s.assignmentH.Complete)
	mux.HandleFunc("POST /api/tasks/complete-with-photo/{id}", s.assignmentH.CompleteWithPhoto)
	mux.HandleFunc("PATCH /api/tasks/approve/{id}", s.assignmentH.Approve)
	mux.HandleFunc("PATCH /api/tasks/reject/{id}", s.assignmentH.Reject)

	// Assignment queries
	mux.HandleFunc("GET /api/tasks/assignments", s.assignmentH.ListMine)
	mux.HandleFunc("GET /api/tasks/assignments/all", s.assignmentH.ListAll)
	mux.HandleFunc("GET /api/tasks/pending-approvals", s.assignmentH.PendingApprovals)
	mux.HandleFunc("GET /api/tasks/stats/daily", s.assignmentH.DailyStats)
	mux.HandleFunc("POST /api/tasks/reset-all", s.assignmentH.ResetAll)

	// Rewards
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("POST /api/rewards", s.rewardH.Create)
	mux.HandleFunc("PUT /api/rewards/{id}", s.rewardH.Update)
	mux.HandleFunc("DELETE /api/rewards/{id}", s.rewardH.Delete)
	mux.HandleFunc("POST /api/rewards/redeem/{id}", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/rewards/redemptions", s.rewardH.Redemptions)

	// Photo evidence
	mux.HandleFunc("POST /api/photos/upload/{assignment_id}", s.photoH.Upload)
	mux.HandleFunc("GET /api/photos/assignment/{id}", s.photoH.ListByAssignment)
	mux.HandleFunc("GET /api/photos/{photo_id}", s.photoH.Get)
	mux.HandleFunc("DELETE /api/photos/{photo_id}", s.photoH.Delete)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
