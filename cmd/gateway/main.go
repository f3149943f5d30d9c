package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/rubricly/rubricly/internal/api/http"
	auth "github.com/rubricly/rubricly/internal/auth/middleware"
	"github.com/rubricly/rubricly/internal/config"
	"github.com/rubricly/rubricly/internal/db"
	"github.com/rubricly/rubricly/internal/rbac"
	"github.com/rubricly/rubricly/internal/result"
	"github.com/rubricly/rubricly/internal/rubric"
	"github.com/rubricly/rubricly/internal/session"
	syncx "github.com/rubricly/rubricly/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	rubrics := rubric.NewSQLStore(dbh)
	results := result.NewSQLStore(dbh)
	sessions := session.NewSQLStore(dbh)
	events := syncx.NewEventRepo(dbh, cfg.SiteID)
	engine := session.NewEngine(rubrics, sessions, results, session.WithEventLog(events))

	// --- Auth (local JWT) ---
	authSvc := auth.NewAuthService(cfg.AuthSecret, cfg.AdminUser, cfg.AdminPassHash)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("rubric:create")).
			Post("/rubrics", api.CreateRubricHandler(rubrics))
		pr.With(rbac.Require("rubric:view")).
			Get("/rubrics", api.ListRubricsHandler(rubrics))
		pr.With(rbac.Require("rubric:view")).
			Get("/rubrics/{rubricID}", api.GetRubricHandler(rubrics))
		pr.With(rbac.Require("rubric:delete")).
			Delete("/rubrics/{rubricID}", api.DeleteRubricHandler(rubrics))

		pr.With(rbac.Require("session:start")).
			Post("/sessions", api.StartSessionHandler(engine))
		pr.With(rbac.Require("session:view")).
			Get("/sessions/{rubricID}/{className}", api.ResumeSessionHandler(engine))
		pr.With(rbac.Require("session:grade")).
			Post("/sessions/{rubricID}/{className}/advance", api.AdvanceSessionHandler(engine))
		pr.With(rbac.Require("session:cancel")).
			Delete("/sessions/{rubricID}/{className}", api.CancelSessionHandler(engine))
		pr.With(rbac.Require("session:finalize")).
			Post("/sessions/{rubricID}/{className}/finalize", api.FinalizeSessionHandler(engine))

		pr.With(rbac.Require("result:view")).
			Get("/rubrics/{rubricID}/results", api.ListResultsHandler(results))
		pr.With(rbac.Require("result:review")).
			Patch("/results/{resultID}", api.UpdateResultHandler(results))
	})

	log.Printf("rubricly gateway listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatalf("http server: %v", err)
	}
}
