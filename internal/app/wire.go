package app

import (
	"context"
	"log/slog"

	"github.com/constitutionhub/platform/internal/audit"
	"github.com/constitutionhub/platform/internal/auth"
	"github.com/constitutionhub/platform/internal/engine"
	"github.com/constitutionhub/platform/internal/guard"
	"github.com/constitutionhub/platform/internal/handler"
	adminhandler "github.com/constitutionhub/platform/internal/handler/admin"
	"github.com/constitutionhub/platform/internal/infra"
	"github.com/constitutionhub/platform/internal/middleware"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/constitutionhub/platform/internal/reset"
	"github.com/constitutionhub/platform/internal/service"
	"github.com/constitutionhub/platform/internal/session"
	"github.com/constitutionhub/platform/internal/state"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Components holds every long-lived piece of the gamification platform.
// Build once in main, Start the loops, then hand it to NewRouter.
type Components struct {
	Pool     *pgxpool.Pool
	Config   *infra.Config
	JWTMgr   *auth.JWTManager
	Logger   *slog.Logger
	Producer *infra.KafkaProducer

	Profiles   repository.ProfileRepository
	Activities repository.ActivityRepository
	Challenges repository.ChallengeRepository
	Events     repository.EventRepository
	Sessions   repository.SessionRepository
	Outbox     repository.OutboxRepository
	AuthUsers  repository.AuthUserRepository

	StateManager   *state.Manager
	SessionManager *session.Manager
	Prevention     *guard.Prevention
	Auditor        *audit.Logger
	Validator      *middleware.Validator
	Engine         *engine.Engine
	ResetService   *reset.Service
	OutboxPoller   *infra.OutboxPoller
}

// BuildComponents assembles the full dependency graph.
func BuildComponents(cfg *infra.Config, pool *pgxpool.Pool, jwtMgr *auth.JWTManager, logger *slog.Logger) *Components {
	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)

	profileRepo := repository.NewProfileRepository()
	activityRepo := repository.NewActivityRepository()
	challengeRepo := repository.NewChallengeRepository()
	eventRepo := repository.NewEventRepository()
	sessionRepo := repository.NewSessionRepository()
	outboxRepo := repository.NewOutboxRepository()
	authUserRepo := repository.NewAuthUserRepository()

	auditor := audit.NewLogger(eventRepo, pool, producer, logger, audit.Config{
		FlushInterval: cfg.AuditFlushInterval,
	})
	stateManager := state.NewManager(profileRepo, pool, auditor, logger, state.Config{
		WaitTimeout: cfg.OperationWaitBudget,
	})
	sessionManager := session.NewManager(sessionRepo, pool, logger, session.Config{
		IdleTimeout: cfg.SessionIdleTimeout,
	})
	prevention := guard.NewPrevention(activityRepo, pool, logger)
	validator := middleware.NewValidator(sessionManager, prevention, auditor, logger)
	eng := engine.New(validator, stateManager, profileRepo, activityRepo, challengeRepo, outboxRepo, pool, logger)
	resetSvc := reset.NewService(profileRepo, challengeRepo, eventRepo, sessionRepo, pool, stateManager, logger, cfg.DailyResetInterval)
	poller := infra.NewOutboxPoller(outboxRepo, pool, producer, logger)

	return &Components{
		Pool:     pool,
		Config:   cfg,
		JWTMgr:   jwtMgr,
		Logger:   logger,
		Producer: producer,

		Profiles:   profileRepo,
		Activities: activityRepo,
		Challenges: challengeRepo,
		Events:     eventRepo,
		Sessions:   sessionRepo,
		Outbox:     outboxRepo,
		AuthUsers:  authUserRepo,

		StateManager:   stateManager,
		SessionManager: sessionManager,
		Prevention:     prevention,
		Auditor:        auditor,
		Validator:      validator,
		Engine:         eng,
		ResetService:   resetSvc,
		OutboxPoller:   poller,
	}
}

// Start launches every background loop. Each loop stops when ctx is cancelled.
func (c *Components) Start(ctx context.Context) {
	c.StateManager.Start(ctx)
	c.Validator.Start(ctx)
	c.Auditor.Start(ctx)
	c.SessionManager.StartSweep(ctx, c.Config.SessionSweepEvery)
	c.Prevention.StartEviction(ctx, c.Config.GuardEvictionEvery)
	c.OutboxPoller.Start(ctx)
	go c.ResetService.Start(ctx)
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(c *Components) chi.Router {
	pool := c.Pool
	jwtMgr := c.JWTMgr
	logger := c.Logger

	// Services
	authSvc := service.NewAuthService(pool, c.AuthUsers, c.Profiles, jwtMgr)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	profileHandler := handler.NewProfileHandler(c.Profiles, pool)
	rewardHandler := handler.NewRewardHandler(c.Engine)
	sessionHandler := handler.NewSessionHandler(c.SessionManager, c.Sessions, pool)
	challengeHandler := handler.NewChallengeHandler(c.Challenges, pool)
	achievementHandler := handler.NewAchievementHandler()

	// Admin handlers
	profileAdmin := adminhandler.NewProfileAdminHandler(pool, c.Profiles, c.Engine, c.ResetService)
	challengeAdmin := adminhandler.NewChallengeAdminHandler(pool, c.Challenges)
	moderationAdmin := adminhandler.NewModerationHandler(c.Auditor, c.Validator, c.SessionManager, c.Sessions, pool)
	resetAdmin := adminhandler.NewResetAdminHandler(c.ResetService)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(c.Config.CORSAllowedOrigins))
	r.Use(handler.JSONContentType)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(pool))

	// Auth routes (no auth)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// Public achievement catalog
	r.Get("/achievements", achievementHandler.ListCatalog)

	// Learner-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthenticateLearner(jwtMgr))

		r.Route("/profile/me", func(r chi.Router) {
			r.Get("/", profileHandler.GetMe)
			r.Get("/achievements", profileHandler.GetMyAchievements)
			r.Get("/streak", profileHandler.GetMyStreak)
		})

		r.Route("/activities", func(r chi.Router) {
			r.Post("/quiz", rewardHandler.CompleteQuiz)
			r.Post("/game", rewardHandler.CompleteGame)
			r.Post("/challenge", rewardHandler.CompleteChallenge)
			r.Post("/achievement", rewardHandler.ClaimAchievement)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Get("/history", sessionHandler.History)
			r.Get("/{id}", sessionHandler.Get)
			r.Post("/{id}/validate", sessionHandler.Validate)
			r.Post("/{id}/end", sessionHandler.End)
		})

		r.Route("/challenges", func(r chi.Router) {
			r.Get("/me", challengeHandler.ListMine)
			r.Post("/{id}/progress", challengeHandler.RecordProgress)
		})
	})

	// Admin-authenticated routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.AuthenticateAdmin(jwtMgr))

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", profileAdmin.ListProfiles)
			r.Get("/{id}", profileAdmin.GetProfile)
			r.Post("/{id}/award", profileAdmin.AwardCoins)
			r.Post("/{id}/reset", profileAdmin.ResetProfile)
		})

		r.Route("/challenges", func(r chi.Router) {
			r.Get("/", challengeAdmin.ListChallenges)
		})
		r.Post("/users/{id}/challenges", challengeAdmin.AssignChallenge)
		r.Get("/users/{id}/sessions", moderationAdmin.ListUserSessions)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/{id}/end", moderationAdmin.EndSession)
			r.Post("/{id}/block", moderationAdmin.BlockActivity)
		})

		r.Get("/alerts", moderationAdmin.ListAlerts)
		r.Get("/validation/stats", moderationAdmin.ValidationStats)
		r.Post("/reset/run", resetAdmin.RunReset)
	})

	return r
}
