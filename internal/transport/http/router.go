package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/go-dating-api/internal/application/analytics"
	"github.com/go-dating-api/internal/application/auth"
	"github.com/go-dating-api/internal/application/chat"
	"github.com/go-dating-api/internal/application/device"
	"github.com/go-dating-api/internal/application/discovery"
	"github.com/go-dating-api/internal/application/match"
	"github.com/go-dating-api/internal/application/media"
	"github.com/go-dating-api/internal/application/notification"
	"github.com/go-dating-api/internal/application/profile"
	"github.com/go-dating-api/internal/application/session"
	"github.com/go-dating-api/internal/application/subscription"
	"github.com/go-dating-api/internal/application/swipe"
	"github.com/go-dating-api/internal/application/user"
	"github.com/go-dating-api/internal/application/verification"
	"github.com/go-dating-api/internal/config"
	"github.com/go-dating-api/internal/domain"
	redisinfra "github.com/go-dating-api/internal/infrastructure/redis"
	"github.com/go-dating-api/internal/transport/http/handler"
	appmiddleware "github.com/go-dating-api/internal/transport/http/middleware"
	"github.com/go-dating-api/internal/transport/ws"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(appmiddleware.RequestLogger(deps.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handler.WebhookSecretHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)
	adminOnly := appmiddleware.RequireRole(domain.RoleAdmin)

	// 5 requests/second, burst of 10, on credential and payment endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	quotas := redisinfra.NewQuotaCounter(deps.Redis)
	boosts := redisinfra.NewBoostStore(deps.Redis)
	presence := redisinfra.NewPresenceStore(deps.Redis, redisinfra.DefaultPresenceTTL)

	mediaSvc := media.NewService(deps.S3Store, deps.FileRepo)
	sessionSvc := session.NewService(session.ServiceDeps{
		UserRepo:        deps.UserRepo,
		SessionRepo:     deps.SessionRepo,
		DeviceRepo:      deps.DeviceRepo,
		ProfileRepo:     deps.ProfileRepo,
		JWTProvider:     deps.JWTProvider,
		GoogleVerifier:  deps.GoogleVerifier,
		RefreshTokenDur: cfg.RefreshTokenTTL,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:        deps.UserRepo,
		ProfileRepo:     deps.ProfileRepo,
		SessionRepo:     deps.SessionRepo,
		DeviceRepo:      deps.DeviceRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenTTL,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		CodeRepo:        deps.CodeRepo,
		UserRepo:        deps.UserRepo,
		SessionRepo:     deps.SessionRepo,
		DeviceRepo:      deps.DeviceRepo,
		Mailer:          deps.Mailer,
		SMSSender:       deps.SMSSender,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenTTL,
		Log:             deps.Log,
	})
	deviceSvc := device.NewService(deps.DeviceRepo)
	notifSvc := notification.NewService(deps.NotificationRepo)
	profileSvc := profile.NewService(deps.ProfileRepo, mediaSvc)
	subSvc := subscription.NewService(subscription.ServiceDeps{
		SubscriptionRepo: deps.SubscriptionRepo,
		Boosts:           boosts,
		Quotas:           quotas,
		Publisher:        deps.Publisher,
		Merchant: subscription.Merchant{
			Key:  cfg.PIX.Key,
			Name: cfg.PIX.MerchantName,
			City: cfg.PIX.MerchantCity,
		},
		BoostDuration: cfg.Boost,
		Log:           deps.Log,
	})
	swipeSvc := swipe.NewService(swipe.ServiceDeps{
		SwipeRepo:   deps.SwipeRepo,
		MatchRepo:   deps.MatchRepo,
		ProfileRepo: deps.ProfileRepo,
		Quotas:      quotas,
		Plans:       subSvc,
		Publisher:   deps.Publisher,
		Log:         deps.Log,
	})
	discoverySvc := discovery.NewService(discovery.ServiceDeps{
		ProfileRepo: deps.ProfileRepo,
		SwipeRepo:   deps.SwipeRepo,
		MatchRepo:   deps.MatchRepo,
		Boosts:      boosts,
		Plans:       subSvc,
	})
	matchSvc := match.NewService(match.ServiceDeps{
		MatchRepo:   deps.MatchRepo,
		ProfileRepo: deps.ProfileRepo,
		MessageRepo: deps.MessageRepo,
		Rooms:       deps.Hub,
		Log:         deps.Log,
	})
	chatSvc := chat.NewService(chat.ServiceDeps{
		MatchRepo:   deps.MatchRepo,
		MessageRepo: deps.MessageRepo,
		Broadcaster: deps.Hub,
		Publisher:   deps.Publisher,
		Log:         deps.Log,
	})
	verificationSvc := verification.NewService(verification.ServiceDeps{
		VerificationRepo: deps.VerificationRepo,
		UserRepo:         deps.UserRepo,
		ProfileRepo:      deps.ProfileRepo,
		Media:            mediaSvc,
		Publisher:        deps.Publisher,
		Log:              deps.Log,
	})
	analyticsSvc := analytics.NewService(analytics.ServiceDeps{
		UserRepo:         deps.UserRepo,
		MatchRepo:        deps.MatchRepo,
		MessageRepo:      deps.MessageRepo,
		VerificationRepo: deps.VerificationRepo,
		SubscriptionRepo: deps.SubscriptionRepo,
	})

	probes := deps.Probes
	if deps.Redis != nil {
		probes = append(probes, handler.Probe{Name: "redis", Check: func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		}})
	}
	healthH := handler.NewHealthHandler(probes...)
	sessionH := handler.NewSessionHandler(sessionSvc)
	userH := handler.NewUserHandler(userSvc)
	deviceH := handler.NewDeviceHandler(deviceSvc)
	notifH := handler.NewNotificationHandler(notifSvc)
	fileH := handler.NewFileHandler(mediaSvc)
	pwH := handler.NewPasswordRecoveryHandler(authSvc)
	confirmH := handler.NewConfirmHandler(authSvc)
	profileH := handler.NewProfileHandler(profileSvc)
	discoveryH := handler.NewDiscoveryHandler(discoverySvc, swipeSvc)
	matchH := handler.NewMatchHandler(matchSvc, chatSvc)
	subH := handler.NewSubscriptionHandler(subSvc, cfg.PaymentWebhookSecret)
	verificationH := handler.NewVerificationHandler(verificationSvc)
	presenceH := handler.NewPresenceHandler(presence)
	adminH := handler.NewAdminHandler(analyticsSvc, matchSvc)
	wsH := ws.NewHandler(deps.Hub, chatSvc, presence, cfg.AllowedOrigins, deps.Log)

	r.Route("/v1", func(r chi.Router) {
		// Public
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.With(sensitiveRL.Limit).Post("/sessions/google", sessionH.LoginWithGoogle)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)
		r.With(sensitiveRL.Limit).Post("/password-recovery/{action}", pwH.Action)
		r.Get("/plans", subH.Plans)
		r.With(sensitiveRL.Limit).Post("/webhooks/pix", subH.PIXWebhook)

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Get("/sessions/active", sessionH.Active)
			r.Post("/sessions/logout", sessionH.Logout)
			r.Post("/sessions/logout-others", sessionH.LogoutOthers)

			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
			r.Put("/users/me/password", userH.ChangePassword)
			r.Get("/users/{id}/presence", presenceH.Get)
			r.Post("/password-recovery/change-password", pwH.ChangePassword)
			r.Post("/confirm-email/{action}", confirmH.Email)
			r.Post("/confirm-phone/{action}", confirmH.Phone)

			r.Get("/devices", deviceH.List)
			r.Put("/devices/{id}", deviceH.Update)
			r.Delete("/devices/{id}", deviceH.Delete)

			r.Get("/notifications", notifH.ListUnread)
			r.Put("/notifications/{id}", notifH.MarkAsRead)
			r.Post("/notifications/read-all", notifH.MarkAllAsRead)

			r.Get("/files/{id}", fileH.Get)
			r.Delete("/files/{id}", fileH.Delete)

			r.Get("/profiles/me", profileH.Me)
			r.Put("/profiles/me", profileH.Update)
			r.Put("/profiles/me/location", profileH.UpdateLocation)
			r.Post("/profiles/me/photos", profileH.AddPhoto)
			r.Delete("/profiles/me/photos/{id}", profileH.DeletePhoto)
			r.Get("/profiles/{id}", profileH.Public)

			r.Get("/discovery", discoveryH.Candidates)
			r.Get("/discovery/likes", discoveryH.LikesReceived)
			r.Post("/swipes", discoveryH.Swipe)
			r.Get("/swipes/quota", discoveryH.Quota)

			r.Get("/matches", matchH.List)
			r.Get("/matches/{id}", matchH.Get)
			r.Delete("/matches/{id}", matchH.Unmatch)
			r.Get("/matches/{id}/messages", matchH.Messages)
			r.Post("/matches/{id}/messages", matchH.Send)
			r.Post("/matches/{id}/read", matchH.MarkRead)

			r.With(sensitiveRL.Limit).Post("/subscriptions/checkout", subH.Checkout)
			r.Get("/subscriptions/me", subH.Current)
			r.Post("/subscriptions/me/cancel", subH.Cancel)
			r.Post("/boost", subH.ActivateBoost)
			r.Get("/boost", subH.BoostStatus)

			r.Post("/verification", verificationH.Submit)
			r.Get("/verification", verificationH.Status)

			r.Get("/ws", wsH.ServeHTTP)

			r.Route("/admin", func(r chi.Router) {
				r.Use(adminOnly)

				r.Get("/users", userH.List)
				r.Delete("/users/{id}", userH.Delete)
				r.Get("/matches", adminH.ListMatches)
				r.Delete("/matches/{id}", adminH.DeleteMatch)
				r.Get("/subscriptions", subH.AdminList)
				r.Put("/subscriptions/{id}", subH.AdminUpdate)
				r.Post("/subscriptions/confirm", subH.AdminConfirm)
				r.Get("/verifications", verificationH.AdminList)
				r.Post("/verifications/{id}/review", verificationH.Review)
				r.Get("/analytics", adminH.Analytics)
			})
		})
	})

	return r
}
