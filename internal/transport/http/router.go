package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-gateway-auth/internal/application/account"
	"github.com/go-gateway-auth/internal/application/group"
	"github.com/go-gateway-auth/internal/application/login"
	"github.com/go-gateway-auth/internal/application/notification"
	"github.com/go-gateway-auth/internal/config"
	"github.com/go-gateway-auth/internal/infrastructure/smtp"
	"github.com/go-gateway-auth/internal/infrastructure/sns"
	"github.com/go-gateway-auth/internal/pkg/mailtmpl"
	"github.com/go-gateway-auth/internal/pkg/metrics"
	"github.com/go-gateway-auth/internal/transport/http/handler"
	appmiddleware "github.com/go-gateway-auth/internal/transport/http/middleware"
	"github.com/go-gateway-auth/internal/transport/http/views"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	Verifications VerificationRepository
	Templates     TemplateSource
	Sessions      SessionRepository
	Groups        GroupRepository
	IAM           IAMClient
	Authenticator Authenticator
	SessionCodec  SessionCodec
	Mailer        smtp.Mailer
	AdminTopic    sns.Publisher // nil when no topic is configured
	Metrics       *metrics.Metrics
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, error) {
	pages, err := views.New(cfg.PortalTitle)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	sessions := appmiddleware.NewSessions(deps.Sessions, deps.SessionCodec, appmiddleware.SessionConfig{
		CookieName: cfg.SessionCookieName,
		Secure:     cfg.SessionCookieSecure,
		TTL:        cfg.SessionTTL,
	})

	// 5 requests/second, burst of 10, applied to the endpoints that send email.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10, cfg.TrustProxyHeaders)

	var adminTopic notification.Publisher
	if deps.AdminTopic != nil {
		adminTopic = deps.AdminTopic
	}
	notifSvc := notification.NewService(notification.ServiceDeps{
		Templates:   deps.Templates,
		Renderer:    mailtmpl.NewRenderer(),
		Mailer:      deps.Mailer,
		AdminTopic:  adminTopic,
		Metrics:     deps.Metrics,
		PortalTitle: cfg.PortalTitle,
		ServerEmail: cfg.ServerEmail,
		AdminEmails: cfg.AdminEmails,
	})
	accountSvc := account.NewService(account.ServiceDeps{
		IAM:           deps.IAM,
		Verifications: deps.Verifications,
		Notifier:      notifSvc,
		Metrics:       deps.Metrics,
		PortalTitle:   cfg.PortalTitle,
		GatewayID:     cfg.GatewayID,
		Recipient:     notification.Recipient,
	})
	loginSvc := login.NewService(login.ServiceDeps{
		Authenticator:     deps.Authenticator,
		Options:           cfg.AuthOptions,
		Metrics:           deps.Metrics,
		LoginRedirectURL:  cfg.LoginRedirectURL,
		LogoutRedirectURL: cfg.LogoutRedirectURL,
		IAMLogoutURL:      cfg.Keycloak.LogoutURL,
	})
	groupSvc := group.NewService(deps.Groups)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(loginSvc, sessions, pages)
	accountH := handler.NewAccountHandler(accountSvc, sessions, pages)
	groupH := handler.NewGroupHandler(groupSvc)

	r.Get("/health-check/{action}", healthH.Ping)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(sessions.Load)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", authH.StartLogin)
			r.Get("/login/password", authH.PasswordForm)
			r.Post("/handle-login", authH.HandleLogin)
			r.Get("/redirect-login/{idp_alias}", authH.RedirectLogin)
			r.Get("/callback", authH.Callback)
			r.Get("/callback-error/{idp_alias}", authH.CallbackError)
			r.Get("/logout", authH.Logout)

			r.Get("/create-account", accountH.CreateForm)
			r.With(sensitiveRL.Limit).Post("/create-account", accountH.Create)
			r.Get("/verify-email/{code}", accountH.VerifyEmail)
			r.Get("/resend-email-link", accountH.ResendForm)
			r.With(sensitiveRL.Limit).Post("/resend-email-link", accountH.Resend)
		})

		r.Route("/groups", func(r chi.Router) {
			r.Use(appmiddleware.RequireLogin)

			r.Get("/", groupH.Manage)
			r.Post("/create", groupH.Create)
			r.Get("/view", groupH.View)
			r.Post("/add", groupH.AddMembers)
			r.Post("/remove", groupH.RemoveMembers)
			r.Post("/delete", groupH.Delete)
			r.Post("/leave", groupH.Leave)
		})
	})

	return r, nil
}
