package httpapi

import (
	"net/http"

	"appforge-controlplane/pkg/authtoken"
	"appforge-controlplane/pkg/config"
	"appforge-controlplane/pkg/health"
	"appforge-controlplane/pkg/middleware"
	"appforge-controlplane/services/app"
	"appforge-controlplane/services/license"
	"appforge-controlplane/services/organization"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(
		ProvideIssuer,
		ProvideRouter,
	),
)

func ProvideIssuer(cfg *config.Config) *authtoken.Issuer {
	return authtoken.NewIssuer(cfg.Session.Secret, cfg.Session.TTL)
}

type RouterParams struct {
	fx.In
	Config   *config.Config
	Issuer   *authtoken.Issuer
	Health   health.HealthService
	Licenses *license.Service
	Orgs     *organization.Service
	Apps     *app.Service
}

func ProvideRouter(p RouterParams) http.Handler {
	if p.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Error())

	h := &handlers{
		licenses: p.Licenses,
		orgs:     p.Orgs,
		apps:     p.Apps,
		issuer:   p.Issuer,
	}

	r.GET("/healthz", p.Health.Liveness)
	r.GET("/readyz", p.Health.Readiness)

	api := r.Group("/api")
	api.POST("/session", h.createSession)
	api.POST("/invitations/redeem", h.redeemInvitation)

	authed := api.Group("", authMiddleware(p.Issuer, p.Orgs))
	{
		authed.POST("/license", h.uploadLicense)
		authed.GET("/license/terms", h.licenseTerms)

		authed.POST("/organizations", h.createOrganization)
		authed.GET("/organization_users", h.listOrganizationUsers)
		authed.POST("/organization_users", h.inviteUser)
		authed.POST("/organization_users/:id/archive", h.archiveUser)
		authed.POST("/organization_users/:id/unarchive", h.unarchiveUser)
		authed.POST("/organization_users/:id/archive-all", h.archiveAll)
		authed.PUT("/organization_users/:id/role", h.changeRole)

		authed.POST("/apps", h.createApp)
	}

	return r
}
