package httpapi

import (
	"strings"

	"appforge-controlplane/pkg/authtoken"
	"appforge-controlplane/pkg/errutil"
	"appforge-controlplane/services/ability"
	"appforge-controlplane/services/organization"

	"github.com/gin-gonic/gin"
)

const (
	actorKey = "actor"

	// HeaderOrganization scopes a request to one workspace; authorization
	// is evaluated against at most one organization context at a time.
	HeaderOrganization = "X-Organization-Id"
)

func authMiddleware(issuer *authtoken.Issuer, orgs *organization.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			_ = c.Error(errutil.Unauthorized("missing bearer token"))
			c.Abort()
			return
		}

		userID, err := issuer.Verify(raw)
		if err != nil {
			_ = c.Error(errutil.Unauthorized("invalid session"))
			c.Abort()
			return
		}

		user, err := orgs.GetUser(c.Request.Context(), userID)
		if err != nil {
			_ = c.Error(errutil.Unauthorized("invalid session"))
			c.Abort()
			return
		}

		c.Set(actorKey, ability.Actor{UserID: user.ID, UserType: user.Type})
		c.Next()
	}
}

func currentActor(c *gin.Context) ability.Actor {
	v, _ := c.Get(actorKey)
	actor, _ := v.(ability.Actor)
	return actor
}

func organizationID(c *gin.Context) string {
	return c.GetHeader(HeaderOrganization)
}
