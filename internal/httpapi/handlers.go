package httpapi

import (
	"errors"
	"net/http"

	"appforge-controlplane/pkg/authtoken"
	"appforge-controlplane/pkg/db/pagination"
	"appforge-controlplane/pkg/errutil"
	"appforge-controlplane/services/ability"
	"appforge-controlplane/services/app"
	"appforge-controlplane/services/license"
	"appforge-controlplane/services/organization"

	"github.com/gin-gonic/gin"
)

type handlers struct {
	licenses *license.Service
	orgs     *organization.Service
	apps     *app.Service
	issuer   *authtoken.Issuer
}

// abort converts domain sentinel errors into transport errors before the
// error middleware renders them.
func abort(c *gin.Context, err error) {
	switch {
	case errors.Is(err, organization.ErrLastActiveAdmin),
		errors.Is(err, organization.ErrInvalidStateTransition),
		errors.Is(err, organization.ErrUserLimitReached),
		errors.Is(err, app.ErrAppLimitReached):
		err = errutil.BadRequest(err.Error())
	case errors.Is(err, license.ErrInvalidSignature),
		errors.Is(err, license.ErrMalformedLicense),
		errors.Is(err, license.ErrUnsupportedVersion):
		err = errutil.BadRequest("Invalid license key")
	}

	_ = c.Error(err)
	c.Abort()
}

func (h *handlers) createSession(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errutil.BadRequest("email and password are required"))
		return
	}

	user, err := h.orgs.VerifyPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abort(c, err)
		return
	}

	token, err := h.issuer.Sign(user.ID)
	if err != nil {
		abort(c, errutil.Internal("failed to sign in"))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token})
}

func (h *handlers) redeemInvitation(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errutil.BadRequest("token and password are required"))
		return
	}

	if _, err := h.orgs.RedeemInvitation(c.Request.Context(), req.Token, req.Password); err != nil {
		abort(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlers) uploadLicense(c *gin.Context) {
	actor := currentActor(c)
	if err := ability.AuthorizeSuperadmin(actor); err != nil {
		abort(c, err)
		return
	}

	var req struct {
		License string `json:"license" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errutil.BadRequest("license is required"))
		return
	}

	terms, err := h.licenses.Activate(c.Request.Context(), req.License, actor.UserID)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, terms)
}

func (h *handlers) licenseTerms(c *gin.Context) {
	eval := h.licenses.Evaluator()

	usage := license.Usage{}
	if u, err := h.orgs.UsersUsage(c.Request.Context()); err == nil {
		usage = u
	}
	if apps, err := h.apps.Count(c.Request.Context()); err == nil {
		usage.Apps = apps
	}

	c.JSON(http.StatusOK, gin.H{
		"terms":   h.licenses.Terms(),
		"expired": eval.IsExpired(),
		"valid":   eval.IsValid(),
		"features": gin.H{
			"oidc":             eval.FeatureEnabled(license.FieldOIDC),
			"ldap":             eval.FeatureEnabled(license.FieldLDAP),
			"saml":             eval.FeatureEnabled(license.FieldSAML),
			"auditLogs":        eval.FeatureEnabled(license.FieldAuditLogs),
			"customStyling":    eval.FeatureEnabled(license.FieldCustomStyling),
			"whiteLabelling":   eval.FeatureEnabled(license.FieldWhiteLabelling),
			"multiEnvironment": eval.FeatureEnabled(license.FieldMultiEnvironment),
			"multiPlayerEdit":  eval.FeatureEnabled(license.FieldMultiPlayerEdit),
		},
		"usage": gin.H{
			"apps":        usage.Apps,
			"totalUsers":  usage.TotalUsers,
			"editors":     usage.Editors,
			"viewers":     usage.Viewers,
			"superadmins": usage.Superadmins,
		},
	})
}

func (h *handlers) createOrganization(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errutil.BadRequest("name is required"))
		return
	}

	org, err := h.orgs.CreateOrganization(c.Request.Context(), currentActor(c), req.Name)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, org)
}

func (h *handlers) listOrganizationUsers(c *gin.Context) {
	var p pagination.Pagination
	_ = c.ShouldBindQuery(&p)

	members, info, err := h.orgs.ListUsers(c.Request.Context(), currentActor(c), organizationID(c), p)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"organization_users": members, "page_info": info})
}

func (h *handlers) inviteUser(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Role  string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errutil.BadRequest("email is required"))
		return
	}

	_, err := h.orgs.InviteUser(c.Request.Context(), currentActor(c), organizationID(c), req.Email, organization.Role(req.Role))
	if err != nil {
		abort(c, err)
		return
	}

	// Deliberately empty body: invited user details are not echoed back.
	c.JSON(http.StatusCreated, gin.H{})
}

func (h *handlers) archiveUser(c *gin.Context) {
	err := h.orgs.ArchiveUser(c.Request.Context(), currentActor(c), organizationID(c), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{})
}

func (h *handlers) unarchiveUser(c *gin.Context) {
	err := h.orgs.UnarchiveUser(c.Request.Context(), currentActor(c), organizationID(c), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{})
}

func (h *handlers) archiveAll(c *gin.Context) {
	err := h.orgs.ArchiveAllForUser(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{})
}

func (h *handlers) changeRole(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errutil.BadRequest("role is required"))
		return
	}

	err := h.orgs.ChangeRole(c.Request.Context(), currentActor(c), organizationID(c), c.Param("id"), organization.Role(req.Role))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *handlers) createApp(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errutil.BadRequest("name is required"))
		return
	}

	created, err := h.apps.Create(c.Request.Context(), organizationID(c), req.Name, currentActor(c).UserID)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}
