package server

import (
	"strings"

	"github.com/arusdata/pricebook/internal/auditcontext"
	obscontext "github.com/arusdata/pricebook/internal/observability/context"
	"github.com/arusdata/pricebook/internal/orgcontext"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const (
	HeaderOrg       = "X-Org-ID"
	HeaderActor     = "X-Actor"
	HeaderActorType = "X-Actor-Type"
)

// OrgContext scopes the request to an organization when the header is set.
// Requests without it operate on the global price book.
func OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := strings.TrimSpace(c.GetHeader(HeaderOrg)); raw != "" {
			orgID, err := snowflake.ParseString(raw)
			if err != nil || orgID == 0 {
				AbortWithError(c, newValidationError("org_id", "invalid_org_id", "invalid value"))
				return
			}
			ctx := orgcontext.WithOrgID(c.Request.Context(), orgID.Int64())
			ctx = obscontext.WithOrgID(ctx, orgID.String())
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// ActorContext records who is making the change for the audit trail.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(HeaderActor))
		if actor == "" {
			c.Next()
			return
		}
		actorType := strings.TrimSpace(c.GetHeader(HeaderActorType))
		if actorType == "" {
			actorType = "user"
		}
		ctx := auditcontext.WithActor(c.Request.Context(), actorType, actor)
		ctx = obscontext.WithActor(ctx, actorType, actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestActor(c *gin.Context) string {
	_, actorID := auditcontext.ActorFromContext(c.Request.Context())
	return actorID
}
