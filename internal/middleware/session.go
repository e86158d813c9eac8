package middleware

import (
	"github.com/careplanner/backend/pkg/model"
	"github.com/gin-gonic/gin"
)

const contextUser = "session_user"

// SessionSource exposes the active session; *store.Store implements it
type SessionSource interface {
	CurrentUser() (model.User, bool)
}

// SessionMiddleware loads the session user into the request context
func SessionMiddleware(source SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, ok := source.CurrentUser(); ok {
			SetUser(c, user)
		}
		c.Next()
	}
}

// SetUser records user as the request's identity
func SetUser(c *gin.Context, user model.User) {
	c.Set(contextUser, user)
	c.Set(ContextUserID, user.ID)
	c.Set(ContextRole, string(user.Role))
}

// ClearUser drops the request's identity
func ClearUser(c *gin.Context) {
	c.Set(contextUser, nil)
	c.Set(ContextUserID, "")
	c.Set(ContextRole, "")
}

// CurrentUser returns the identity loaded by SessionMiddleware
func CurrentUser(c *gin.Context) (model.User, bool) {
	v, ok := c.Get(contextUser)
	if !ok {
		return model.User{}, false
	}
	user, ok := v.(model.User)
	return user, ok
}
