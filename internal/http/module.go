// Package http holds the HTTP composition types shared by the router and
// the domain modules.
package http

import (
	"github.com/gin-gonic/gin"
)

// Module is a bounded context that mounts its own routes. The router only
// knows modules through this interface.
type Module interface {
	// Name identifies the module in startup logs.
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the route groups a module may mount on.
type RouterContext struct {
	// V1 is the unauthenticated /api/v1 group.
	V1 *gin.RouterGroup
	// Protected is /api/v1 behind bearer-token authentication.
	Protected *gin.RouterGroup
}
