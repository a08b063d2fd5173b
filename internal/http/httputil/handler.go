package httputil

import "github.com/gin-gonic/gin"

// IHttpHandler mounts a group of routes under Root on the public, private and admin groups.
type IHttpHandler interface {
	Root() string
	SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup)
}
