package front

import (
	"github.com/gin-gonic/gin"
	handlers "github.com/router-for-me/ContactRelay/internal/http/api/front/handlers"
)

// RegisterContactRoutes mounts the public contact endpoints.
func RegisterContactRoutes(r gin.IRouter, contactHandler *handlers.ContactHandler) {
	if r == nil || contactHandler == nil {
		return
	}
	r.POST("/contact", contactHandler.Submit)
	r.POST("/api/contact", contactHandler.Submit)
}
