package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getHome reports that the server is up.
func getHome(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "USD/LKR rates backend", "status": "ok"})
}

// registerHomeRoutes registers the root status route.
func registerHomeRoutes(r *gin.Engine) {
	r.GET("/", getHome)
}
