package health

import "github.com/gin-gonic/gin"

type IHandler interface {
	Healthz(c *gin.Context)
	DBStatus(c *gin.Context)
}
