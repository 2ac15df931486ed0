package oracle

import "github.com/gin-gonic/gin"

type IHandler interface {
	GetRate(c *gin.Context)
}
