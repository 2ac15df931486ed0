package deposit

import "github.com/gin-gonic/gin"

type IHandler interface {
	ListByUser(c *gin.Context)
}
