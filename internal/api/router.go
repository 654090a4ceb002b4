// api/router.go
package api

import (
	"github.com/gin-gonic/gin"
)

func NewRouter(reg *Registry) *gin.Engine {
	r := gin.Default()
	r.Use(RequestID())

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/meta", MetaListHandler(reg))
		apiGroup.GET("/meta/:entity", MetaEntityHandler(reg))

		// view models — before the CRUD wildcards
		apiGroup.GET("/:entity/views/table", TableViewHandler(reg))
		apiGroup.GET("/:entity/views/cards", CardsViewHandler(reg))
		apiGroup.POST("/:entity/views/form", FormViewHandler(reg))

		// CRUD through the data-access layer
		apiGroup.GET("/:entity", ListHandler(reg))
		apiGroup.POST("/:entity", CreateHandler(reg))
		apiGroup.PUT("/:entity/:id", UpdateHandler(reg))
		apiGroup.DELETE("/:entity/:id", DeleteHandler(reg))
	}

	return r
}

func RunServer(addr string, reg *Registry) error {
	return NewRouter(reg).Run(addr)
}
