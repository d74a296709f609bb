package handlers

import (
	"blogtalk/internal/httperr"
	"blogtalk/internal/middleware"
	"blogtalk/internal/services"
	"blogtalk/internal/utils"

	"github.com/gin-gonic/gin"
)

func currentCaller(c *gin.Context) *services.Caller {
	return middleware.CallerFrom(c)
}

func writeError(c *gin.Context, err error) {
	httperr.Write(c, err)
}

// postRef reads :slug and :post. A post number that is not a positive
// integer cannot name a post, so it is answered with 404.
func postRef(c *gin.Context) (services.PostRef, bool) {
	number, ok := utils.ParseNumber(c.Param("post"))
	if !ok {
		writeError(c, services.ErrNotFound)
		return services.PostRef{}, false
	}
	return services.PostRef{BlogSlug: c.Param("slug"), PostNumber: number}, true
}

func commentRef(c *gin.Context) (services.CommentRef, bool) {
	post, ok := postRef(c)
	if !ok {
		return services.CommentRef{}, false
	}
	number, ok := utils.ParseNumber(c.Param("number"))
	if !ok {
		writeError(c, services.ErrNotFound)
		return services.CommentRef{}, false
	}
	return services.CommentRef{PostRef: post, Number: number}, true
}

// page 从查询参数读取页码，非法值按第 1 页处理
func page(c *gin.Context) int {
	return max(utils.StringToInt(c.Query("page")), 1)
}
