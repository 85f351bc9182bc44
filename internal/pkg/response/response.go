package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

// apiError carries an errcode value through proxyutil's failure envelope.
type apiError struct {
	code uint32
	msg  string
}

func (e apiError) Error() string {
	return e.msg
}

func (e apiError) Code() uint32 {
	return e.code
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// List wraps a result slice as {"count": n, "results": items}.
func List[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	Success(c, gin.H{
		"count":   len(items),
		"results": items,
	})
}

func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, apiError{code: uint32(code), msg: message})
}
