package server

import (
	"net/http/httptest"

	"github.com/gin-gonic/gin"
)

func ginTestContext(w *httptest.ResponseRecorder) (*gin.Context, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	return gin.CreateTestContext(w)
}
