package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Amount int64  `json:"amount" binding:"min=1,max=1000"`
	Action string `json:"action" binding:"oneof=approve reject"`
}

func bindSample(t *testing.T, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/test", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req sampleRequest
	return w, c.ShouldBindJSON(&req)
}

func TestBindError(t *testing.T) {
	t.Run("Valid body binds cleanly", func(t *testing.T) {
		_, err := bindSample(t, `{"email":"player@example.com","amount":50,"action":"approve"}`)
		assert.NoError(t, err)
	})

	t.Run("Collects all field failures", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("POST", "/test",
			strings.NewReader(`{"email":"not-an-email","amount":0,"action":"maybe"}`))
		c.Request.Header.Set("Content-Type", "application/json")

		var req sampleRequest
		err := c.ShouldBindJSON(&req)
		require.Error(t, err)

		BindError(c, err)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Validation error")
		assert.Contains(t, body, "Email must be a valid email address")
		assert.Contains(t, body, "Amount must be at least 1")
		assert.Contains(t, body, "Action must be one of: approve reject")
	})

	t.Run("Malformed JSON gets a generic 400", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("POST", "/test", strings.NewReader(`{not json`))
		c.Request.Header.Set("Content-Type", "application/json")

		var req sampleRequest
		err := c.ShouldBindJSON(&req)
		require.Error(t, err)

		BindError(c, err)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid request body")
	})
}
