package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	h(c)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestCreated(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) { Created(c, gin.H{"protocol": "ECO-202501-0001"}) })

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, body.Success)
	assert.Nil(t, body.Error)
}

func TestConflict(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) { Conflict(c, "CAPACITY_EXCEEDED", "capacity exceeded") })

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "CAPACITY_EXCEEDED", body.Error.Code)
}

func TestInternalError_IsOpaque(t *testing.T) {
	w, body := serve(t, InternalError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Empty(t, body.Error.Details)
}

func TestFail(t *testing.T) {
	r := Fail("MISSING", "missing header")
	assert.False(t, r.Success)
	assert.Equal(t, "MISSING", r.Error.Code)
}
