package di

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/ecotrail/trail-booking/internal/repository"
	"github.com/ecotrail/trail-booking/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *repository.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	store.SeedDemo(time.Now())

	c := NewContainer(&ContainerConfig{
		TxManager:      store,
		ProtocolPrefix: "ECO",
		Location:       time.UTC,
		Logger:         logger.NewNop(),
	})

	r := gin.New()
	r.GET("/ready", c.HealthHandler.Ready)
	r.POST("/bookings", c.BookingHandler.CreateBooking)
	r.GET("/bookings/:protocol", c.BookingHandler.GetBooking)
	r.GET("/sessions/:id/availability", c.BookingHandler.GetAvailability)
	return r, store
}

func TestContainer_BookingRoundTrip(t *testing.T) {
	r, store := newTestRouter(t)

	body := `{
		"trailId": "trilha-do-pico",
		"sessionId": "pico-weekend",
		"contactName": "Maria Souza",
		"contactEmail": "maria@example.com",
		"contactPhone": "+55 11 98888-7777",
		"participantsCount": 3
	}`
	req := httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data struct {
			Protocol  string  `json:"protocol"`
			Status    string  `json:"status"`
			GuideName *string `json:"guideName"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Regexp(t, regexp.MustCompile(`^ECO-\d{6}-\d{4}$`), created.Data.Protocol)
	assert.Equal(t, "pending", created.Data.Status)
	require.NotNil(t, created.Data.GuideName)
	assert.Equal(t, "Ana Ribeiro", *created.Data.GuideName)
	assert.Equal(t, 1, store.BookingCount())
	assert.Equal(t, 1, store.AuditCount())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings/"+created.Data.Protocol, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/pico-weekend/availability", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var avail struct {
		Data struct {
			Remaining int `json:"remaining"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &avail))
	assert.Equal(t, 7, avail.Data.Remaining)
}

func TestContainer_ReadyWithoutInfrastructure(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "not configured")
}
