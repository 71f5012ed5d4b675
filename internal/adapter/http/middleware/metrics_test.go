package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"valutatrade-hub/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	rec := metrics.NewRecorder()
	router := gin.New()
	router.Use(Metrics(rec))
	router.GET("/rates/:from/:to", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rates/BTC/USD", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rates/ETH/USD", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	assert.Contains(t, body, `valutatrade_http_requests_total{method="GET",path="/rates/:from/:to",status="200"} 2`)
	assert.Contains(t, body, `valutatrade_http_requests_total{method="GET",path="unmatched",status="404"} 1`)
}

func TestMetrics_NilRecorder(t *testing.T) {
	router := gin.New()
	router.Use(Metrics(nil))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
