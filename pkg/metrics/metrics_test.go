package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGinPrometheusMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(GinPrometheusMiddleware("test"))
	router.GET("/product/:barcode", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	before := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues("test", "GET", "/product/:barcode", "200"))

	for _, code := range []string{"5900512300108", "3017620422003"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/product/"+code, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	after := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues("test", "GET", "/product/:barcode", "200"))
	assert.Equal(t, 2.0, after-before)
}

func TestRecordProductsUpserted_IgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(ProductsUpserted.WithLabelValues("metrics-test"))
	RecordProductsUpserted("metrics-test", 0)
	RecordProductsUpserted("metrics-test", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(ProductsUpserted.WithLabelValues("metrics-test"))-before)
}
