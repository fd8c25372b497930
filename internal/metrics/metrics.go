package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "internportal", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "status"})
	ImportedStudents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "internportal", Name: "imported_students_total", Help: "Students inserted via CSV import",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "internportal", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, ImportedStudents, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// GinMiddleware counts handled requests by method and status.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		HTTPRequests.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
