package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_http_requests_total",
			Help: "Total number of HTTP requests processed by the collaboration service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collab_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "collab_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collab_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_messages_total",
			Help: "Message pipeline operations by kind.",
		},
		[]string{"op"},
	)
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_notifications_created_total",
			Help: "Notifications created by type.",
		},
		[]string{"type"},
	)
	pushFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collab_push_failures_total",
			Help: "Best-effort push deliveries that failed.",
		},
	)
	whiteboardSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_whiteboard_saves_total",
			Help: "Debounced whiteboard snapshot saves by result.",
		},
		[]string{"result"},
	)
	whiteboardRemoteTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_whiteboard_remote_events_total",
			Help: "Remote whiteboard change notifications by outcome.",
		},
		[]string{"outcome"},
	)
	feedEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_feed_events_total",
			Help: "Change feed events dispatched by table and operation.",
		},
		[]string{"table", "op"},
	)
	feedOverflowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_feed_overflows_total",
			Help: "Subscriptions that fell behind and were sent a resync, by table.",
		},
		[]string{"table"},
	)
	feedSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "collab_feed_subscriptions",
			Help: "Live change feed subscriptions in this process.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		messagesTotal,
		notificationsTotal,
		pushFailuresTotal,
		whiteboardSavesTotal,
		whiteboardRemoteTotal,
		feedEventsTotal,
		feedOverflowsTotal,
		feedSubscriptions,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

func IncMessageOp(op string) {
	messagesTotal.WithLabelValues(op).Inc()
}

func IncNotification(kind string) {
	notificationsTotal.WithLabelValues(kind).Inc()
}

func IncPushFailure() {
	pushFailuresTotal.Inc()
}

func IncWhiteboardSave(result string) {
	whiteboardSavesTotal.WithLabelValues(result).Inc()
}

func IncWhiteboardRemote(outcome string) {
	whiteboardRemoteTotal.WithLabelValues(outcome).Inc()
}

func IncFeedEvent(table, op string) {
	feedEventsTotal.WithLabelValues(table, op).Inc()
}

func IncFeedOverflow(table string) {
	feedOverflowsTotal.WithLabelValues(table).Inc()
}

func SetFeedSubscriptions(n int) {
	feedSubscriptions.Set(float64(n))
}
