package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Manager holds the auth-funnel Prometheus metrics on a private registry.
type Manager struct {
	Registry            *prometheus.Registry
	RegistrationsTotal  prometheus.Counter
	ActivationsTotal    prometheus.Counter
	LoginsTotal         prometheus.Counter
	SocialSignInsTotal  *prometheus.CounterVec
	NotificationsTotal  *prometheus.CounterVec
	APIErrorsTotal      *prometheus.CounterVec
}

func NewManager(serviceName string) *Manager {
	registry := prometheus.NewRegistry()

	registrationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "registrations_total",
		Help:      "Total number of registration tickets issued.",
	})
	activationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "activations_total",
		Help:      "Total number of accounts activated.",
	})
	loginsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "logins_total",
		Help:      "Total number of successful password logins.",
	})
	socialSignInsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "social_sign_ins_total",
		Help:      "Total number of social sign-ins by provider.",
	}, []string{"provider"})
	notificationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "notifications_total",
		Help:      "Notification dispatch outcomes by channel and status.",
	}, []string{"channel", "status"})
	apiErrorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "api_errors_total",
		Help:      "Total number of API errors by kind.",
	}, []string{"kind"})

	registry.MustRegister(
		registrationsTotal,
		activationsTotal,
		loginsTotal,
		socialSignInsTotal,
		notificationsTotal,
		apiErrorsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Manager{
		Registry:            registry,
		RegistrationsTotal:  registrationsTotal,
		ActivationsTotal:    activationsTotal,
		LoginsTotal:         loginsTotal,
		SocialSignInsTotal:  socialSignInsTotal,
		NotificationsTotal:  notificationsTotal,
		APIErrorsTotal:      apiErrorsTotal,
	}
}

// StartServer exposes /metrics on its own listener. An empty port disables it.
func StartServer(port string, logger *zap.Logger, registry *prometheus.Registry) error {
	if port == "" {
		logger.Info("Prometheus metrics server port not configured, server will not start")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	logger.Info("Prometheus metrics server starting", zap.String("port", port))
	return (&http.Server{Addr: ":" + port, Handler: mux}).ListenAndServe()
}
