package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/walknrun/walkrun-backend/api/controllers"
	"github.com/walknrun/walkrun-backend/api/middleware"
	"github.com/walknrun/walkrun-backend/internal/auth"
	"github.com/walknrun/walkrun-backend/internal/exercise"
	"github.com/walknrun/walkrun-backend/internal/users"
	"github.com/walknrun/walkrun-backend/pkg/config"
	"github.com/walknrun/walkrun-backend/pkg/logger"
	"github.com/walknrun/walkrun-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	metricsRegistry *prometheus.Registry,
	authService auth.Service,
	exerciseService exercise.Service,
	usersService users.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	emailPolicy := middleware.NewAuthRateLimitPolicy(
		"email",
		cfg.AuthRate.EmailWindow,
		cfg.AuthRate.EmailIPLimit,
		cfg.AuthRate.EmailAddressLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisClient))
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(emailPolicy, redisClient, logg)).Post("/email", controllers.AuthEmail(authService, logg))
		r.Post("/verify", controllers.AuthVerify(authService, logg))
		r.Post("/reset", controllers.AuthReset(authService, logg))
	})

	r.Route("/exercise", func(r chi.Router) {
		r.Get("/info/{uid}", controllers.ExerciseInfo(exerciseService, logg))
		r.Get("/point/{uid}", controllers.ExercisePoint(exerciseService, logg))
		r.Post("/trace", controllers.ExerciseTrace(exerciseService, logg))
		r.Post("/start", controllers.ExerciseStart(exerciseService, logg))
		r.Post("/finish", controllers.ExerciseFinish(exerciseService, logg))
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/info/{uid}", controllers.UserInfo(usersService, logg))
		r.Get("/cash/{uid}", controllers.UserCash(usersService, logg))
		r.Get("/doing/{uid}", controllers.UserDoing(usersService, logg))
		r.Delete("/user", controllers.UserDelete(usersService, logg))
	})

	return r
}
