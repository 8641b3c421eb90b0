package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/multierr"

	"github.com/2beens/portfoliocms/internal/auth"
	"github.com/2beens/portfoliocms/internal/blog"
	"github.com/2beens/portfoliocms/internal/config"
	"github.com/2beens/portfoliocms/internal/content"
	"github.com/2beens/portfoliocms/internal/db"
	"github.com/2beens/portfoliocms/internal/events"
	"github.com/2beens/portfoliocms/internal/mailer"
	"github.com/2beens/portfoliocms/internal/middleware"
	"github.com/2beens/portfoliocms/internal/misc"
	"github.com/2beens/portfoliocms/internal/seo"
	"github.com/2beens/portfoliocms/internal/site"
	"github.com/2beens/portfoliocms/internal/storage"
	"github.com/2beens/portfoliocms/internal/telemetry/metrics"
	"github.com/2beens/portfoliocms/internal/telemetry/tracing"
)

const sessionsCleanupInterval = 8 * time.Hour

type publicPosts interface {
	Published(ctx context.Context) ([]*content.Post, error)
	PublishedBySlug(ctx context.Context, slug string) (*content.Post, error)
}

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	dbPool *pgxpool.Pool

	blogService *blog.Service
	publicPosts publicPosts
	fileStore   *content.FileStore
	imageStore  storage.ImageStore
	publisher   events.Publisher

	redisClient      *redis.Client
	loginChecker     *auth.LoginChecker
	authService      *auth.Service
	unwatchSessions  func()
	stopSessionsScan context.CancelFunc

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	AdminEmail              string
	AdminPasswordHash       string
	PostgresPassword        string
	RedisPassword           string
	SMTPPassword            string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         cfg.PostgresUser,
		DBPassword:     params.PostgresPassword,
		SSLMode:        cfg.PostgresSSLMode,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("portfolio", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "portfolio-cms", rdb)
	if err != nil {
		return nil, err
	}

	var resetMailer mailer.Mailer = mailer.LogMailer{}
	if cfg.SMTPHost != "" {
		resetMailer = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, params.SMTPPassword, cfg.SMTPSender)
	} else {
		log.Warnln("smtp host not set, password reset links will only be logged")
	}

	authService := auth.NewAuthService(&auth.Admin{
		Email:        params.AdminEmail,
		PasswordHash: params.AdminPasswordHash,
	}, auth.DefaultTTL, rdb, resetMailer)
	loginChecker := auth.NewLoginChecker(auth.DefaultTTL, rdb)

	imageStore, err := newImageStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		rabbitPublisher, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Errorf("rabbitmq unavailable, post events disabled: %s", err)
		} else {
			publisher = rabbitPublisher
		}
	}

	fileStore := content.NewFileStore(
		filepath.Join(cfg.ContentDir, "blog", "posts.json"),
		filepath.Join(cfg.ContentDir, "projects", "projects.json"),
	)
	blogService := blog.NewService(blog.NewRepo(dbPool), imageStore, publisher, metricsManager)

	var posts publicPosts = blogService
	if cfg.ContentSource == config.ContentSourceFile {
		log.Infof("public pages read posts from %s", cfg.ContentDir)
		posts = fileStore
	}

	s := &Server{
		config:      cfg,
		dbPool:      dbPool,
		versionInfo: params.VersionInfo,

		blogService: blogService,
		publicPosts: posts,
		fileStore:   fileStore,
		imageStore:  imageStore,
		publisher:   publisher,

		redisClient:  rdb,
		authService:  authService,
		loginChecker: loginChecker,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	s.unwatchSessions = loginChecker.Watch(authService)

	scanCtx, stopScan := context.WithCancel(ctx)
	s.stopSessionsScan = stopScan
	go s.cleanSessionsPeriodically(scanCtx)

	return s, nil
}

func newImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	if cfg.ImageStore == config.ImageStoreS3 {
		s3Store, err := storage.NewS3StoreFromEnv(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("new s3 store: %w", err)
		}
		return s3Store, nil
	}

	diskStore, err := storage.NewDiskStore(cfg.UploadsDir)
	if err != nil {
		return nil, fmt.Errorf("new disk store: %w", err)
	}
	return diskStore, nil
}

func (s *Server) cleanSessionsPeriodically(ctx context.Context) {
	ticker := time.NewTicker(sessionsCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.authService.ScanAndClean(ctx)
		}
	}
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	seoSite := seo.NewSite(s.config.SiteURL, s.config.SiteName, s.config.AuthorName)
	secureCookies := s.config.IsProduction()

	blogHandler := blog.NewBlogHandler(s.blogService, s.publicPosts)
	blogHandler.SetupRoutes(r)

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	miscHandler := misc.NewHandler(s.versionInfo, s.config.SiteURL, secureCookies, s.authService, s.metricsManager)
	miscHandler.SetupRoutes(r, reqRateLimiter, s.config.LoginRateLimitAllowedPerMin, s.config.AllowedOrigins)

	seoHandler := seo.NewHandler(seoSite, s.publicPosts)
	seoHandler.SetupRoutes(r)

	if diskStore, ok := s.imageStore.(*storage.DiskStore); ok {
		r.PathPrefix(storage.DiskURLPrefix + "/").Handler(
			http.StripPrefix(storage.DiskURLPrefix+"/", http.FileServer(http.Dir(diskStore.RootDir()))),
		).Methods("GET").Name("uploads")
	}

	siteHandler := site.NewHandler(seoSite, s.publicPosts, s.fileStore, s.blogService, s.authService, secureCookies)
	siteHandler.SetupRoutes(r)

	r.NotFoundHandler = http.HandlerFunc(siteHandler.HandleNotFound)

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", metrics.Handler(s.promRegistry))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var shutdownErr error
	if s.httpServer != nil {
		shutdownErr = multierr.Append(shutdownErr, s.httpServer.Shutdown(ctx))
	}
	log.Warnln("server shut down")

	if s.metricsHttpServer != nil {
		shutdownErr = multierr.Append(shutdownErr, s.metricsHttpServer.Shutdown(ctx))
	}
	log.Warnln("metrics server shut down")

	if s.stopSessionsScan != nil {
		s.stopSessionsScan()
	}
	if s.unwatchSessions != nil {
		s.unwatchSessions()
	}

	if s.publisher != nil {
		shutdownErr = multierr.Append(shutdownErr, s.publisher.Close())
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		shutdownErr = multierr.Append(shutdownErr, s.redisClient.Close())
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	for _, err := range multierr.Errors(shutdownErr) {
		log.Errorf("graceful shutdown: %s", err)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
