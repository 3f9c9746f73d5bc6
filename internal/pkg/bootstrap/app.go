// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ecommerce/internal/pkg/api"
	"ecommerce/internal/pkg/cdc"
	"ecommerce/internal/pkg/eventbus"
	"ecommerce/internal/pkg/httpclient"
	"ecommerce/internal/pkg/kvstore"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/pkg/metrics"
	"ecommerce/internal/pkg/nacos"
	"ecommerce/internal/tracing"
	"ecommerce/internal/zookeeper"
)

// Runner 是随服务启动和关闭的后台组件（变更流 relay、websocket hub 等）
type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// AppCtx 持有一个进程内所有服务共享的客户端，在启动时创建一次并注入各个服务
type AppCtx struct {
	Config *Config
	Mux    *http.ServeMux
	Tracer trace.Tracer
	Store  kvstore.Store
	Bus    eventbus.Bus
	Redis  redis.UniversalClient
	HTTP   *httpclient.Client
	Nacos  *nacos.Client

	zk      *zookeeper.Conn
	runners []Runner
	closers []func() error
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName string
	// Register 挂载服务自己的 HTTP 路由、事件订阅和变更流 relay
	Register func(app *AppCtx) error
}

// NewAppCtx 根据配置创建所有基础设施客户端
func NewAppCtx(ctx context.Context, cfg *Config) (*AppCtx, error) {
	app := &AppCtx{
		Config: cfg,
		Mux:    http.NewServeMux(),
		Tracer: otel.Tracer(cfg.Service.Name),
	}

	store, err := app.openStore(ctx)
	if err != nil {
		return nil, err
	}
	app.Store = store

	switch cfg.Bus.Driver {
	case DriverKafka:
		app.Bus = eventbus.NewKafkaBus(eventbus.KafkaConfig{
			Brokers:         cfg.Bus.Kafka.Brokers,
			Topic:           cfg.Bus.Kafka.Topic,
			DeadLetterTopic: cfg.Bus.Kafka.DeadLetterTopic,
			GroupPrefix:     cfg.Service.Name,
			MaxRetries:      cfg.Bus.Kafka.MaxRetries,
			RetryBackoff:    cfg.Bus.Kafka.RetryBackoff,
		})
	case DriverMemory, "":
		app.Bus = eventbus.NewMemoryBus()
	default:
		return nil, fmt.Errorf("bootstrap: unknown bus driver %q", cfg.Bus.Driver)
	}

	if len(cfg.Redis.Addrs) > 0 {
		app.Redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := app.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("bootstrap: connect redis: %w", err)
		}
		app.closers = append(app.closers, app.Redis.Close)
	}

	if len(cfg.Zookeeper.Servers) > 0 {
		conn, err := zookeeper.Connect(cfg.Zookeeper.Servers, cfg.Zookeeper.SessionTimeout)
		if err != nil {
			return nil, err
		}
		app.zk = conn
		app.closers = append(app.closers, func() error { conn.Close(); return nil })
	}

	var resolver httpclient.Resolver = httpclient.StaticResolver(cfg.Services)
	if cfg.Nacos.Enabled {
		nc, err := nacos.NewNacosClient(cfg.Nacos.ServerAddrs, cfg.Nacos.Namespace, cfg.Nacos.Group)
		if err != nil {
			return nil, err
		}
		app.Nacos = nc
		resolver = httpclient.FallbackResolver{nc, resolver}
	}
	app.HTTP = httpclient.NewClient(app.Tracer, resolver, cfg.Service.CallerArn, cfg.HTTP.ClientTimeout)
	return app, nil
}

func (a *AppCtx) openStore(ctx context.Context) (kvstore.Store, error) {
	switch a.Config.Storage.Driver {
	case DriverMySQL:
		db, err := gorm.Open(gormmysql.Open(a.Config.Storage.MySQL.FormatDSN()), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: open mysql: %w", err)
		}
		store := kvstore.NewGormStore(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		return store, nil
	case DriverMemory, "":
		return kvstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown storage driver %q", a.Config.Storage.Driver)
	}
}

// Subscribe 用默认中间件（追踪、日志、指标）包装订阅并注册到总线
func (a *AppCtx) Subscribe(sub eventbus.Subscription) error {
	return a.Bus.Subscribe(eventbus.Wrap(sub, eventbus.Default()...))
}

// Relay 为 table 的变更流注册一个 relay，把记录交给 translator 转换后发布
func (a *AppCtx) Relay(table string, translator cdc.Translator) error {
	cfg := kvstore.RelayConfig{
		Table:     table,
		Source:    a.Store,
		Handler:   cdc.Handler(translator, a.Bus),
		Interval:  a.Config.Relay.Interval,
		BatchSize: a.Config.Relay.BatchSize,
	}
	if a.zk != nil {
		lock, err := zookeeper.NewDistributedLock(a.zk, "relay-"+table)
		if err != nil {
			return err
		}
		cfg.Locker = lock
	}
	a.AddRunner(kvstore.NewStreamRelay(cfg))
	return nil
}

// AddRunner 注册一个随服务启动的后台组件
func (a *AppCtx) AddRunner(r Runner) {
	a.runners = append(a.runners, r)
}

// Handler 返回挂载了通用中间件和 /healthz、/metrics 的根 handler
func (a *AppCtx) Handler() http.Handler {
	a.Mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	a.Mux.Handle("GET /metrics", promhttp.Handler())
	return api.Chain(api.Routed(a.Mux),
		api.WithTracing(a.Config.Service.Name),
		api.WithLogging(),
		api.WithMetrics(a.Config.Service.Name),
		api.Identify(),
	)
}

// Start 启动所有后台组件和总线消费者
func (a *AppCtx) Start(ctx context.Context) error {
	for _, r := range a.runners {
		if err := r.Start(ctx); err != nil {
			return err
		}
	}
	return a.Bus.Start(ctx)
}

// Stop 按启动的逆序关闭所有组件
func (a *AppCtx) Stop(ctx context.Context) error {
	var errs []error
	for i := len(a.runners) - 1; i >= 0; i-- {
		errs = append(errs, a.runners[i].Stop(ctx))
	}
	errs = append(errs, a.Bus.Stop(ctx))
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if a.Nacos != nil {
		a.Nacos.Close()
	}
	return errors.Join(errs...)
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑。
func StartService(info AppInfo) {
	// 1. 读取配置
	cfg, err := Load(getEnv("CONFIG_FILE", "configs/config.yaml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
	cfg.Service.Name = info.ServiceName
	logger.Init(info.ServiceName, cfg.Service.LogLevel)
	log := logger.Ctx(context.Background())
	metrics.Register()

	// 2. 初始化核心组件
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Service.Environment, cfg.Jaeger.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewAppCtx(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application context")
	}
	if info.Register != nil {
		if err := info.Register(app); err != nil {
			log.Fatal().Err(err).Msg("failed to register service")
		}
	}
	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start background components")
	}

	// 3. 执行服务注册
	var ip string
	if app.Nacos != nil {
		if ip, err = nacos.OutboundIP(); err != nil {
			log.Fatal().Err(err).Msg("failed to get outbound IP address")
		}
		if err := app.Nacos.RegisterServiceInstance(info.ServiceName, ip, cfg.Service.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to register service with nacos")
		}
	}

	// 4. 创建并启动 HTTP Server
	server := &http.Server{Addr: ":" + strconv.Itoa(cfg.Service.Port), Handler: app.Handler()}
	go func() {
		log.Info().Str("addr", server.Addr).Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("addr", server.Addr).Msg("could not listen")
		}
	}()

	// 5. 优雅关停
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msgf("Shutting down service %s...", info.ServiceName)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	// a. 从 Nacos 注销服务
	if app.Nacos != nil {
		if err := app.Nacos.DeregisterServiceInstance(info.ServiceName, ip, cfg.Service.Port); err != nil {
			log.Error().Err(err).Msg("error deregistering from nacos")
		}
	}
	// b. 停止接收新请求
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down http server")
	}
	// c. 停止消费者与 relay，关闭连接
	cancel()
	if err := app.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error stopping background components")
	}
	// d. 关闭 Tracer Provider，确保所有缓冲的 trace 都被发送出去
	if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
		log.Error().Err(err).Msg("error shutting down tracer provider")
	}

	log.Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
