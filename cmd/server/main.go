package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookswap/internal/config"
	"bookswap/internal/handler"
	"bookswap/internal/infrastructure/cache"
	"bookswap/internal/infrastructure/database"
	"bookswap/internal/infrastructure/lock"
	"bookswap/internal/infrastructure/mq"
	"bookswap/internal/job"
	"bookswap/internal/logger"
	"bookswap/internal/service"
	"bookswap/internal/verification"
	"bookswap/pkg/idgen"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := os.Getenv("BOOKSWAP_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	// 加载配置
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("加载配置失败")
	}
	log := logger.New(cfg.Log)

	// 初始化 ID 生成器
	if err := idgen.Init(1); err != nil {
		log.WithError(err).Fatal("初始化 ID 生成器失败")
	}

	// 初始化 MySQL
	db, err := database.InitMySQL(&cfg.MySQL, log)
	if err != nil {
		log.WithError(err).Fatal("初始化 MySQL 失败")
	}

	// 钱包锁
	var locker lock.Locker
	switch cfg.Lock.Backend {
	case "redis":
		redisClient, err := cache.InitRedis(&cfg.Redis)
		if err != nil {
			log.WithError(err).Fatal("初始化 Redis 失败")
		}
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient, cfg.Lock.TTL, cfg.Lock.RetryInterval, cfg.Lock.MaxRetries)
	default:
		log.Warn("使用进程内钱包锁，仅适用于单实例部署")
		locker = lock.NewLocalLocker()
	}

	// 账本事件投递
	var publisher mq.Publisher
	if cfg.Kafka.Enabled {
		kp, err := mq.NewKafkaPublisher(&cfg.Kafka)
		if err != nil {
			log.WithError(err).Fatal("初始化 Kafka 失败")
		}
		publisher = kp
	} else {
		publisher = mq.NewLogPublisher(log.WithField("component", "LedgerEvents"))
	}
	defer publisher.Close()

	verifiers := verification.NewRegistry(cfg.Verification, log)

	ledger := service.NewLedgerService(db, locker, cfg, log)
	packages := service.NewPackageCatalog(db, cfg.Cache.PackageTTL)
	topUp := service.NewTopUpService(db, ledger, verifiers, packages, cfg, log)
	settings := service.NewSettingsStore(db, log)
	valuation := service.NewValuationService(db, settings)
	settlement := service.NewSettlementService(db, ledger, valuation, log)

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := settings.Load(ctx); err != nil {
		log.WithError(err).Fatal("加载估值参数失败")
	}

	// 启动后台任务
	if cfg.Jobs.OutboxEnabled {
		go job.NewOutboxSender(db, publisher, cfg, log).Start(ctx)
	}
	if cfg.Jobs.AuditEnabled {
		go job.NewBalanceAuditJob(db, cfg, log).Start(ctx)
	}

	// 设置路由
	h := handler.NewHandler(ledger, topUp, valuation, settlement, log)
	router := handler.SetupRouter(h, log, cfg.Server.Mode)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Server.Port, "mock_verification": verifiers.Mock()}).Info("服务启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("服务启动失败")
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务...")

	// 取消上下文，停止后台任务
	cancel()

	// 关闭 HTTP 服务（验证请求最长 20 秒，多留一些余量）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("服务关闭异常")
	}

	log.Info("服务已关闭")
}
