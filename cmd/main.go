package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"hashpay"
	"hashpay/internal/config"
	"hashpay/internal/wallet"
	"hashpay/pkg/gateway"
	"hashpay/pkg/handler"
	"hashpay/pkg/pricefeed"
	"hashpay/pkg/repository"
	"hashpay/pkg/service"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))
	logrus.Info("starting hashpay")

	cfg, err := config.Load("configs")
	if err != nil {
		logrus.Fatalf("load config: %s", err)
	}
	logrus.SetLevel(cfg.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDB(repository.Config{
		Driver:   cfg.DB.Driver,
		Path:     cfg.DB.Path,
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		Username: cfg.DB.Username,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.DBName,
		SSLMode:  cfg.DB.SSLMode,
	})
	if err != nil {
		logrus.Fatalf("open local store: %s", err)
	}
	defer db.Close()
	if err := repository.Migrate(ctx, db); err != nil {
		logrus.Fatalf("migrate local store: %s", err)
	}
	repos := repository.NewRepository(db)

	var store wallet.Store = repos.Preferences
	if cfg.WalletStore == config.WalletStoreRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logrus.Fatalf("connect redis %s: %s", cfg.Redis.Addr, err)
		}
		store = wallet.NewRedisStore(rdb)
	}
	conn := wallet.NewConnection(store)
	if st, err := conn.Load(ctx); err != nil {
		logrus.Warnf("restore wallet state: %s", err)
	} else {
		logrus.WithFields(logrus.Fields{"connected": st.Connected, "kind": st.Kind}).Info("wallet state restored")
	}

	chain, err := gateway.Dial(ctx, cfg.Chain.RPCURL, gateway.Config{
		ConnectTimeout: cfg.Chain.ConnectTimeout,
		BalanceTimeout: cfg.Chain.BalanceTimeout,
		SendTimeout:    cfg.Chain.SendTimeout,
		RateLimit:      cfg.Chain.RateLimit,
		RateBurst:      cfg.Chain.RateBurst,
	})
	if err != nil {
		logrus.Fatalf("wallet provider: %s", err)
	}
	defer chain.Close()

	opts := service.Options{ContractAddress: cfg.Chain.ContractAddress}
	if cfg.Pricing.Enabled {
		opts.Prices = pricefeed.New(pricefeed.Config{
			BaseURL:  cfg.Pricing.BaseURL,
			APIKey:   cfg.Pricing.APIKey,
			Currency: cfg.Pricing.Currency,
			Timeout:  cfg.Pricing.Timeout,
			CacheTTL: cfg.Pricing.CacheTTL,
		})
	}
	services := service.NewService(repos, conn, chain, opts)
	if n, err := services.SweepPending(ctx); err != nil {
		logrus.Warnf("check pending transactions: %s", err)
	} else if n > 0 {
		logrus.WithField("count", n).Warn("pending transactions need reconciliation")
	}
	handlers := handler.NewHandler(services)

	srv := new(hashpay.Server)
	go func() {
		if err := srv.Run(cfg.Server.Port, handlers.InitRoute(cfg.Server.AllowOrigins)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("run server: %s", err)
		}
	}()
	logrus.WithField("port", cfg.Server.Port).Info("hashpay api listening")

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("shutdown: %s", err)
	}
}
