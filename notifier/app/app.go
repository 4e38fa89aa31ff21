package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/astralibs/lending-service/notifier/config"
	"github.com/astralibs/lending-service/notifier/internal/handler"
	"github.com/astralibs/lending-service/notifier/internal/server"
	"github.com/astralibs/lending-service/notifier/internal/service"
	"github.com/astralibs/lending-service/pkg/kafka"
	"github.com/astralibs/lending-service/pkg/logger"
	"go.uber.org/zap"
)

func Run(cfg *config.Config) error {
	log := logger.NewLogger(cfg.Log, "notifier")

	svc := service.NewService([]service.Webhook{
		{URL: cfg.Webhooks.LibrarianURL, Channel: service.ChannelLibrarians},
		{URL: cfg.Webhooks.BorrowerURL, Channel: service.ChannelBorrower},
	}, log)

	consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.NotifierConsumerGroup)
	if err != nil {
		return fmt.Errorf("kafka.NewConsumer %w", err)
	}

	consumeCtx, consumeCancel := context.WithCancel(context.Background())
	defer consumeCancel()
	go func() {
		if err := kafka.Consume(consumeCtx, consumer, handler.NewConsumer(svc.Dispatch, log), kafka.LoanTopic); err != nil {
			log.Error("kafka.Consume", zap.Error(err))
		}
	}()

	h := handler.New(log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.Error("srv.Stop", zap.Error(err))
	}
	consumeCancel()
	if err = consumer.Close(); err != nil {
		log.Error("consumer.Close", zap.Error(err))
	}
	log.Info("Graceful shutdown finished")
	return nil
}
