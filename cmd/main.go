package main

import (
	"context"
	"log"
	"time"

	"github.com/IBM/sarama"

	"gitlab.ozon.dev/qwestard/cylinders/internal/audit"
	"gitlab.ozon.dev/qwestard/cylinders/internal/cache"
	"gitlab.ozon.dev/qwestard/cylinders/internal/config"
	"gitlab.ozon.dev/qwestard/cylinders/internal/db"
	"gitlab.ozon.dev/qwestard/cylinders/internal/kafka"
	"gitlab.ozon.dev/qwestard/cylinders/internal/notify"
	taskprocessor "gitlab.ozon.dev/qwestard/cylinders/internal/processor"
	"gitlab.ozon.dev/qwestard/cylinders/internal/repository"
	"gitlab.ozon.dev/qwestard/cylinders/internal/server"
	"gitlab.ozon.dev/qwestard/cylinders/internal/service"
)

func main() {
	cfg := config.LoadConfig()

	database, err := db.NewDB(cfg.DSN, cfg.MigrationsDir)
	if err != nil {
		log.Fatalf("Error in connection to db: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := repository.NewPgStore(database)
	taskRepo := repository.NewPostgresTaskRepository(database)

	svc := service.NewService(store, notify.NewOutboxNotifier(taskRepo), service.Config{
		UnitPrice: cfg.UnitPrice,
	})

	auditPool := audit.NewWorkerPool(audit.PoolConfig{
		BatchSize:   5,
		Timeout:     500 * time.Millisecond,
		ChannelSize: 100,
	}, audit.NewDBProcessor(database), &audit.StdoutProcessor{})
	auditPool.Start(ctx, 2)
	defer auditPool.Shutdown(cancel)

	producer, err := kafka.NewSaramaProducer(cfg.KafkaBrokers)
	if err != nil {
		log.Printf("Kafka producer unavailable, notifications stay queued: %v", err)
	} else {
		defer producer.Close()
		processor := taskprocessor.NewTaskProcessor(taskRepo, producer, cfg.KafkaTopic, 2*time.Second, 10)
		go processor.Start(ctx)

		consumerCfg := sarama.NewConfig()
		consumerCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
		go kafka.StartSaramaConsumer(ctx, consumerCfg, cfg.KafkaBrokers, cfg.KafkaGroupID, []string{cfg.KafkaTopic})
	}

	couriers := cache.NewCourierCache()
	if err := couriers.Refresh(ctx, store); err != nil {
		log.Printf("Courier cache warmup failed: %v", err)
	}
	go couriers.StartAutoRefresh(ctx, store, 30*time.Second)

	srv := server.NewServer(svc, cfg, auditPool, couriers)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
