package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mhlabs/tokenvault/pkg/common/config"
	"github.com/mhlabs/tokenvault/pkg/common/database"
	"github.com/mhlabs/tokenvault/pkg/common/kafka"
	"github.com/mhlabs/tokenvault/pkg/common/logger"
	"github.com/mhlabs/tokenvault/pkg/common/middleware"
	"github.com/mhlabs/tokenvault/pkg/common/models"
	"github.com/mhlabs/tokenvault/pkg/vault"
)

type VaultApp struct {
	service  *vault.Service
	producer *kafka.Producer
	consumer *kafka.Consumer
}

func main() {
	logger.Init("vault-service")
	cfg := config.Load()

	policies, err := vault.LoadPolicies(cfg.PolicyPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load identifier policies")
	}

	docs, cleanup, err := openDocumentStore(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to open document store")
	}
	defer cleanup()

	store := vault.NewTokenStore(docs)
	service := vault.NewService(store, policies)
	app := &VaultApp{service: service}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.KafkaBrokers) > 0 {
		app.producer = kafka.NewProducer(cfg, cfg.KafkaReplyTopic)
		defer app.producer.Close()

		app.consumer = kafka.NewConsumer(cfg, cfg.KafkaRequestTopic, cfg.KafkaGroupID)
		defer app.consumer.Close()

		go func() {
			if err := app.consumer.Consume(ctx, app.processBatchEvent); err != nil && ctx.Err() == nil {
				logger.Log.WithError(err).Fatal("consumer error")
			}
		}()
	}

	router := mux.NewRouter()
	router.Use(middleware.Logging, middleware.Recovery)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	handler := vault.NewHandler(service)
	handler.Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      http.MaxBytesHandler(router, cfg.MaxRequestBody),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":    cfg.ServerHost,
			"port":    cfg.ServerPort,
			"backend": cfg.StoreBackend,
		}).Info("Token Vault started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Token Vault...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Token Vault stopped")
}

func openDocumentStore(cfg *config.Config) (vault.DocumentStore, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		db, err := database.NewPostgres(cfg)
		if err != nil {
			return nil, nil, err
		}
		store, err := vault.NewPostgresStore(db)
		if err != nil {
			database.ClosePostgres(db)
			return nil, nil, err
		}
		return store, func() { database.ClosePostgres(db) }, nil
	case "redis":
		client, err := database.NewRedis(cfg)
		if err != nil {
			return nil, nil, err
		}
		return vault.NewRedisStore(client), func() { client.Close() }, nil
	case "memory":
		return vault.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// processBatchEvent runs remote function requests arriving over Kafka and
// publishes the replies keyed by the originating request ID.
func (a *VaultApp) processBatchEvent(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("invalid batch event payload: %w", err)
	}
	var req vault.RemoteFunctionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		logger.Log.WithError(err).WithField("event_id", event.ID).Error("malformed batch request event")
		// Malformed events are not retriable; commit and move on.
		return nil
	}

	resp, err := a.service.ProcessBatch(ctx, req)
	if err != nil {
		logger.Log.WithError(err).WithField("request_id", req.RequestID).Error("failed to process batch event")
		return err
	}

	data := map[string]interface{}{"requestId": req.RequestID}
	if resp != nil {
		data["replies"] = resp.Replies
	}
	return a.producer.PublishEvent(ctx, "batch-reply", "vault-service", data)
}
