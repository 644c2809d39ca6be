package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/PaqueMex/EnvioBox/internal/api/httpapi"
	"github.com/PaqueMex/EnvioBox/internal/broker/messages"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/PaqueMex/EnvioBox/internal/services/shipments"
	"github.com/PaqueMex/EnvioBox/internal/storage/pgbroker"
)

type envioAPIOpts struct {
	httpAddr    string
	swaggerPath string

	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func runEnvioAPI(ctx context.Context, opts envioAPIOpts, api *httpapi.API, shipmentsSvc *shipments.Service, consumer kafkaConsumer) error {
	if opts.swaggerPath != "" {
		if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
			return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
		}
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runHTTPServer(ctx, lis, api.Router(opts.swaggerPath))
	}()

	if consumer != nil {
		go func() {
			slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
			_ = consumer.Consume(ctx, func(_key, value []byte) error {
				var m messages.ShipmentTracked
				if err := json.Unmarshal(value, &m); err != nil {
					return err
				}
				return shipmentsSvc.ApplyTracked(ctx, trackedToUpdate(m))
			})
		}()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}

func runHTTPServer(ctx context.Context, lis net.Listener, handler http.Handler) error {
	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	return srv.Serve(lis)
}

func trackedToUpdate(m messages.ShipmentTracked) pgbroker.TrackingUpdate {
	upd := pgbroker.TrackingUpdate{
		ShipmentID:     m.ShipmentID,
		TrackingNumber: m.TrackingNumber,
		CheckedAt:      m.CheckedAt,
		Status:         m.Status,
		NextCheckAt:    m.NextCheckAt,
		Error:          m.Error,
	}
	for _, e := range m.Events {
		upd.Events = append(upd.Events, &models.TrackingEvent{
			Status:      e.Status,
			Description: e.Description,
			Location:    e.Location,
			EventDate:   e.EventDate,
		})
	}
	return upd
}
