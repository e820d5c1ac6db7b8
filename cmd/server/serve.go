package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"foodDelivery/internal/db"
	"foodDelivery/internal/dispatch"
	"foodDelivery/internal/feedback"
	grpcserver "foodDelivery/internal/grpc"
	"foodDelivery/internal/ledger"
	"foodDelivery/internal/notify"
	"foodDelivery/repository"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		log.Infof("Configuration loaded: %v", cfg)

		d, err := db.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := d.Close(); err != nil {
				log.WithError(err).Warn("close db")
			}
		}()

		var events notify.Publisher = notify.NewLogPublisher(log)
		if cfg.Kafka.Enabled() {
			producer, err := notify.DialKafka(cfg.Kafka.Brokers, cfg.Kafka.Timeout)
			if err != nil {
				return err
			}
			kafka := notify.NewKafkaPublisher(producer, cfg.Kafka.Topic)
			defer func() {
				if err := kafka.Close(); err != nil {
					log.WithError(err).Warn("close kafka producer")
				}
			}()
			events = notify.Multi{events, kafka}
			log.WithField("topic", cfg.Kafka.Topic).Info("publishing order events to Kafka")
		}

		store := repository.NewStore(d)
		svc := grpcserver.Services{
			Store:  store,
			Ledger: ledger.New(store, ledger.WithPublisher(events), ledger.WithLogger(log)),
			Dispatch: dispatch.New(store,
				dispatch.WithPublisher(events),
				dispatch.WithLogger(log),
				dispatch.WithRadiusKm(cfg.Dispatch.RadiusKm),
				dispatch.WithPayoutRate(cfg.Dispatch.Rate()),
			),
			Feedback: feedback.New(store, log),
		}

		shutdown, err := grpcserver.StartGRPC(cfg, svc, log)
		if err != nil {
			return err
		}
		log.Infof("gRPC server listening on %s", cfg.GRPC.Address)

		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigc
		log.WithField("signal", sig.String()).Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.GRPC.ShutdownGrace)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			log.WithError(err).Warn("shutdown error")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
