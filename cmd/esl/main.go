package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	httpapi "github.com/maartenscholl/esl/api/http"
	"github.com/maartenscholl/esl/api/transport"
	"github.com/maartenscholl/esl/domain/market"
	"github.com/maartenscholl/esl/domain/orderbook"
	"github.com/maartenscholl/esl/domain/simulation"
	"github.com/maartenscholl/esl/infra/kafka"
	"github.com/maartenscholl/esl/infra/outbox"
	"github.com/maartenscholl/esl/jobs/broadcaster"
	"github.com/maartenscholl/esl/service"
	"github.com/maartenscholl/esl/snapshot"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		steps    = flag.Int("steps", 100, "number of simulated steps")
		dt       = flag.Uint64("dt", 1, "time units per step")
		traders  = flag.Int("traders", 10, "number of zero intelligence traders")
		seed     = flag.Int64("seed", 42, "master random seed")
		impactK  = flag.Float64("impact", 0.001, "linear impact coefficient")
		price0   = flag.Int64("price", 10000, "initial quote in price hundredths")
		noise    = flag.Int64("noise", 200, "trader price noise in basis points")
		maxQty   = flag.Int64("max-qty", 10, "trader maximum order quantity")
		httpAddr = flag.String("http", envOr("ESL_HTTP_ADDR", ":8080"), "HTTP listen address, empty to disable")
		grpcAddr = flag.String("grpc", envOr("ESL_GRPC_ADDR", ""), "gRPC listen address, empty to disable")
		brokers  = flag.String("brokers", envOr("ESL_KAFKA_BROKERS", ""), "comma separated Kafka brokers, empty to disable")
		topic    = flag.String("topic", envOr("ESL_KAFKA_TOPIC", "esl.clearings"), "Kafka topic for clearing records")
		quotes   = flag.String("quote-topic", envOr("ESL_QUOTE_TOPIC", "esl.quotes"), "Kafka topic for the quote feed")
		dataDir  = flag.String("data", envOr("ESL_DATA_DIR", "./data"), "directory for the outbox and snapshots")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- Durable outbox ----------------

	ob, err := outbox.Open(*dataDir + "/outbox")
	if err != nil {
		log.WithError(err).Fatal("outbox init failed")
	}
	defer ob.Close()

	// ---------------- Environment and agents ----------------

	env := service.NewEnvironment(*seed, log)

	property := simulation.PropertyID(1)
	marketID := simulation.MarketID(1)

	participants := make([]simulation.AgentID, 0, *traders)
	for i := 0; i < *traders; i++ {
		id := simulation.AgentID(1000 + i)
		participants = append(participants, id)
		env.Register(newTrader(id, env, *noise, *maxQty))
	}

	organizer := market.NewOrganizer(
		marketID,
		[]market.Quote{{Property: property, Price: orderbook.Price(*price0)}},
		participants,
		market.LinearImpact(*impactK),
		env,
	)
	env.Register(organizer)

	auction := market.NewAuction(
		simulation.MarketID(2),
		[]simulation.PropertyID{property},
		participants,
		env,
	)
	env.Register(auction)

	// ---------------- Snapshot restore ----------------

	snapDir := *dataDir + "/snapshot"
	writer := snapshot.NewWriter(snapDir)

	restored, err := snapshot.Load(snapDir, organizer, auction)
	if err != nil {
		log.WithError(err).Fatal("snapshot restore failed")
	}
	if restored.RunID != "" {
		log.WithFields(logrus.Fields{
			"run":     restored.RunID,
			"seq":     restored.Seq,
			"created": restored.Created,
		}).Info("restored snapshot")
	}

	// ---------------- Publication path ----------------

	var feed *kafka.Producer
	if *brokers != "" {
		feed = kafka.NewProducer(strings.Split(*brokers, ","), *quotes)
		defer feed.Close()

		bc, err := broadcaster.New(ob, strings.Split(*brokers, ","), *topic, log)
		if err != nil {
			log.WithError(err).Fatal("broadcaster init failed")
		}
		defer bc.Close()
		bc.Start(ctx)
	}

	publisher := service.NewPublisher(marketID, organizer, ob, feed, restored.Seq, log)

	// ---------------- API surfaces ----------------

	if *httpAddr != "" {
		api := httpapi.NewServer(organizer, auction, log)
		go func() {
			if err := api.Router().Run(*httpAddr); err != nil {
				log.WithError(err).Error("http server exited")
			}
		}()
		log.WithField("addr", *httpAddr).Info("http listening")
	}

	if *grpcAddr != "" {
		lis, err := net.Listen("tcp", *grpcAddr)
		if err != nil {
			log.WithError(err).Fatal("grpc listen failed")
		}
		g := grpc.NewServer(transport.ServerOptions()...)
		transport.NewServer(env, log).Register(g)
		go func() {
			if err := g.Serve(lis); err != nil {
				log.WithError(err).Error("grpc server exited")
			}
		}()
		defer g.GracefulStop()
		log.WithField("addr", *grpcAddr).Info("grpc listening")
	}

	// ---------------- Run ----------------

	log.WithFields(logrus.Fields{
		"steps":   *steps,
		"traders": *traders,
		"seed":    *seed,
	}).Info("run starting")

	now := restored.Now
	delta := simulation.TimePoint(*dt)
loop:
	for i := 0; i < *steps; i++ {
		select {
		case <-ctx.Done():
			log.Info("interrupted")
			break loop
		default:
		}
		step := simulation.TimeInterval{Lower: now, Upper: now + delta}
		env.Step(step)
		if err := publisher.Flush(ctx); err != nil {
			log.WithError(err).Error("publish failed")
		}
		now = step.Upper
	}

	// ---------------- Snapshot ----------------

	if err := writer.Write(publisher.Seq(), now, organizer, auction); err != nil {
		log.WithError(err).Error("snapshot write failed")
	}

	log.WithFields(logrus.Fields{
		"clearings": len(organizer.ClearingPrices()),
		"rejected":  organizer.Rejected(),
		"trades":    len(auction.Trades()),
	}).Info("run complete")
}
