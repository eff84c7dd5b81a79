package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"depthfeed/config"
	"depthfeed/domain/depth"
	"depthfeed/infra/kafka"
	"depthfeed/infra/reactor"
	"depthfeed/service"
)

func main() {
	cfgPath := flag.String("config", "", "path to depthfeed.yaml")
	listen := flag.String("listen", "", "feed listen address (default: hub upstream address)")
	emit := flag.Bool("emit", false, "write generated orders to the kafka order topic and exit on signal")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *listen == "" {
		*listen = cfg.Hub.Upstream
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *emit {
		runEmitter(ctx, cfg)
		return
	}

	loop := reactor.NewLoop(cfg.Hub.LoopDepth)
	acceptor, err := reactor.ListenTCP(loop, *listen)
	if err != nil {
		log.Fatalf("listen failed: %v", err)
	}

	hub := service.NewHub(service.Options{
		Acceptor:       acceptor,
		RecvBufferSize: cfg.Hub.RecvBufferSize,
		SendBufferSize: cfg.Hub.SendBufferSize,
		Post:           loop.Post,
	})

	symbols := make([]depth.Symbol, 0, len(cfg.Exchange.Symbols))
	for _, s := range cfg.Exchange.Symbols {
		symbols = append(symbols, depth.Symbol(s))
	}
	ex := service.NewExchange(hub, symbols, cfg.Hub.Levels)
	ex.Attach()

	// ---------------- Order sources ----------------

	if cfg.Exchange.OrderInterval > 0 {
		go generate(ctx, loop, ex, cfg)
	}

	if cfg.KafkaEnabled() {
		reader := kafka.NewOrderReader(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.OrderGroup)
		defer reader.Close()
		go func() {
			err := reader.Run(ctx, func(o kafka.Order) {
				sym, side, typ, err := o.Request()
				if err != nil {
					return
				}
				loop.Post(func() {
					if err := ex.Place(sym, side, typ, o.Price, o.Qty); err != nil {
						log.Printf("[exchange] kafka order rejected: %v", err)
					}
				})
			})
			if err != nil {
				log.Printf("[kafka] order intake stopped: %v", err)
			}
		}()
	}

	loop.Post(hub.Accept)

	log.Printf("🚀 exchange feed on %s for %v", acceptor.Addr(), symbols)
	_ = loop.Run(ctx)
	hub.Close()
}

// generate places random orders locally on the loop.
func generate(ctx context.Context, loop *reactor.Loop, ex *service.Exchange, cfg *config.Config) {
	gen := newGenerator(cfg)

	ticker := time.NewTicker(cfg.Exchange.OrderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		o := gen.next()
		sym, side, typ, err := o.Request()
		if err != nil {
			log.Printf("[exchange] generated bad order: %v", err)
			continue
		}
		if !loop.Post(func() {
			if err := ex.Place(sym, side, typ, o.Price, o.Qty); err != nil {
				log.Printf("[exchange] %v", err)
			}
		}) {
			return
		}
	}
}

// runEmitter feeds the kafka order topic instead of a local book, so several
// exchange processes can share one generator.
func runEmitter(ctx context.Context, cfg *config.Config) {
	if !cfg.KafkaEnabled() {
		log.Fatalf("-emit needs kafka brokers")
	}
	if cfg.Exchange.OrderInterval <= 0 {
		log.Fatalf("-emit needs a positive exchange.order_interval")
	}

	w := kafka.NewOrderWriter(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
	defer w.Close()

	gen := newGenerator(cfg)
	ticker := time.NewTicker(cfg.Exchange.OrderInterval)
	defer ticker.Stop()

	log.Printf("🚀 emitting orders to %s on %v", cfg.Kafka.OrderTopic, cfg.Kafka.Brokers)
	sent := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("[kafka] emitted %d orders", sent)
			return
		case <-ticker.C:
		}
		if err := w.Send(ctx, gen.next()); err != nil {
			if ctx.Err() == nil {
				log.Printf("[kafka] emit: %v", err)
			}
			continue
		}
		sent++
	}
}
