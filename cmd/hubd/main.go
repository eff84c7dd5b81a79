package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"depthfeed/api/grpcserver"
	"depthfeed/config"
	"depthfeed/infra/reactor"
	"depthfeed/jobs/broadcaster"
	"depthfeed/service"
	"depthfeed/snapshot"
)

func main() {
	cfgPath := flag.String("config", "", "path to depthfeed.yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------------- Loop ----------------

	loop := reactor.NewLoop(cfg.Hub.LoopDepth)

	// ---------------- Transport ----------------

	var acceptor reactor.Acceptor
	if cfg.Hub.WebSocket != "" {
		acceptor, err = reactor.ListenWebSocket(loop, cfg.Hub.WebSocket, cfg.Hub.WebSocketPath)
	} else {
		acceptor, err = reactor.ListenTCP(loop, cfg.Hub.Listen)
	}
	if err != nil {
		log.Fatalf("listen failed: %v", err)
	}

	// ---------------- Snapshot store ----------------

	store, err := snapshot.Open(cfg.Snapshot.Dir)
	if err != nil {
		log.Fatalf("snapshot store: %v", err)
	}
	defer store.Close()

	// ---------------- Hub ----------------

	hub := service.NewHub(service.Options{
		Acceptor:       acceptor,
		Dialer:         &reactor.TCPDialer{Loop: loop},
		Upstream:       cfg.Hub.Upstream,
		RecvBufferSize: cfg.Hub.RecvBufferSize,
		SendBufferSize: cfg.Hub.SendBufferSize,
		Post:           loop.Post,
	})

	relay := service.NewRelay(hub, store, cfg.Hub.Levels)
	relay.Attach()

	var upstream atomic.Bool
	rc := service.NewReconnector(hub, loop.Post, service.DefaultBaseBackoff, cfg.Hub.MaxBackoff)
	hub.SetConnectHandler(func() {
		rc.Connected()
		upstream.Store(true)
	})
	hub.SetResetHandler(func() {
		upstream.Store(false)
		relay.Reset()
		rc.Schedule()
	})

	// ---------------- Trade tape ----------------

	if cfg.KafkaEnabled() {
		bc, err := broadcaster.New(cfg.Kafka.Brokers, cfg.Kafka.TradeTopic, cfg.Kafka.FlushPeriod)
		if err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		defer bc.Close()
		hub.SetTradeTap(bc.Record)
		bc.Start(ctx)
	}

	// ---------------- Health ----------------

	if cfg.GRPC.Listen != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Listen)
		if err != nil {
			log.Fatalf("grpc listen failed: %v", err)
		}
		health := grpcserver.New()
		go func() {
			if err := health.Serve(lis); err != nil {
				log.Printf("[grpc] server exited: %v", err)
			}
		}()
		go health.Watch(ctx, time.Second, upstream.Load)
		defer health.Stop()
	}

	// ---------------- Run ----------------

	loop.Post(func() {
		hub.Accept()
		hub.Connect()
	})

	log.Printf("🚀 depthfeed hub on %s relaying %s (%d levels)",
		acceptor.Addr(), cfg.Hub.Upstream, cfg.Hub.Levels)
	if syms, err := store.Symbols(); err == nil && len(syms) > 0 {
		log.Printf("[hub] %d stored books: %v", len(syms), syms)
	}

	_ = loop.Run(ctx)

	// the loop is gone; nothing else touches the hub now
	rc.Stop()
	st := hub.Stats()
	hub.Close()
	log.Printf("[hub] stopped with %d sessions, recv pool %+v, send pool %+v",
		st.Sessions, st.RecvPool, st.SendPool)
}
