package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"

	"depthfeed/domain/depth"
	"depthfeed/infra/codec"
	"depthfeed/service"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7100", "hub address (host:port, or ws:// URL)")
	levels := flag.Int("levels", depth.DefaultLevels, "depth levels per side")
	quiet := flag.Bool("quiet", false, "log violations only")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := dial(*addr)
	if err != nil {
		log.Fatalf("connect %s: %v", *addr, err)
	}
	go func() {
		<-ctx.Done()
		_ = src.Close()
	}()

	checker := &service.FeedChecker{Levels: *levels}
	var framer codec.Framer
	violations := 0

	for {
		chunk, err := src.Read()
		if err != nil {
			if ctx.Err() == nil && err != io.EOF {
				log.Printf("[subscriber] read: %v", err)
			}
			break
		}
		framer.Feed(chunk)

		for {
			body, ok, err := framer.Next()
			if err != nil {
				log.Fatalf("[subscriber] bad frame: %v", err)
			}
			if !ok {
				break
			}
			tid, msg, err := codec.DecodeBody(body)
			if err != nil {
				log.Fatalf("[subscriber] decode: %v", err)
			}
			if err := checker.Check(msg); err != nil {
				violations++
				log.Printf("[subscriber] VIOLATION %v", err)
			}
			if !*quiet {
				logMessage(tid, msg)
			}
		}
	}

	log.Printf("[subscriber] done: last seq %d, %d violations", checker.Last(), violations)
}

func logMessage(tid codec.TemplateID, msg depth.Message) {
	switch m := msg.(type) {
	case *depth.Trade:
		log.Printf("[subscriber] #%d %s %s qty=%d cost=%d", m.Seq, tid, m.Symbol, m.Qty, m.Cost)
	case *depth.Depth:
		kind := "incr"
		if m.Full {
			kind = "full"
		}
		log.Printf("[subscriber] #%d %s %s %s bids=%d asks=%d", m.Seq, tid, kind, m.Symbol, len(m.Bids), len(m.Asks))
	}
}

// ---------- Sources ----------

type source interface {
	Read() ([]byte, error)
	Close() error
}

func dial(addr string) (source, error) {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		ws, _, err := websocket.DefaultDialer.Dial(addr, nil)
		if err != nil {
			return nil, err
		}
		return wsSource{ws}, nil
	}
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &tcpSource{conn: c, buf: make([]byte, 64*1024)}, nil
}

type tcpSource struct {
	conn net.Conn
	buf  []byte
}

func (s *tcpSource) Read() ([]byte, error) {
	n, err := s.conn.Read(s.buf)
	if n > 0 {
		return s.buf[:n], nil
	}
	return nil, err
}

func (s *tcpSource) Close() error { return s.conn.Close() }

type wsSource struct {
	ws *websocket.Conn
}

func (s wsSource) Read() ([]byte, error) {
	_, data, err := s.ws.ReadMessage()
	return data, err
}

func (s wsSource) Close() error { return s.ws.Close() }
