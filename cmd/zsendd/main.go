//go:build unix

// zsendd serves one file over HTTP/1.0 to every client that connects,
// using zsend for corking and zero-copy transmission.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/zhihanii/taskpool"
	"github.com/zhihanii/zlog"
	"golang.org/x/sys/unix"

	"github.com/zhihanii/zsend"
)

var (
	listenAddr  = pflag.String("listen", ":8080", "address to serve the file on")
	filePath    = pflag.String("file", "", "file to serve (required)")
	configPath  = pflag.String("config", "", "YAML config file")
	tlsCert     = pflag.String("tls-cert", "", "TLS certificate; enables TLS together with --tls-key")
	tlsKey      = pflag.String("tls-key", "", "TLS private key")
	metricsAddr = pflag.String("metrics", ":9100", "address of the /metrics endpoint, empty to disable")
)

const (
	// pollTimeout bounds one readiness wait in milliseconds so shutdown
	// is noticed.
	pollTimeout = 500
	// writeWaits is how many timed out waits a stalled client gets.
	writeWaits = 60
)

func main() {
	pflag.Parse()
	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "zsendd: --file is required")
		pflag.Usage()
		os.Exit(2)
	}
	if err := run(); err != nil {
		zlog.Errorf("zsendd: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := new(zsend.Config)
	if *configPath != "" {
		var err error
		if cfg, err = zsend.LoadConfig(*configPath); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	metrics := zsend.NewMetrics(reg)
	useTLS := *tlsCert != "" && *tlsKey != ""
	opts, err := cfg.Options(zsend.DetectCapability())
	if err != nil {
		return err
	}
	if useTLS {
		// crypto/tls writes block, so every connection holds its worker
		opts = append(opts, zsend.WithExecModel(zsend.ThreadPerConnection))
	}
	sender := zsend.NewSender(append(opts, zsend.WithMetrics(metrics))...)
	zlog.Infof("zsendd: %s", sender.Capability())

	file, err := os.Open(*filePath)
	if err != nil {
		return err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return err
	}
	res := &resource{fd: int(file.Fd()), size: uint64(info.Size())}

	if *metricsAddr != "" {
		go serveMetrics(reg, *metricsAddr)
	}

	if useTLS {
		cert, err := tls.LoadX509KeyPair(*tlsCert, *tlsKey)
		if err != nil {
			return fmt.Errorf("load tls key pair: %w", err)
		}
		return serveTLS(ctx, sender, res, &tls.Config{Certificates: []tls.Certificate{cert}})
	}
	return servePlain(ctx, sender, res)
}

func serveMetrics(reg *prometheus.Registry, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	zlog.Infof("zsendd: metrics on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zlog.Errorf("zsendd: metrics server: %v", err)
	}
}

type resource struct {
	fd   int
	size uint64
}

func (r *resource) header() []byte {
	return []byte(fmt.Sprintf("HTTP/1.0 200 OK\r\nContent-Type: application/octet-stream\r\nContent-Length: %d\r\nConnection: close\r\n\r\n", r.size))
}

func servePlain(ctx context.Context, sender *zsend.Sender, res *resource) error {
	nl, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		return err
	}
	ln, err := zsend.ConvertListener(nl, sender)
	if err != nil {
		nl.Close()
		return err
	}
	defer ln.Close()
	zlog.Infof("zsendd: serving %s on %s", *filePath, ln.Addr())

	for ctx.Err() == nil {
		if !waitFd(ln.Fd(), unix.POLLIN) {
			continue
		}
		c, err := ln.Accept()
		if err != nil {
			if zsend.Classify(err).Temporary() {
				continue
			}
			zlog.Errorf("zsendd: accept: %v", err)
			continue
		}
		dispatch(ctx, c, res, func() bool { return waitWritable(c.Fd()) })
	}
	return nil
}

func serveTLS(ctx context.Context, sender *zsend.Sender, res *resource, config *tls.Config) error {
	nl, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		nl.Close()
	}()
	zlog.Infof("zsendd: serving %s with tls on %s", *filePath, nl.Addr())

	for {
		raw, err := nl.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			zlog.Errorf("zsendd: accept: %v", err)
			continue
		}
		taskpool.Submit(ctx, func() {
			tc := tls.Server(raw, config)
			defer tc.Close()
			if err := tc.HandshakeContext(ctx); err != nil {
				zlog.Errorf("zsendd: tls handshake with %s: %v", raw.RemoteAddr(), err)
				return
			}
			c := zsend.NewTLSConn(-1, zsend.NewRecordSession(tc), sender)
			serve(c, res, func() bool { return true })
			c.Close()
		})
	}
}

// dispatch serves c on a pooled worker and closes it afterwards.
func dispatch(ctx context.Context, c *zsend.Conn, res *resource, wait func() bool) {
	taskpool.Submit(ctx, func() {
		serve(c, res, wait)
		c.Close()
	})
}

// serve writes the response header and then the file. wait blocks until
// the socket may be writable again and returns false to give up.
func serve(c *zsend.Conn, res *resource, wait func() bool) {
	header := res.header()
	for len(header) > 0 {
		// the body follows right away
		r := c.Send(header, zsend.MayCork)
		if !progress(r, wait) {
			return
		}
		header = header[r.N:]
	}
	f := c.ServeFile(res.fd, 0, res.size)
	for f.Remaining() > 0 {
		if !progress(c.SendFile(), wait) {
			return
		}
	}
}

func progress(r zsend.Result, wait func() bool) bool {
	if r.OK() {
		return true
	}
	if r.Kind.Temporary() {
		return r.Kind == zsend.Interrupted || wait()
	}
	if r.Kind != zsend.ConnectionReset {
		zlog.Errorf("zsendd: %v", r.Err())
	}
	return false
}

func waitWritable(fd int) bool {
	for i := 0; i < writeWaits; i++ {
		if waitFd(fd, unix.POLLOUT) {
			return true
		}
	}
	return false
}

// waitFd polls fd for events. A timeout is reported as not ready.
func waitFd(fd int, events int16) bool {
	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	n, err := unix.Poll(fds, pollTimeout)
	if err != nil {
		return false
	}
	return n > 0
}
