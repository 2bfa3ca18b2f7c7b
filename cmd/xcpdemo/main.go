// Command xcpdemo runs a standalone measurement and calibration server:
// one calibration segment, one periodic measurement event, an XCP-on-UDP
// or XCP-on-TCP transport, and a Prometheus /metrics endpoint.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rob-gra/xcp-lite/calseg"
	"github.com/rob-gra/xcp-lite/daq"
	"github.com/rob-gra/xcp-lite/mctype"
	"github.com/rob-gra/xcp-lite/transport"
	"github.com/rob-gra/xcp-lite/xcp"
	"github.com/rob-gra/xcp-lite/xcpmetrics"
)

func main() {
	os.Exit(run())
}

// calParams is the demo calibration segment: a gain and offset the tool can
// read, write, and page-switch while the server is running.
type calParams struct {
	Gain   float32
	Offset float32
}

func run() int {
	appName := flag.String("app", "xcpdemo", "application name, used as the A2L file stem")
	bindAddr := flag.String("addr", "0.0.0.0", "bind address for the XCP transport and /metrics")
	xcpPort := flag.Uint("xcp-port", 5555, "XCP transport port")
	metricsPort := flag.Uint("metrics-port", 9090, "Prometheus /metrics port")
	proto := flag.String("transport", "udp", "XCP transport: \"udp\" or \"tcp\"")
	logLevel := flag.String("log-level", "info", "log level: off, info, debug")
	period := flag.Duration("period", 10*time.Millisecond, "measurement event trigger period")
	flag.Parse()

	addr := net.ParseIP(*bindAddr)
	if addr == nil {
		fmt.Fprintf(os.Stderr, "xcpdemo: invalid -addr %q\n", *bindAddr)
		return 1
	}

	var tl xcp.TransportLayer
	switch *proto {
	case "udp":
		tl = xcp.TransportUDP
	case "tcp":
		tl = xcp.TransportTCP
	default:
		fmt.Fprintf(os.Stderr, "xcpdemo: invalid -transport %q, want \"udp\" or \"tcp\"\n", *proto)
		return 1
	}

	x := xcp.New(*appName).SetLogLevel(parseLogLevel(*logLevel))

	cal := xcp.CreateCalSeg(x, "params", calParams{Gain: 1.0, Offset: 0.0}, calParams{Gain: 1.0, Offset: 0.0})

	event := x.CreateEvent("main_loop")
	daqEvent := x.NewDaqEvent(event, 8)
	signalOffset := daqEvent.AddCapture("signal", 4, mctype.VFloat32Ieee, 0, 0, 1.0, 0.0, "V", "demo sine signal")

	if err := x.StartServer(tl, addr, uint16(*xcpPort), transport.DefaultConfig().MaxSegmentSize); err != nil {
		fmt.Fprintf(os.Stderr, "xcpdemo: StartServer: %v\n", err)
		return 1
	}
	if err := x.WriteA2L(); err != nil {
		fmt.Fprintf(os.Stderr, "xcpdemo: WriteA2L: %v\n", err)
		return 1
	}

	server, err := transport.NewServer(transport.DefaultConfig(), x, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xcpdemo: transport.NewServer: %v\n", err)
		return 1
	}

	mp, shutdownMetrics, err := xcpmetrics.InitProvider(xcpmetrics.ProviderConfig{ServiceName: *appName})
	if err != nil {
		fmt.Fprintf(os.Stderr, "xcpdemo: InitProvider: %v\n", err)
		return 1
	}
	metrics, err := xcpmetrics.NewMetrics(mp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xcpdemo: NewMetrics: %v\n", err)
		return 1
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", xcpmetrics.Handler())
	metricsSrv := &http.Server{Addr: fmt.Sprintf("%s:%d", *bindAddr, *metricsPort), Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return runTransport(gctx, tl, server, addr, uint16(*xcpPort))
	})

	g.Go(func() error {
		return triggerLoop(gctx, server, metrics, cal, daqEvent, signalOffset, *period)
	})

	fmt.Printf("xcpdemo: %s transport on %s:%d, metrics on %s:%d (app=%s)\n",
		*proto, addr, *xcpPort, addr, *metricsPort, *appName)

	runErr := g.Wait()
	_ = shutdownMetrics(context.Background())
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "xcpdemo: %v\n", runErr)
		return 1
	}

	fmt.Println("xcpdemo: shut down cleanly")
	return 0
}

func runTransport(ctx context.Context, tl xcp.TransportLayer, server *transport.Server, addr net.IP, port uint16) error {
	if tl == xcp.TransportTCP {
		return server.ServeTCP(ctx, addr, port)
	}
	return server.ServeUDP(ctx, addr, port)
}

// broadcastSampler adapts transport.Server.Broadcast to the daq.Sampler
// interface DaqEvent.Trigger expects.
type broadcastSampler struct {
	server *transport.Server
}

func (s broadcastSampler) Sample(eventID uint16, base []byte) {
	s.server.Broadcast(eventID, base)
}

// triggerLoop periodically captures a synthetic sine signal, scaled by the
// calibration segment's live gain/offset, and fires the event - standing in
// for an application's own measurement loop.
func triggerLoop(ctx context.Context, server *transport.Server, metrics *xcpmetrics.Metrics, cal *calseg.CalSeg[calParams], event *daq.DaqEvent, offset int16, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	sampler := broadcastSampler{server: server}
	var buf [4]byte
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			params := cal.ReadLock().Value()
			v := params.Offset + params.Gain*float32(math.Sin(float64(now.UnixNano())/1e9))
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))

			event.Capture(buf[:], offset)
			start := time.Now()
			event.Trigger(sampler)
			metrics.RecordTrigger(ctx, "main_loop", time.Since(start).Seconds())
		}
	}
}

func parseLogLevel(s string) xcp.LogLevel {
	switch s {
	case "debug":
		return xcp.LogDebug
	case "off":
		return xcp.LogOff
	default:
		return xcp.LogInfo
	}
}
