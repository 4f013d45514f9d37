package monitor

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"
)

// Prober checks whether an address answers
type Prober interface {
	Probe(ctx context.Context, ip string) ProbeResult
}

// ProbeResult is the outcome of one reachability check
type ProbeResult struct {
	Reachable bool
	Latency   time.Duration
	Port      int
	Err       error
}

// TCPProber dials a list of TCP ports and stops at the first answer.
// A refused connection still proves the host is up.
type TCPProber struct {
	Ports   []int
	Timeout time.Duration
}

// Probe implements Prober
func (p TCPProber) Probe(ctx context.Context, ip string) ProbeResult {
	var lastErr error
	for _, port := range p.Ports {
		if ctx.Err() != nil {
			return ProbeResult{Err: ctx.Err()}
		}
		addr := net.JoinHostPort(ip, strconv.Itoa(port))
		start := time.Now()

		dialer := net.Dialer{Timeout: p.Timeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			return ProbeResult{Reachable: true, Latency: time.Since(start), Port: port}
		}
		if errors.Is(err, syscall.ECONNREFUSED) {
			return ProbeResult{Reachable: true, Latency: time.Since(start), Port: port}
		}
		lastErr = err
	}
	return ProbeResult{Err: lastErr}
}
