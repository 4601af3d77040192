// Package device delivers encoded slips to physical printers.
package device

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/aquamarinepk/aqm"
)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
)

// TCPSink sends raw printer bytes to networked ESC/POS printers, addressed
// by name through a fixed name-to-address table built at startup.
type TCPSink struct {
	addrs  map[string]string
	logger aqm.Logger
}

func NewTCPSink(addrs map[string]string, logger aqm.Logger) *TCPSink {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &TCPSink{addrs: addrs, logger: logger}
}

// Send opens a connection per slip, writes the full document and closes.
// Thermal printers hold no session state, so a connection per job keeps
// failure isolation simple.
func (s *TCPSink) Send(ctx context.Context, data []byte, printer string) error {
	addr, ok := s.addrs[printer]
	if !ok {
		return fmt.Errorf("printer %q is not configured", printer)
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("cannot reach printer %q at %s: %w", printer, addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("cannot set write deadline for %q: %w", printer, err)
	}

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("cannot write to printer %q: %w", printer, err)
	}
	return nil
}

// Printers lists the configured printer names, sorted, for diagnostics.
func (s *TCPSink) Printers() []string {
	names := make([]string, 0, len(s.addrs))
	for name := range s.addrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
