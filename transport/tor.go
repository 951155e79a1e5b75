package transport

import (
	"context"
	"fmt"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TorController asks a Tor daemon for a fresh circuit through its control
// port. Paired with a socks5 proxy on the same daemon, a rotation gives
// the next request a new exit address.
type TorController struct {
	ControlAddr string
	Password    string
	// Settle is how long Rotate waits for the new circuit before returning.
	Settle time.Duration

	logger       *zap.Logger
	mu           sync.Mutex
	lastRotation time.Time
}

func NewTorController(controlAddr, password string, logger *zap.Logger) *TorController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TorController{
		ControlAddr: controlAddr,
		Password:    password,
		Settle:      2 * time.Second,
		logger:      logger,
	}
}

// Rotate sends SIGNAL NEWNYM. Calls are serialized.
func (tc *TorController) Rotate(ctx context.Context) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", tc.ControlAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to Tor control port: %w", err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(10 * time.Second)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set control connection deadline: %w", err)
	}

	tp := textproto.NewConn(conn)
	defer tp.Close()

	if err := command(tp, "AUTHENTICATE %s", strconv.Quote(tc.Password)); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	if err := command(tp, "SIGNAL NEWNYM"); err != nil {
		return fmt.Errorf("failed to send NEWNYM: %w", err)
	}
	if err := command(tp, "QUIT"); err != nil {
		tc.logger.Debug("tor control QUIT failed", zap.Error(err))
	}

	tc.lastRotation = time.Now()
	tc.logger.Info("tor circuit rotated", zap.String("control", tc.ControlAddr))

	if tc.Settle <= 0 {
		return nil
	}
	t := time.NewTimer(tc.Settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// LastRotation returns when the circuit was last rotated.
func (tc *TorController) LastRotation() time.Time {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.lastRotation
}

// command writes one control line and expects a "250" reply.
func command(tp *textproto.Conn, format string, args ...any) error {
	if err := tp.PrintfLine(format, args...); err != nil {
		return err
	}
	reply, err := tp.ReadLine()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(reply, "250") {
		return fmt.Errorf("unexpected reply %q", reply)
	}
	return nil
}
