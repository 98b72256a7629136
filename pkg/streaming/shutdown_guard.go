package streaming

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// ShutdownGuard clears a shared is_running flag on SIGINT/SIGTERM, giving
// every replay driver sharing that flag a chance to finish its current
// activation, release all outstanding capabilities, and exit cleanly
// instead of being killed mid-frame.
//
// Create one via NewShutdownGuard and defer its Close method.
type ShutdownGuard struct {
	isRunning *atomic.Bool
	logger    *slog.Logger
	sigCh     chan os.Signal
	once      sync.Once
}

// NewShutdownGuard registers SIGINT/SIGTERM handlers that flip isRunning to
// false. The caller must defer Close() to deregister the signal handler.
func NewShutdownGuard(isRunning *atomic.Bool, logger *slog.Logger) *ShutdownGuard {
	g := &ShutdownGuard{
		isRunning: isRunning,
		logger:    logger,
		sigCh:     make(chan os.Signal, 1),
	}

	signal.Notify(g.sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig, ok := <-g.sigCh
		if !ok {
			return
		}

		g.logger.Warn("streaming: received signal, stopping replay drivers", "signal", sig.String())
		g.stop()
	}()

	return g
}

// Close stops the guarded flag (if not already stopped) and deregisters
// the signal handler.
func (g *ShutdownGuard) Close() {
	g.stop()
	signal.Stop(g.sigCh)
	close(g.sigCh)
}

func (g *ShutdownGuard) stop() {
	g.once.Do(func() {
		g.isRunning.Store(false)
	})
}
