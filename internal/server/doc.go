// Package server provides an HTTP server for exposing Prometheus metrics.
//
// Available endpoints:
//   - /           : Status page (mode, last tick, per-collector gauges and last result)
//   - /metrics    : Prometheus metrics from the metric store
//   - /health     : Liveness check (always returns 200)
//   - /ready      : Readiness check (200 once a tick has had a successful collector)
//   - /fortune    : Random fortune, only when fortune.enabled is set
//
// The server is configured with sensible timeout defaults:
//   - Read timeout: 15 seconds
//   - Write timeout: 15 seconds
//   - Idle timeout: 60 seconds
//
// Example usage:
//
//	srv, err := server.NewServer(cfg, registry, store.Handler(), log)
//	if err != nil {
//		return err
//	}
//
//	go func() {
//		if err := srv.Start(); err != nil {
//			log.Error("Server error", "error", err)
//		}
//	}()
//
//	<-ctx.Done()
//	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	_ = srv.Shutdown(shutdownCtx)
package server
