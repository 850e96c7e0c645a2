package processor

import (
	"context"
	"log/slog"
	"time"
)

// runContinuousMode sends one reading per tick at RPS until Duration elapses.
func (p *Processor) runContinuousMode(ctx context.Context) error {
	rps, duration := p.cfg.RPS, p.cfg.Duration
	slog.Info("Starting continuous mode", "target_rps", rps, "duration", duration)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / rps))
	defer ticker.Stop()

	prog := newProgress()
	deadline := prog.start.Add(duration)

	for {
		select {
		case <-ctx.Done():
			slog.Warn("Continuous mode cancelled", "sent", prog.sent, "duration_requested", duration)
			return ctx.Err()
		case now := <-ticker.C:
			if now.After(deadline) {
				slog.Info("Duration reached", append(prog.attrs(), "target_rps", rps)...)
				return nil
			}
			if err := p.step(ctx, prog); err != nil {
				return err
			}
			if prog.due(progressLogInterval) {
				slog.Info("Progress update", append(prog.attrs(), "target_rps", rps)...)
			}
		}
	}
}
