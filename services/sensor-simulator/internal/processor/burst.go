package processor

import (
	"context"
	"log/slog"
)

// runBurstMode sends BurstSize readings back to back.
func (p *Processor) runBurstMode(ctx context.Context) error {
	total := p.cfg.BurstSize
	slog.Info("Starting burst mode", "total_readings", total)

	prog := newProgress()
	for prog.sent < total {
		if err := ctx.Err(); err != nil {
			slog.Warn("Burst mode cancelled", "sent", prog.sent, "requested", total)
			return err
		}
		if err := p.step(ctx, prog); err != nil {
			return err
		}
		if prog.sent%burstProgressInterval == 0 {
			slog.Info("Burst progress", append(prog.attrs(), "total", total)...)
		}
	}

	slog.Info("Burst mode completed", prog.attrs()...)
	return nil
}
