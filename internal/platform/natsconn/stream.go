package natsconn

import (
	"errors"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// EnsureStream creates cfg's stream, or updates it in place when a stream
// with the same name already exists.
func EnsureStream(js nats.JetStreamContext, cfg *nats.StreamConfig, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	_, err := js.AddStream(cfg)
	if err == nil {
		log.Info("jetstream: stream created", zap.String("stream", cfg.Name))
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return err
	}
	if _, err := js.UpdateStream(cfg); err != nil {
		log.Warn("jetstream: stream update failed (may already be up to date)",
			zap.String("stream", cfg.Name), zap.Error(err))
	}
	return nil
}
