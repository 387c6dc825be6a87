package app

import (
	"context"

	"github.com/vk/valuegraph/internal/ctxlog"
	"github.com/vk/valuegraph/internal/publish"
)

// publish sends one document per build when a publish URL is configured.
func (a *App) publish(ctx context.Context, builds []Build) error {
	logger := ctxlog.FromContext(ctx)
	p := a.publisher
	if p == nil {
		if a.config.PublishURL == "" {
			return nil
		}
		dialed, err := publish.DialSocketIO(ctx, publish.SocketIOOptions{
			URL:       a.config.PublishURL,
			Namespace: a.config.PublishNamespace,
		})
		if err != nil {
			return err
		}
		p = dialed
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn("Closing publisher failed.", "error", err)
		}
	}()

	for _, b := range builds {
		if err := p.Publish(ctx, publish.EventGraphBuilt, newDocument(b)); err != nil {
			return err
		}
	}
	logger.Info("Builds published.", "count", len(builds))
	return nil
}
