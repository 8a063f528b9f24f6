package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/listenupapp/artfetch/internal/config"
	"github.com/listenupapp/artfetch/internal/logger"
	"github.com/listenupapp/artfetch/internal/metrics"
	"github.com/listenupapp/artfetch/internal/provider"
	"github.com/listenupapp/artfetch/internal/provider/danbooru"
	"github.com/listenupapp/artfetch/internal/provider/gelbooru"
	"github.com/listenupapp/artfetch/internal/provider/safebooru"
	"github.com/listenupapp/artfetch/internal/safety"
)

// ProvideHTTPClient provides the shared outbound client.
func ProvideHTTPClient(i do.Injector) (*provider.HTTPClient, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := provider.NewHTTPClient(provider.ClientConfig{
		UserAgent: cfg.HTTP.UserAgent,
		Cooldown:  cfg.HTTP.Cooldown,
	}, log.Component("http"))

	for _, name := range cfg.EnabledProviders() {
		pc, _ := cfg.Providers.Get(name)
		client.Configure(name, provider.Endpoint{
			Timeout: pc.Timeout,
			RPS:     pc.RPS,
			Burst:   pc.Burst,
		})
	}
	return client, nil
}

// ProvideRegistry provides the enabled adapters in priority order.
func ProvideRegistry(i do.Injector) (*provider.Registry, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*provider.HTTPClient](i)
	guard := do.MustInvoke[*safety.Guard](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	registry, err := provider.NewRegistry()
	if err != nil {
		return nil, err
	}

	for _, name := range cfg.EnabledProviders() {
		pc, _ := cfg.Providers.Get(name)
		opts := provider.Options{
			BaseURL:      pc.BaseURL,
			Client:       client,
			Guard:        guard,
			Metrics:      m,
			Logger:       log.Component(name),
			MaxDenyTerms: pc.MaxDenyTerms,
		}

		var (
			p      provider.ContentProvider
			newErr error
		)
		switch name {
		case config.Danbooru:
			p, newErr = danbooru.New(opts)
		case config.Gelbooru:
			p, newErr = gelbooru.New(opts)
		case config.Safebooru:
			p, newErr = safebooru.New(opts)
		default:
			newErr = fmt.Errorf("unknown provider %q", name)
		}
		if newErr != nil {
			return nil, newErr
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	log.Info("Providers registered", "order", registry.Names())
	return registry, nil
}
