package di

import (
	"context"
	"net/http"

	"github.com/LeJamon/goickb/internal/bot"
	"github.com/LeJamon/goickb/internal/config"
	"github.com/LeJamon/goickb/internal/core/dao"
	"github.com/LeJamon/goickb/internal/core/ickb"
	"github.com/LeJamon/goickb/internal/core/order"
	"github.com/LeJamon/goickb/internal/core/scripts"
	"github.com/LeJamon/goickb/internal/core/tx"
	"github.com/LeJamon/goickb/internal/log"
	"github.com/LeJamon/goickb/internal/rpc"
	"github.com/LeJamon/goickb/internal/signer"
	"github.com/LeJamon/goickb/internal/storage/execlog"
	"github.com/LeJamon/goickb/internal/storage/headerstore"
)

// Provider configures and registers services in the container.
type Provider struct {
	container *Container
	config    *config.Config
}

// NewProvider creates a new service provider.
func NewProvider(container *Container, cfg *config.Config) *Provider {
	return &Provider{
		container: container,
		config:    cfg,
	}
}

// RegisterAll registers all services. Nothing is built until first use, so
// read-only commands never touch the key or the execution log.
func (p *Provider) RegisterAll() error {
	p.container.Register(ServiceConfig, p.config)

	p.registerDiagnosticsBuilders()
	p.registerStorageBuilders()
	p.registerLedgerBuilders()
	p.registerProtocolBuilders()
	p.registerBotBuilders()

	return nil
}

func (p *Provider) registerDiagnosticsBuilders() {
	p.container.RegisterBuilder(ServiceLogger, func(c *Container) (interface{}, error) {
		return log.NewDefaultLogger(p.config.Log.Format, p.config.Log.Level)
	})

	p.container.RegisterBuilder(ServiceMetrics, func(c *Container) (interface{}, error) {
		if !p.config.Metrics.IsEnabled() {
			return bot.NopMetrics(), nil
		}
		return bot.PrometheusMetrics(p.config.Metrics.Namespace, "network", p.config.Network), nil
	})
}

// registerStorageBuilders registers storage service builders.
func (p *Provider) registerStorageBuilders() {
	p.container.RegisterBuilder(ServiceHeaderStore, func(c *Container) (interface{}, error) {
		if !p.config.Storage.HasHeaderStore() {
			return nil, nil // No header store configured
		}
		return headerstore.Open(p.config.Storage.HeaderStorePath, headerstore.WithCompressor(p.config.Storage.Compression))
	})

	p.container.RegisterBuilder(ServiceExecLog, func(c *Container) (interface{}, error) {
		if !p.config.Storage.HasExecLog() {
			return nil, nil // No execution log configured
		}
		return execlog.Open(context.Background(), p.config.Storage.ExecLogPath)
	})
}

// registerLedgerBuilders registers the node client.
func (p *Provider) registerLedgerBuilders() {
	p.container.RegisterBuilder(ServiceRPCClient, func(c *Container) (interface{}, error) {
		logger, err := Resolve[log.Logger](c, ServiceLogger)
		if err != nil {
			return nil, err
		}
		store, err := Resolve[*headerstore.Store](c, ServiceHeaderStore)
		if err != nil {
			return nil, err
		}
		rc := p.config.RPC
		inner := rpc.NewClient(rc.URL,
			rpc.WithHTTPClient(&http.Client{Timeout: rc.Timeout}),
			rpc.WithRateLimit(rc.RequestsPerSecond, rc.Burst),
			rpc.WithClientLogger(logger.With("module", "rpc")),
		)
		return rpc.NewCachedClient(inner, rpc.CacheConfig{Size: rc.CacheSize, Finality: rc.Finality, Store: store})
	})
}

// registerProtocolBuilders registers the script deployment and the managers
// building on it.
func (p *Provider) registerProtocolBuilders() {
	p.container.RegisterBuilder(ServiceDeployment, func(c *Container) (interface{}, error) {
		return p.config.Deployment()
	})

	p.container.RegisterBuilder(ServiceDAO, func(c *Container) (interface{}, error) {
		d, err := Resolve[scripts.Deployment](c, ServiceDeployment)
		if err != nil {
			return nil, err
		}
		return dao.NewManager(d.DAO, dao.WithReadyWindow(p.config.Bot.ReadyWindowEpochs)), nil
	})

	p.container.RegisterBuilder(ServiceIckb, func(c *Container) (interface{}, error) {
		d, err := Resolve[scripts.Deployment](c, ServiceDeployment)
		if err != nil {
			return nil, err
		}
		dm, err := Resolve[*dao.Manager](c, ServiceDAO)
		if err != nil {
			return nil, err
		}
		return ickb.NewManager(d, dm), nil
	})

	p.container.RegisterBuilder(ServiceOrders, func(c *Container) (interface{}, error) {
		d, err := Resolve[scripts.Deployment](c, ServiceDeployment)
		if err != nil {
			return nil, err
		}
		im, err := Resolve[*ickb.Manager](c, ServiceIckb)
		if err != nil {
			return nil, err
		}
		return order.NewManager(d.Order, im.Handler()), nil
	})
}

func (p *Provider) registerBotBuilders() {
	p.container.RegisterBuilder(ServiceSigner, func(c *Container) (interface{}, error) {
		d, err := Resolve[scripts.Deployment](c, ServiceDeployment)
		if err != nil {
			return nil, err
		}
		key, err := p.config.Bot.SecretKey()
		if err != nil {
			return nil, err
		}
		s, err := signer.New(key, d.Secp256k1)
		if err != nil {
			key.Close()
			return nil, err
		}
		return s, nil
	})

	p.container.RegisterBuilder(ServiceBot, func(c *Container) (interface{}, error) {
		botConfig, err := p.config.Bot.Options()
		if err != nil {
			return nil, err
		}
		client, err := p.GetClient()
		if err != nil {
			return nil, err
		}
		s, err := Resolve[*signer.Secp256k1](c, ServiceSigner)
		if err != nil {
			return nil, err
		}
		im, err := Resolve[*ickb.Manager](c, ServiceIckb)
		if err != nil {
			return nil, err
		}
		om, err := Resolve[*order.Manager](c, ServiceOrders)
		if err != nil {
			return nil, err
		}
		logger, err := Resolve[log.Logger](c, ServiceLogger)
		if err != nil {
			return nil, err
		}
		metrics, err := Resolve[*bot.Metrics](c, ServiceMetrics)
		if err != nil {
			return nil, err
		}
		opts := []bot.BotOption{
			bot.WithLogger(logger.With("module", "bot")),
			bot.WithMetrics(metrics),
		}
		el, err := Resolve[*execlog.Store](c, ServiceExecLog)
		if err != nil {
			return nil, err
		}
		if el != nil {
			opts = append(opts, bot.WithRecorder(el))
		}
		return bot.New(client, s, im, om, botConfig, opts...)
	})
}

// GetClient returns the node client from the container.
func (p *Provider) GetClient() (tx.Client, error) {
	return Resolve[*rpc.CachedClient](p.container, ServiceRPCClient)
}

// GetBot returns the bot from the container.
func (p *Provider) GetBot() (*bot.Bot, error) {
	return Resolve[*bot.Bot](p.container, ServiceBot)
}

// GetConfig returns the configuration from the container.
func (p *Provider) GetConfig() *config.Config {
	return p.config
}
