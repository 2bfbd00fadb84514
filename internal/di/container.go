// Package di wires the daemon's services from configuration.
package di

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// ErrServiceNotFound is returned for names with neither instance nor builder.
var ErrServiceNotFound = errors.New("service not found")

// Container is the dependency injection container.
// It manages service registration, lazy resolution and shutdown.
type Container struct {
	mu       sync.Mutex
	services map[string]interface{}
	builders map[string]Builder

	// built records resolution order so Close can release in reverse.
	built []string
}

// Builder is a function that creates a service instance.
type Builder func(c *Container) (interface{}, error)

// New creates a new dependency injection container.
func New() *Container {
	return &Container{
		services: make(map[string]interface{}),
		builders: make(map[string]Builder),
	}
}

// Register registers a service instance.
func (c *Container) Register(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = service
}

// RegisterBuilder registers a builder function for lazy instantiation.
func (c *Container) RegisterBuilder(name string, builder Builder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builders[name] = builder
}

// Get retrieves a service by name, building it on first use. Builders may
// resolve their own dependencies through the container.
func (c *Container) Get(name string) (interface{}, error) {
	c.mu.Lock()
	if service, exists := c.services[name]; exists {
		c.mu.Unlock()
		return service, nil
	}
	builder, hasBuilder := c.builders[name]
	c.mu.Unlock()
	if !hasBuilder {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}

	service, err := builder(c)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another caller may have built it meanwhile; keep the first.
	if existing, exists := c.services[name]; exists {
		if closer, ok := service.(io.Closer); ok && service != existing {
			closer.Close()
		}
		return existing, nil
	}
	c.services[name] = service
	c.built = append(c.built, name)
	return service, nil
}

// Resolve retrieves a service and asserts its type.
func Resolve[T any](c *Container, name string) (T, error) {
	var zero T
	service, err := c.Get(name)
	if err != nil {
		return zero, err
	}
	if service == nil {
		return zero, nil
	}
	typed, ok := service.(T)
	if !ok {
		return zero, fmt.Errorf("service %s is %T, not %T", name, service, zero)
	}
	return typed, nil
}

// Has checks if a service is registered.
func (c *Container) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.services[name]
	if exists {
		return true
	}
	_, exists = c.builders[name]
	return exists
}

// ServiceNames returns all registered service names, sorted.
func (c *Container) ServiceNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make(map[string]bool)
	for name := range c.services {
		names[name] = true
	}
	for name := range c.builders {
		names[name] = true
	}

	result := make([]string, 0, len(names))
	for name := range names {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Close closes every built service that has a Close method, newest first.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for i := len(c.built) - 1; i >= 0; i-- {
		name := c.built[i]
		switch service := c.services[name].(type) {
		case io.Closer:
			if err := service.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
			}
		case interface{ Close() }:
			service.Close()
		}
		delete(c.services, name)
	}
	c.built = nil
	return errors.Join(errs...)
}

// Service names constants for type-safe access.
const (
	ServiceConfig      = "config"
	ServiceLogger      = "logger"
	ServiceHeaderStore = "storage.headers"
	ServiceExecLog     = "storage.execlog"
	ServiceRPCClient   = "rpc.client"
	ServiceDeployment  = "scripts.deployment"
	ServiceDAO         = "dao.manager"
	ServiceIckb        = "ickb.manager"
	ServiceOrders      = "order.manager"
	ServiceSigner      = "signer"
	ServiceMetrics     = "bot.metrics"
	ServiceBot         = "bot"
)
