package main

import (
	"sync"

	"github.com/kaymio/productcast/internal/state"
	"github.com/kaymio/productcast/service"
	"github.com/kaymio/productcast/storage"
)

type commandContext struct {
	load func() (*service.Config, error)

	configOnce sync.Once
	config     *service.Config
	configErr  error

	clientsOnce sync.Once
	clients     *service.Clients
}

// newCommandContext uses service.LoadConfig when load is nil.
func newCommandContext(load func() (*service.Config, error)) *commandContext {
	if load == nil {
		load = service.LoadConfig
	}
	return &commandContext{load: load}
}

func (c *commandContext) ensureConfig() (*service.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = c.load()
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureClients() (*service.Clients, error) {
	config, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.clientsOnce.Do(func() {
		c.clients = service.NewClients(config)
	})
	return c.clients, nil
}

func (c *commandContext) stateStore() (*state.Store, error) {
	config, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return state.NewStore(config.Storage.StateFile)
}

func (c *commandContext) withHistory(fn func(*storage.History) error) error {
	config, err := c.ensureConfig()
	if err != nil {
		return err
	}
	db, err := storage.New(config.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(storage.NewHistory(db.Queries))
}
