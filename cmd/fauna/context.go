package main

import (
	"strings"
	"sync"

	"fauna/internal/api"
	"fauna/internal/config"
	"fauna/internal/queue"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) apiBase() string {
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		return normalizeBase(*c.apiFlag)
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		if bind := strings.TrimSpace(cfg.Paths.APIBind); bind != "" {
			return normalizeBase(bind)
		}
	}
	return ""
}

func normalizeBase(addr string) string {
	addr = strings.TrimRight(strings.TrimSpace(addr), "/")
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}

// withQueueAPI runs fn against the daemon API when one is reachable, and
// falls back to direct store access otherwise. Maintenance keeps working
// while the daemon is down.
func (c *commandContext) withQueueAPI(fn func(queueAPI) error) error {
	if base := c.apiBase(); base != "" {
		client := newDaemonClient(base)
		if client.Reachable() {
			return fn(&queueHTTPAdapter{client: client})
		}
	}

	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(&queueStoreAdapter{store: store, service: api.NewQueueService(store)})
}
