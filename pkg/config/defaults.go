package config

import "time"

// ApplyDefaults fills unset fields with production defaults. Called by
// Load before validation; callers constructing a Config directly should
// call it themselves.
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "polygate"
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		c.Metrics.ListenAddress = ":9090"
	}

	if c.Resilience.MaxRetries == 0 {
		c.Resilience.MaxRetries = 3
	}
	if c.Resilience.InitialDelay == 0 {
		c.Resilience.InitialDelay = time.Second
	}
	if c.Resilience.MaxDelay == 0 {
		c.Resilience.MaxDelay = 30 * time.Second
	}
	if c.Resilience.RequestTimeout == 0 {
		c.Resilience.RequestTimeout = 60 * time.Second
	}

	if c.Pool.MaxConnections == 0 {
		c.Pool.MaxConnections = 10
	}
	if c.Pool.MaxIdle == 0 {
		c.Pool.MaxIdle = 5 * time.Minute
	}
	if c.Pool.MaxAge == 0 {
		c.Pool.MaxAge = 30 * time.Minute
	}
	if c.Pool.ConnectTimeout == 0 {
		c.Pool.ConnectTimeout = 10 * time.Second
	}
	if c.Pool.CleanupInterval == 0 {
		c.Pool.CleanupInterval = time.Minute
	}

	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = time.Hour
	}
	if c.Cache.MaxItems == 0 {
		c.Cache.MaxItems = 10000
	}
	if c.Cache.MaintenanceSchedule == "" {
		c.Cache.MaintenanceSchedule = "*/10 * * * *"
	}

	if c.Routing.Strategy == "" {
		c.Routing.Strategy = "latency"
	}

	for i := range c.Deployments {
		if c.Deployments[i].ProviderModel == "" {
			c.Deployments[i].ProviderModel = c.Deployments[i].Model
		}
		if c.Deployments[i].Quality == 0 {
			c.Deployments[i].Quality = 50
		}
	}

	for model, entry := range c.Pricing {
		if entry.Pricing == "" {
			entry.Pricing = "standard"
			c.Pricing[model] = entry
		}
	}
}
