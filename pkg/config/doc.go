// Package config defines the gateway's YAML configuration: providers
// and credentials, deployment aliases, routing, resilience, caching,
// pricing tables, and observability. Loading applies defaults and
// validates; Watch re-loads the file on change so pricing and cache
// tuning can be updated without a restart.
package config
