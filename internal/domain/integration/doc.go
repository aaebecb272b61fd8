// Package integration contains the domain model for external advertising
// platform integrations: tenant connections, authorization credentials,
// webhook subscriptions, and the AdPlatform port interface implemented by
// infrastructure adapters.
package integration
