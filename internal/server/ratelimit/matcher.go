package ratelimit

import "strings"

// MatchEndpoint resolves the budget for a request path and method. Exact
// paths win over prefix entries (those ending in "/"), so a specific route
// such as the activate endpoint can carry a tighter budget than its
// collection prefix. Returns nil when only the global default applies.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	// Devices poll the health endpoint freely.
	if path == "/health" && method == "GET" {
		return &EndpointConfig{}
	}

	for i := range configs {
		c := &configs[i]
		if c.Path == path && c.Method == method {
			return c
		}
	}

	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			return c
		}
	}

	return nil
}
