package ratelimit

import "strings"

// unlimited is returned for the health check
var unlimited = &EndpointConfig{Pattern: "/health", Method: "GET"}

// MatchEndpoint returns the config whose pattern and method match the request, or nil.
// A "{name}" segment in a pattern matches any single non-empty path segment.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == "GET" {
		return unlimited
	}

	segments := splitPath(path)
	for i := range configs {
		cfg := &configs[i]
		if cfg.Method == method && matchSegments(splitPath(cfg.Pattern), segments) {
			return cfg
		}
	}
	return nil
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, seg := range pattern {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if path[i] == "" {
				return false
			}
			continue
		}
		if seg != path[i] {
			return false
		}
	}
	return true
}
