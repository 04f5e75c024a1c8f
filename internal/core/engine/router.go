package engine

import (
	"fmt"
	"regexp"

	"github.com/tidwall/gjson"
)

// Router picks the first route whose matchers all accept the request body
type Router struct {
	routes   []Route
	matchers map[string][]compiledMatcher // routeID -> matchers
}

type compiledMatcher struct {
	path string
	re   *regexp.Regexp
}

// NewRouter creates a Router, compiling every matcher up front
func NewRouter(routes []Route) (*Router, error) {
	r := &Router{
		routes:   routes,
		matchers: make(map[string][]compiledMatcher),
	}

	for _, route := range routes {
		if route.ID == "" {
			return nil, fmt.Errorf("route without id")
		}
		if _, dup := r.matchers[route.ID]; dup {
			return nil, fmt.Errorf("duplicate route id %s", route.ID)
		}
		if route.URL == "" {
			return nil, fmt.Errorf("route %s has no url", route.ID)
		}

		routeMatchers := make([]compiledMatcher, 0, len(route.Matchers))
		for _, m := range route.Matchers {
			if m.Path == "" {
				return nil, fmt.Errorf("route %s has a matcher without path", route.ID)
			}
			re, err := regexp.Compile(m.Pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid regex pattern for route %s, path %s: %w", route.ID, m.Path, err)
			}
			routeMatchers = append(routeMatchers, compiledMatcher{path: m.Path, re: re})
		}
		r.matchers[route.ID] = routeMatchers
	}

	return r, nil
}

// FindRoute returns the first matching route, or nil
func (r *Router) FindRoute(body []byte) *Route {
	if !gjson.ValidBytes(body) {
		return nil
	}

	for i := range r.routes {
		route := &r.routes[i]
		if r.matches(route.ID, body) {
			return route
		}
	}
	return nil
}

// Match implements middlewares.RouteMatcher
func (r *Router) Match(body []byte) (string, string, bool) {
	route := r.FindRoute(body)
	if route == nil {
		return "", "", false
	}
	return route.ID, route.URL, true
}

// Routes returns the configured routes
func (r *Router) Routes() []Route {
	return r.routes
}

func (r *Router) matches(routeID string, body []byte) bool {
	for _, m := range r.matchers[routeID] {
		value := gjson.GetBytes(body, m.path)
		if !value.Exists() {
			return false
		}
		// non-string values are matched by their raw JSON text
		text := value.Raw
		if value.Type == gjson.String {
			text = value.String()
		}
		if !m.re.MatchString(text) {
			return false
		}
	}
	return true
}
