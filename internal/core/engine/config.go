package engine

// EngineConfig is the declarative form of a middleware chain
type EngineConfig struct {
	// Middlewares are applied in order, the first one outermost
	Middlewares []Step `mapstructure:"middlewares"`
	// Routes feed the "router" step
	Routes []Route `mapstructure:"routes"`
}

// Step configures a single middleware in the chain
type Step struct {
	// Type selects the middleware, see the StepType constants
	Type string `mapstructure:"type"`
	// Config contains type-specific configuration
	Config map[string]interface{} `mapstructure:"config"`
}

// Route sends matching requests to a fixed URL
type Route struct {
	// ID is the unique identifier for this route
	ID string `mapstructure:"id"`
	// Matchers must all accept the request body
	Matchers []Matcher `mapstructure:"matchers"`
	// URL is the endpoint for matching requests
	URL string `mapstructure:"url"`
}

// Matcher tests the value at a gjson path of the request body against a regex.
// It is a list entry rather than a map key because config keys are case-folded.
type Matcher struct {
	// Path is a gjson path, e.g. "operationName" or "variables.version"
	Path    string `mapstructure:"path"`
	Pattern string `mapstructure:"pattern"`
}

// StepType constants
const (
	StepTypeLogger   = "logger"
	StepTypeURL      = "url"
	StepTypeRouter   = "router"
	StepTypeHeaders  = "headers"
	StepTypeAuth     = "auth"
	StepTypeValidate = "validate"
	StepTypeRetry    = "retry"
	StepTypeMask     = "mask"
	StepTypeTracing  = "tracing"
	StepTypeTiming   = "timing"
)
