package errors

import "sort"

// Template defines a registered error code.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// Configuration (E100-E199)
	"E101": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No optilist.json, optilist.yaml or optilist.yml was found.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Config parse failed",
		Detail:   "The configuration file is not valid JSON or YAML.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid server address",
		Detail:   "The server address must be host:port.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Invalid duration",
		Detail:   "Durations use Go syntax such as \"500ms\", \"10s\" or \"1m\".",
	},
	"E105": {
		Category: CategoryConfig,
		Message:  "Unknown store driver",
		Detail:   "The store driver must be \"memory\" or \"sqlite\".",
	},
	"E106": {
		Category: CategoryConfig,
		Message:  "Invalid log setting",
		Detail:   "The log level must be debug, info, warn or error and the format text or json.",
	},
	"E107": {
		Category: CategoryConfig,
		Message:  "Invalid metrics path",
		Detail:   "The metrics path must start with \"/\".",
	},
	"E108": {
		Category: CategoryConfig,
		Message:  "Unsupported config format",
		Detail:   "Config files must end in .json, .yaml or .yml.",
	},

	// Command line (E200-E299)
	"E201": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The server could not start or stopped with an error.",
	},
	"E202": {
		Category: CategoryCLI,
		Message:  "Cannot connect to server",
		Detail:   "The WebSocket connection to the server could not be opened.",
	},
	"E203": {
		Category: CategoryCLI,
		Message:  "Items not confirmed",
		Detail:   "Some submitted items were still pending when the wait ended.",
	},

	// Storage (E300-E399)
	"E301": {
		Category: CategoryStorage,
		Message:  "Store open failed",
		Detail:   "The item store could not be opened or migrated.",
	},
}

// Codes returns all registered codes, sorted.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for a code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds or replaces a template.
func Register(code string, t Template) {
	registry[code] = t
}
