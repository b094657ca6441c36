package hooks

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/vango-dev/optilist/pkg/vdom"
)

// HookAttr is the attribute that declares an element's behaviour.
const HookAttr = "data-hook"

// Hook creates a hook attribute for element.
// The config is serialized to JSON and packed into the attribute value.
// Format: "HookName:{\"config\":\"values\"}"
func Hook(name string, config any) vdom.Attr {
	value := name
	if config != nil {
		b, _ := json.Marshal(config)
		value = fmt.Sprintf("%s:%s", name, string(b))
	}
	return vdom.Attr{
		Key:   HookAttr,
		Value: value,
	}
}

// ParseHook splits a hook attribute value into name and config.
func ParseHook(value string) (name string, config map[string]any, err error) {
	name, raw, found := strings.Cut(value, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, fmt.Errorf("hooks: empty hook name in %q", value)
	}
	if !found || strings.TrimSpace(raw) == "" {
		return name, map[string]any{}, nil
	}
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		return name, nil, fmt.Errorf("hooks: hook %s config: %w", name, err)
	}
	if config == nil {
		config = map[string]any{}
	}
	return name, config, nil
}

// HookEvent is the payload handed to a callback: the method name and the
// extra data of the call.
type HookEvent struct {
	Name string
	Data map[string]any
}

// Accessors

func (e HookEvent) String(key string) string {
	if v, ok := e.Data[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func (e HookEvent) Int(key string) int {
	if v, ok := e.Data[key]; ok {
		switch val := v.(type) {
		case int:
			return val
		case float64:
			return int(val)
		case string:
			i, _ := strconv.Atoi(val)
			return i
		}
	}
	return 0
}

func (e HookEvent) Float(key string) float64 {
	if v, ok := e.Data[key]; ok {
		switch val := v.(type) {
		case float64:
			return val
		case int:
			return float64(val)
		case string:
			f, _ := strconv.ParseFloat(val, 64)
			return f
		}
	}
	return 0.0
}

func (e HookEvent) Bool(key string) bool {
	if v, ok := e.Data[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
		s := fmt.Sprintf("%v", v)
		b, _ := strconv.ParseBool(s)
		return b
	}
	return false
}

func (e HookEvent) Strings(key string) []string {
	if v, ok := e.Data[key]; ok {
		// Handle []interface{} from JSON
		if list, ok := v.([]any); ok {
			strs := make([]string, len(list))
			for i, item := range list {
				strs[i] = fmt.Sprintf("%v", item)
			}
			return strs
		}
		if list, ok := v.([]string); ok {
			return list
		}
	}
	return nil
}

func (e HookEvent) Raw(key string) any {
	return e.Data[key]
}
