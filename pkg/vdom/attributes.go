package vdom

import (
	"fmt"
	"strings"
)

// RefAttr is the reference-tag attribute. Descendants carrying it are
// indexed by hooks.Bind.
const RefAttr = "data-ref"

// attr creates an Attr with the given key and value.
func attr(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Identity attributes

// ID sets the id attribute.
func ID(id string) Attr { return attr("id", id) }

// Class sets the class attribute, joining multiple classes with spaces.
func Class(classes ...string) Attr { return attr("class", strings.Join(classes, " ")) }

// Key sets the reconciliation key.
func Key(key string) Attr { return attr("key", key) }

// Data creates a data-* attribute.
// Example: Data("id", "123") → data-id="123"
func Data(key, value string) Attr { return attr("data-"+key, value) }

// Ref tags an element so it can be looked up by name after binding.
func Ref(name string) Attr { return attr(RefAttr, name) }

// Attrf sets an arbitrary attribute with a formatted value.
func Attrf(key, format string, args ...any) Attr {
	return attr(key, fmt.Sprintf(format, args...))
}

// Custom sets an arbitrary attribute.
func Custom(key string, value any) Attr { return attr(key, value) }

// Global attributes

// Hidden sets the hidden attribute.
func Hidden() Attr { return attr("hidden", true) }

// AriaBusy sets the aria-busy attribute.
func AriaBusy(busy bool) Attr { return attr("aria-busy", busy) }

// AriaLabel sets the aria-label attribute.
func AriaLabel(label string) Attr { return attr("aria-label", label) }

// Form attributes

// Name sets the name attribute.
func Name(name string) Attr { return attr("name", name) }

// Value sets the value attribute.
func Value(value string) Attr { return attr("value", value) }

// Type sets the type attribute.
func Type(t string) Attr { return attr("type", t) }

// Placeholder sets the placeholder attribute.
func Placeholder(text string) Attr { return attr("placeholder", text) }

// Disabled sets the disabled attribute.
func Disabled() Attr { return attr("disabled", true) }

// Readonly sets the readonly attribute.
func Readonly() Attr { return attr("readonly", true) }

// Autocomplete sets the autocomplete attribute.
func Autocomplete(value string) Attr { return attr("autocomplete", value) }

// FormatValue renders an attribute value as the string a document stores.
// Boolean attributes render as present ("") or absent (ok == false).
func FormatValue(v any) (s string, ok bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case bool:
		if !val {
			return "", false
		}
		return "", true
	case string:
		return val, true
	default:
		return fmt.Sprintf("%v", val), true
	}
}
