package optimistic

import (
	"github.com/vango-dev/optilist/pkg/features/hooks"
	. "github.com/vango-dev/optilist/pkg/vdom"
)

// MarkupConfig describes an add-item form.
type MarkupConfig struct {
	// ID is the id of the form root. Default: "item-add".
	ID string

	// InsertInto is the id of the list pending items go to.
	InsertInto string

	// SubmitTo is the create command target. Default: "lists/" followed by
	// the container id.
	SubmitTo string

	// OnDismiss is an extra command run after the form closes.
	OnDismiss string

	// StaleAfter is a duration string such as "10s".
	StaleAfter string

	// AddLabel is the add button text. Default: "Add item".
	AddLabel string

	// Placeholder is the input placeholder.
	Placeholder string

	// Open renders the form open instead of the add button.
	Open bool
}

// Markup returns an add-item form:
//
//	<div id="item-add" data-hook="ItemAdd:{...}">
//	  <button type="button" data-ref="button">Add item</button>
//	  <form data-ref="form" hidden>
//	    <input type="text" name="title" data-ref="input">
//	  </form>
//	  <template data-ref="template">
//	    <li class="item"><input type="text" readonly data-ref="input"></li>
//	  </template>
//	</div>
func Markup(cfg MarkupConfig) *VNode {
	if cfg.ID == "" {
		cfg.ID = "item-add"
	}
	if cfg.AddLabel == "" {
		cfg.AddLabel = "Add item"
	}

	config := map[string]any{}
	for k, v := range map[string]string{
		"insertInto": cfg.InsertInto,
		"submitTo":   cfg.SubmitTo,
		"onDismiss":  cfg.OnDismiss,
		"staleAfter": cfg.StaleAfter,
	} {
		if v != "" {
			config[k] = v
		}
	}

	buttonAttrs := []Attr{Type("button"), Ref("button"), Class("item-add")}
	formAttrs := []Attr{Ref("form")}
	if cfg.Open {
		buttonAttrs = append(buttonAttrs, Hidden())
	} else {
		formAttrs = append(formAttrs, Hidden())
	}
	inputAttrs := []Attr{Type("text"), Name("title"), Ref("input"), Autocomplete("off")}
	if cfg.Placeholder != "" {
		inputAttrs = append(inputAttrs, Placeholder(cfg.Placeholder))
	}

	return Div(
		ID(cfg.ID),
		hooks.Hook(HookName, config),
		Button(buttonAttrs, Text(cfg.AddLabel)),
		Form(formAttrs, Input(inputAttrs)),
		Template(Ref("template"),
			Li(Class("item"),
				Input(Type("text"), Readonly(), Ref(TextSlotRef)),
			),
		),
	)
}

// Item returns the server-rendered list item for a created title.
func Item(id, title string) *VNode {
	return Li(ID(id), Class("item"), Text(title))
}

// List returns the target list with its items.
func List(id string, items ...*VNode) *VNode {
	return Ul(ID(id), Class("items"), items)
}
