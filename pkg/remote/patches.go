package remote

import (
	"errors"
	"fmt"

	"github.com/vango-dev/optilist/pkg/dom"
	"github.com/vango-dev/optilist/pkg/protocol"
	"github.com/vango-dev/optilist/pkg/vdom"
)

// ItemRenderer renders the server item with id and text.
type ItemRenderer func(id, text string) *vdom.VNode

// ApplyPatches applies server patches to doc. It must run on the document
// loop. An insert for an id already present updates its text, so a patch
// that arrives twice leaves one item. Patches that name a missing element
// are skipped and reported in the returned error.
func ApplyPatches(doc *dom.Document, patches []protocol.Patch, render ItemRenderer) error {
	var errs []error
	doc.Turn(func() {
		for _, p := range patches {
			if err := applyPatch(doc, p, render); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func applyPatch(doc *dom.Document, p protocol.Patch, render ItemRenderer) error {
	switch p.Op {
	case protocol.PatchInsert:
		if el := doc.GetElementByID(p.ID); el != nil {
			el.SetTextContent(p.Text)
			return nil
		}
		container := doc.GetElementByID(p.Container)
		if container == nil {
			return fmt.Errorf("remote: insert %s: container %q not found", p.ID, p.Container)
		}
		_, err := doc.Mount(container, render(p.ID, p.Text))
		return err

	case protocol.PatchRemove:
		if el := doc.GetElementByID(p.ID); el != nil {
			el.Remove()
		}
		return nil

	case protocol.PatchSetText:
		el := doc.GetElementByID(p.ID)
		if el == nil {
			return fmt.Errorf("remote: set text: item %q not found", p.ID)
		}
		el.SetTextContent(p.Text)
		return nil
	}
	return fmt.Errorf("remote: unknown patch op %v", p.Op)
}

// PatchApplier returns a patch handler for WithPatchHandler that applies
// patches to doc and logs failures.
func PatchApplier(doc *dom.Document, render ItemRenderer) func([]protocol.Patch) {
	return func(patches []protocol.Patch) {
		if err := ApplyPatches(doc, patches, render); err != nil {
			doc.Logger().Warn("patches not fully applied", "error", err)
		}
	}
}
