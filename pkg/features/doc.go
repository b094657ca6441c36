// Package features holds the client-side behaviors of an optilist page.
//
//   - hooks: binds named behaviors to elements marked with data-hook and
//     routes element-dispatched calls to them
//   - optimistic: the add-item form that shows new items as pending rows
//     until the server confirms them
//
// Each subsystem is in its own sub-package.
package features
