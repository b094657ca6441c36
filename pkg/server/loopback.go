package server

import (
	"context"

	"github.com/vango-dev/optilist/pkg/dom"
	"github.com/vango-dev/optilist/pkg/protocol"
	"github.com/vango-dev/optilist/pkg/remote"
)

// LoopbackHandler returns a remote.Handler that runs pushes through the
// server's middleware and handlers in-process. Emitted patches are applied
// to doc before the call is acknowledged, as they would be over a
// connection.
//
// A handler error leaves the call unacknowledged. Patches that cannot be
// applied are logged and the call is still acknowledged, since the item was
// stored; a WebSocket client does the same.
func (s *Server) LoopbackHandler(doc *dom.Document, render remote.ItemRenderer) remote.Handler {
	return func(ctx context.Context, call remote.Call) error {
		sctx := NewCtx(ctx, nil, &protocol.Push{
			Ref:     call.Ref,
			Target:  call.Target,
			Event:   call.Event,
			Payload: remote.StringPayload(call.Payload),
		})
		if err := s.Dispatch(sctx); err != nil {
			return err
		}
		if err := remote.ApplyPatches(doc, sctx.Patches(), render); err != nil {
			s.logger.Warn("patches not fully applied", "ref", call.Ref, "target", call.Target, "error", err)
		}
		return nil
	}
}
