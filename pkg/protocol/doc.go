// Package protocol implements the binary wire protocol between a document
// and the list server.
//
// Each WebSocket binary message carries one frame with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FramePush (0x01): client → server command (create an item)
//   - FramePatches (0x02): server → client list changes
//   - FrameReply (0x04): server → client result of one push
//   - FrameError (0x05): connection-level error
//
// A server answering a push sends the patches the push produced first and
// the reply second, so a client that releases a pending item on the reply
// has already inserted the server-rendered item.
//
// # Encoding
//
//   - Varint: unsigned integers, protobuf-style
//   - Length-prefixed: strings prefixed with their varint length
//   - String maps: varint count, then key/value pairs sorted by key
//   - Big-endian: fixed-width integers
//
// Decoding never allocates more than DefaultMaxAllocation for a single
// string or MaxCollectionCount entries for a collection.
package protocol
