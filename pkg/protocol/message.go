package protocol

import (
	"errors"
	"fmt"
)

// ErrTrailingBytes is returned when a payload has bytes after its message.
var ErrTrailingBytes = errors.New("protocol: trailing bytes in payload")

// Push is a client command, such as creating an item in a list.
type Push struct {
	Ref     uint64            // Client-chosen id echoed in the Reply
	Target  string            // Addressed server component, e.g. "lists/groceries"
	Event   string            // Command name, e.g. "create"
	Payload map[string]string // Command arguments
}

// Frame encodes p as a FramePush frame.
func (p *Push) Frame() *Frame {
	e := NewEncoder()
	e.WriteUvarint(p.Ref)
	e.WriteString(p.Target)
	e.WriteString(p.Event)
	e.WriteStringMap(p.Payload)
	return NewFrame(FramePush, e.Bytes())
}

// DecodePush decodes a FramePush payload.
func DecodePush(data []byte) (*Push, error) {
	d := NewDecoder(data)
	var (
		p   Push
		err error
	)
	if p.Ref, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if p.Target, err = d.ReadString(); err != nil {
		return nil, err
	}
	if p.Event, err = d.ReadString(); err != nil {
		return nil, err
	}
	if p.Payload, err = d.ReadStringMap(); err != nil {
		return nil, err
	}
	if !d.EOF() {
		return nil, ErrTrailingBytes
	}
	return &p, nil
}

// ReplyStatus is the outcome of a push.
type ReplyStatus uint8

const (
	ReplyOK    ReplyStatus = 0x00
	ReplyError ReplyStatus = 0x01
)

// String returns the string representation of the status.
func (s ReplyStatus) String() string {
	switch s {
	case ReplyOK:
		return "ok"
	case ReplyError:
		return "error"
	}
	return fmt.Sprintf("ReplyStatus(%d)", uint8(s))
}

// Reply reports the result of the push with the same Ref.
type Reply struct {
	Ref    uint64
	Status ReplyStatus
	Reason string // Set when Status is ReplyError
}

// OK reports whether the push was applied.
func (r *Reply) OK() bool { return r.Status == ReplyOK }

// Frame encodes r as a FrameReply frame.
func (r *Reply) Frame() *Frame {
	e := NewEncoder()
	e.WriteUvarint(r.Ref)
	e.WriteByte(byte(r.Status))
	e.WriteString(r.Reason)
	f := NewFrame(FrameReply, e.Bytes())
	f.Flags = FlagFinal
	return f
}

// DecodeReply decodes a FrameReply payload.
func DecodeReply(data []byte) (*Reply, error) {
	d := NewDecoder(data)
	ref, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	reason, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	if !d.EOF() {
		return nil, ErrTrailingBytes
	}
	return &Reply{Ref: ref, Status: ReplyStatus(status), Reason: reason}, nil
}

// PatchOp is a list change.
type PatchOp uint8

const (
	PatchInsert  PatchOp = 0x01 // Append item ID with Text to Container
	PatchRemove  PatchOp = 0x02 // Remove item ID
	PatchSetText PatchOp = 0x03 // Replace the text of item ID
)

// String returns the string representation of the op.
func (op PatchOp) String() string {
	switch op {
	case PatchInsert:
		return "Insert"
	case PatchRemove:
		return "Remove"
	case PatchSetText:
		return "SetText"
	}
	return fmt.Sprintf("PatchOp(0x%02x)", uint8(op))
}

// Patch is one change to a server-rendered list.
type Patch struct {
	Op        PatchOp
	Container string // Element id of the list
	ID        string // Element id of the item
	Text      string
}

// EncodePatches encodes patches as a FramePatches frame.
func EncodePatches(patches []Patch) *Frame {
	e := NewEncoder()
	e.WriteUvarint(uint64(len(patches)))
	for _, p := range patches {
		e.WriteByte(byte(p.Op))
		e.WriteString(p.Container)
		e.WriteString(p.ID)
		e.WriteString(p.Text)
	}
	return NewFrame(FramePatches, e.Bytes())
}

// DecodePatches decodes a FramePatches payload.
func DecodePatches(data []byte) ([]Patch, error) {
	d := NewDecoder(data)
	n, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	patches := make([]Patch, 0, n)
	for i := 0; i < n; i++ {
		op, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		if op < byte(PatchInsert) || op > byte(PatchSetText) {
			return nil, fmt.Errorf("protocol: unknown patch op 0x%02x", op)
		}
		p := Patch{Op: PatchOp(op)}
		if p.Container, err = d.ReadString(); err != nil {
			return nil, err
		}
		if p.ID, err = d.ReadString(); err != nil {
			return nil, err
		}
		if p.Text, err = d.ReadString(); err != nil {
			return nil, err
		}
		patches = append(patches, p)
	}
	if !d.EOF() {
		return nil, ErrTrailingBytes
	}
	return patches, nil
}
