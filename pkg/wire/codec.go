// Package wire decodes the byte-level frame payloads the Framed Event
// Source (§4.A) hands off as opaque slices. The spec explicitly treats
// this format as an external collaborator — "we specify only the framed
// event contract" — so this package lives outside pkg/framing and pkg/replay,
// wired in only through the framing.Decode[T] function values the CLI
// supplies at startup.
package wire

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/flowsight/flowsight/pkg/events"
	"github.com/flowsight/flowsight/pkg/replay"
)

func durationFromNanos(n int64) time.Duration { return time.Duration(n) }

// Payload tags for the two wire variants a frame can carry.
const (
	tagProgress byte = 0
	tagMessages byte = 1
)

// TimelyEvent tags, matching events.TimelyEventKind's ordering.
const (
	tagOperates byte = iota
	tagChannels
	tagSchedule
	tagShutdown
	tagApplication
	tagGuardedMessage
	tagGuardedProgress
	tagInput
	tagPark
)

type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor { return &cursor{buf: buf} }

func (c *cursor) byte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, fmt.Errorf("wire: truncated payload reading byte at offset %d", c.pos)
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) u64() (uint64, error) {
	if c.pos+8 > len(c.buf) {
		return 0, fmt.Errorf("wire: truncated payload reading u64 at offset %d", c.pos)
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v, nil
}

func (c *cursor) i64() (int64, error) {
	v, err := c.u64()
	return int64(v), err
}

func (c *cursor) uvarint() (uint64, error) {
	v, n := binary.Uvarint(c.buf[c.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("wire: malformed varint at offset %d", c.pos)
	}
	c.pos += n
	return v, nil
}

func (c *cursor) bytesN(n int) ([]byte, error) {
	if c.pos+n > len(c.buf) {
		return nil, fmt.Errorf("wire: truncated payload reading %d bytes at offset %d", n, c.pos)
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) str() (string, error) {
	n, err := c.uvarint()
	if err != nil {
		return "", err
	}
	b, err := c.bytesN(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *cursor) addr() (events.OperatorAddr, error) {
	n, err := c.uvarint()
	if err != nil {
		return nil, err
	}
	out := make(events.OperatorAddr, n)
	for i := range out {
		v, err := c.u64()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *cursor) port() (events.Port, error) {
	op, err := c.u64()
	if err != nil {
		return events.Port{}, err
	}
	p, err := c.u64()
	if err != nil {
		return events.Port{}, err
	}
	return events.Port{Operator: op, Port: p}, nil
}

// DecodeTimely decodes one WireEvent[events.TimelyEvent] frame payload,
// suitable as the Decode function for a framing.Source over the main
// worker event stream (§6: "(Time, WorkerId, TimelyEvent) for the main
// stream" — WorkerId is attached by the caller per source, not carried
// per-frame, since one source stream belongs to exactly one worker).
func DecodeTimely(payload []byte) (replay.WireEvent[events.TimelyEvent], error) {
	c := newCursor(payload)
	kind, err := c.byte()
	if err != nil {
		return replay.WireEvent[events.TimelyEvent]{}, err
	}

	switch kind {
	case tagProgress:
		updates, err := decodeProgressUpdates(c)
		if err != nil {
			return replay.WireEvent[events.TimelyEvent]{}, err
		}
		return replay.WireEvent[events.TimelyEvent]{Kind: replay.WireProgress, Progress: updates}, nil
	case tagMessages:
		t, data, err := decodeMessages(c, decodeTimelyRecord)
		if err != nil {
			return replay.WireEvent[events.TimelyEvent]{}, err
		}
		return replay.WireEvent[events.TimelyEvent]{Kind: replay.WireMessages, Time: t, Data: data}, nil
	default:
		return replay.WireEvent[events.TimelyEvent]{}, fmt.Errorf("wire: unknown frame tag %d", kind)
	}
}

// DecodeDifferential decodes one WireEvent[events.DifferentialEvent] frame
// payload, the arrangement-maintenance stream's Decode function.
func DecodeDifferential(payload []byte) (replay.WireEvent[events.DifferentialEvent], error) {
	c := newCursor(payload)
	kind, err := c.byte()
	if err != nil {
		return replay.WireEvent[events.DifferentialEvent]{}, err
	}
	switch kind {
	case tagProgress:
		updates, err := decodeProgressUpdates(c)
		if err != nil {
			return replay.WireEvent[events.DifferentialEvent]{}, err
		}
		return replay.WireEvent[events.DifferentialEvent]{Kind: replay.WireProgress, Progress: updates}, nil
	case tagMessages:
		t, data, err := decodeMessages(c, decodeDifferentialRecord)
		if err != nil {
			return replay.WireEvent[events.DifferentialEvent]{}, err
		}
		return replay.WireEvent[events.DifferentialEvent]{Kind: replay.WireMessages, Time: t, Data: data}, nil
	default:
		return replay.WireEvent[events.DifferentialEvent]{}, fmt.Errorf("wire: unknown frame tag %d", kind)
	}
}

// DecodeProgress decodes one WireEvent[events.ProgressEvent] frame
// payload, the per-channel send/receive delta stream's Decode function.
func DecodeProgress(payload []byte) (replay.WireEvent[events.ProgressEvent], error) {
	c := newCursor(payload)
	kind, err := c.byte()
	if err != nil {
		return replay.WireEvent[events.ProgressEvent]{}, err
	}
	switch kind {
	case tagProgress:
		updates, err := decodeProgressUpdates(c)
		if err != nil {
			return replay.WireEvent[events.ProgressEvent]{}, err
		}
		return replay.WireEvent[events.ProgressEvent]{Kind: replay.WireProgress, Progress: updates}, nil
	case tagMessages:
		t, data, err := decodeMessages(c, decodeProgressRecord)
		if err != nil {
			return replay.WireEvent[events.ProgressEvent]{}, err
		}
		return replay.WireEvent[events.ProgressEvent]{Kind: replay.WireMessages, Time: t, Data: data}, nil
	default:
		return replay.WireEvent[events.ProgressEvent]{}, fmt.Errorf("wire: unknown frame tag %d", kind)
	}
}

func decodeProgressUpdates(c *cursor) ([]replay.ProgressUpdate, error) {
	n, err := c.uvarint()
	if err != nil {
		return nil, err
	}
	out := make([]replay.ProgressUpdate, n)
	for i := range out {
		t, err := c.u64()
		if err != nil {
			return nil, err
		}
		d, err := c.i64()
		if err != nil {
			return nil, err
		}
		out[i] = replay.ProgressUpdate{Time: events.TimeNanos(t), Delta: d}
	}
	return out, nil
}

func decodeMessages[T any](c *cursor, decodeOne func(*cursor) (T, error)) (events.TimeNanos, []T, error) {
	t, err := c.u64()
	if err != nil {
		return 0, nil, err
	}
	n, err := c.uvarint()
	if err != nil {
		return 0, nil, err
	}
	out := make([]T, n)
	for i := range out {
		v, err := decodeOne(c)
		if err != nil {
			return 0, nil, err
		}
		out[i] = v
	}
	return events.TimeNanos(t), out, nil
}

func decodeTimelyRecord(c *cursor) (events.TimelyEvent, error) {
	kind, err := c.byte()
	if err != nil {
		return events.TimelyEvent{}, err
	}

	ev := events.TimelyEvent{Kind: events.TimelyEventKind(kind)}
	switch kind {
	case tagOperates:
		id, err := c.u64()
		if err != nil {
			return ev, err
		}
		addr, err := c.addr()
		if err != nil {
			return ev, err
		}
		name, err := c.str()
		if err != nil {
			return ev, err
		}
		ev.Operates = events.Operates{Id: events.OperatorId(id), Addr: addr, Name: name}
	case tagChannels:
		id, err := c.u64()
		if err != nil {
			return ev, err
		}
		scope, err := c.addr()
		if err != nil {
			return ev, err
		}
		src, err := c.port()
		if err != nil {
			return ev, err
		}
		tgt, err := c.port()
		if err != nil {
			return ev, err
		}
		ev.Channels = events.Channels{Id: events.ChannelId(id), ScopeAddr: scope, Source: src, Target: tgt}
	case tagSchedule:
		op, err := c.u64()
		if err != nil {
			return ev, err
		}
		ss, err := c.byte()
		if err != nil {
			return ev, err
		}
		ev.Schedule = events.Schedule{Operator: events.OperatorId(op), Kind: events.StartStop(ss)}
	case tagShutdown:
		op, err := c.u64()
		if err != nil {
			return ev, err
		}
		ev.Shutdown = events.Shutdown{Operator: events.OperatorId(op)}
	case tagApplication:
		id, err := c.u64()
		if err != nil {
			return ev, err
		}
		start, err := c.byte()
		if err != nil {
			return ev, err
		}
		ev.Application = events.Application{Id: id, Start: start != 0}
	case tagGuardedMessage:
		ss, err := c.byte()
		if err != nil {
			return ev, err
		}
		ev.GuardedMessage = events.GuardedMessage{Kind: events.StartStop(ss)}
	case tagGuardedProgress:
		ss, err := c.byte()
		if err != nil {
			return ev, err
		}
		ev.GuardedProgress = events.GuardedProgress{Kind: events.StartStop(ss)}
	case tagInput:
		ss, err := c.byte()
		if err != nil {
			return ev, err
		}
		ev.Input = events.Input{Kind: events.StartStop(ss)}
	case tagPark:
		pk, err := c.byte()
		if err != nil {
			return ev, err
		}
		dur, err := c.i64()
		if err != nil {
			return ev, err
		}
		ev.Park = events.Park_{Kind: events.ParkEvent(pk), Duration: durationFromNanos(dur)}
	default:
		return ev, fmt.Errorf("wire: unknown timely record tag %d", kind)
	}
	return ev, nil
}

func decodeDifferentialRecord(c *cursor) (events.DifferentialEvent, error) {
	op, err := c.u64()
	if err != nil {
		return events.DifferentialEvent{}, err
	}
	outcome, err := c.byte()
	if err != nil {
		return events.DifferentialEvent{}, err
	}
	return events.DifferentialEvent{Merge: events.Merge{
		Operator: events.OperatorId(op),
		Outcome:  events.MergeOutcome(outcome),
	}}, nil
}

func decodeProgressRecord(c *cursor) (events.ProgressEvent, error) {
	addr, err := c.addr()
	if err != nil {
		return events.ProgressEvent{}, err
	}
	ch, err := c.u64()
	if err != nil {
		return events.ProgressEvent{}, err
	}
	isSend, err := c.byte()
	if err != nil {
		return events.ProgressEvent{}, err
	}
	n, err := c.uvarint()
	if err != nil {
		return events.ProgressEvent{}, err
	}
	deltas := make([]events.ProgressDelta, n)
	for i := range deltas {
		t, err := c.u64()
		if err != nil {
			return events.ProgressEvent{}, err
		}
		cnt, err := c.i64()
		if err != nil {
			return events.ProgressEvent{}, err
		}
		deltas[i] = events.ProgressDelta{Time: t, Count: cnt}
	}
	return events.ProgressEvent{Addr: addr, Channel: events.ChannelId(ch), Deltas: deltas, IsSend: isSend != 0}, nil
}
