// Package events defines the raw and derived record types exchanged between
// the analyzer's stages: worker/operator/channel identifiers, the typed
// event variants decoded off the wire, and the derived entities produced by
// correlation and aggregation.
package events

import "strings"

// WorkerId identifies a worker in the traced computation. Small and
// non-negative; used both as a source-side identifier and, after the
// exchange in the Timely Event Extractor, as the analyzer partition key.
type WorkerId uint64

// OperatorId identifies an operator, unique within a single worker.
type OperatorId uint64

// ChannelId identifies a channel, unique within a single worker.
type ChannelId uint64

// OperatorAddr is the path from the root scope to an operator: a non-empty
// ordered sequence of indices, the first naming the top-level dataflow and
// the last the operator's local index within its immediate parent.
type OperatorAddr []uint64

// Clone returns an independent copy so callers may extend an address
// in place without aliasing a caller-owned slice.
func (a OperatorAddr) Clone() OperatorAddr {
	out := make(OperatorAddr, len(a))
	copy(out, a)
	return out
}

// Push returns a new address with idx appended; a never observes the
// mutation.
func (a OperatorAddr) Push(idx uint64) OperatorAddr {
	out := make(OperatorAddr, len(a), len(a)+1)
	copy(out, a)
	return append(out, idx)
}

// IsAncestorOf reports whether a is a strict prefix of b.
func (a OperatorAddr) IsAncestorOf(b OperatorAddr) bool {
	if len(a) >= len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsDataflow reports whether addr names a top-level dataflow operator.
func (a OperatorAddr) IsDataflow() bool {
	return len(a) == 1
}

// Key returns a value usable as a map key; OperatorAddr itself is a slice
// and cannot be compared or hashed directly.
func (a OperatorAddr) Key() string {
	var sb strings.Builder
	for i, v := range a {
		if i > 0 {
			sb.WriteByte('/')
		}
		sb.WriteString(uitoa(v))
	}
	return sb.String()
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// WorkerOperator is the (worker, operator) compound key used throughout the
// stats and correlation tables.
type WorkerOperator struct {
	Worker   WorkerId
	Operator OperatorId
}

// Port identifies one endpoint of a channel: the operator-local index and
// the port number on that operator. Port 0 is the scope boundary port.
type Port struct {
	Operator uint64
	Port     uint64
}

// IsBoundary reports whether this endpoint touches the scope boundary.
func (p Port) IsBoundary() bool { return p.Port == 0 }
