// Package cap implements the capability object system: holders,
// universes, spaces, groups and the capabilities they contain, plus
// the derivation tree and the CSpace accessor used for IPC-style
// capability transfer.
package cap

/// SpaceKind distinguishes the flavors of CapIdx.space: MAJOR/MINOR
/// select one of a holder's two CUniverses, RECV addresses the
/// per-space RecvSpace belonging to the current thread's recv
/// context, NULLABLE marks an empty optional index, and ERROR marks a
/// failed lookup's result index.
type SpaceKind uint16

const (
	SpaceNullable SpaceKind = iota
	SpaceMajor
	SpaceMinor
	SpaceRecv
	SpaceError
)

/// CapIdx addresses a single capability slot: which CSpace it lives in
/// (space/group) and which slot within that group's CGroup.
type CapIdx struct {
	Space SpaceKind
	Group uint16
	Slot  uint16
}

/// ErrorIdx is the canonical error-flavored CapIdx.
var ErrorIdx = CapIdx{Space: SpaceError}

/// NullIdx is the canonical nullable-empty-flavored CapIdx.
var NullIdx = CapIdx{Space: SpaceNullable}

/// Equal compares two indices. Two ERROR-space or two NULLABLE-space
/// indices are always equal regardless of group/slot, matching how
/// both flavors carry no addressing information of their own.
func (c CapIdx) Equal(o CapIdx) bool {
	if c.Space != o.Space {
		return false
	}
	if c.Space == SpaceError || c.Space == SpaceNullable {
		return true
	}
	return c.Group == o.Group && c.Slot == o.Slot
}

/// Raw packs the index into the wire layout: space<<48 | reserved<<32 |
/// group<<16 | slot.
func (c CapIdx) Raw() uint64 {
	return uint64(c.Space)<<48 | uint64(c.Group)<<16 | uint64(c.Slot)
}

/// FromRaw unpacks a wire-format CapIdx. A raw value of 0 is Invalid,
/// which decodes to the NULLABLE-space zero index.
func FromRaw(raw uint64) CapIdx {
	return CapIdx{
		Space: SpaceKind(raw >> 48),
		Group: uint16(raw >> 16),
		Slot:  uint16(raw),
	}
}
