package cap

/// RecvSpace is a CSpace dedicated to receiving migrated capabilities
/// during IPC. It gates Migrate on a per-group sender allowlist set by
/// SetSender: a migration into group G only succeeds if the source
/// holder matches the id last recorded for G.
type RecvSpace struct {
	*CSpace
	recvSrc [CSPACE_SIZE]int64 // holder id allowed to migrate into this group; -1 means none set
}

/// NewRecvSpace constructs an empty RecvSpace owned by holder.
func NewRecvSpace(holder *CHolder) *RecvSpace {
	rs := &RecvSpace{CSpace: NewCSpace(holder)}
	for i := range rs.recvSrc {
		rs.recvSrc[i] = -1
	}
	return rs
}

/// SetSender records that group groupIdx may only receive a migration
/// originating from the holder identified by srcHolderID.
func (rs *RecvSpace) SetSender(groupIdx int, srcHolderID int64) {
	rs.recvSrc[groupIdx] = srcHolderID
}

/// Migrate overrides CSpace.Migrate to additionally require that src's
/// owning holder matches the sender recorded for dstIdx's group; an
/// unarmed or mismatched group yields InvalidIndex, not
/// InsufficientPermissions, matching the gating scenario's literal
/// expected result.
func (rs *RecvSpace) Migrate(dstIdx CapIdx, src *CSpace, srcIdx CapIdx) ErrCode {
	g := int(dstIdx.Group)
	if g < 0 || g >= CSPACE_SIZE {
		return InvalidIndex
	}
	srcHolder := src.Holder()
	var srcID int64 = -1
	if srcHolder != nil {
		srcID = srcHolder.ID
	}
	if rs.recvSrc[g] != srcID {
		return InvalidIndex
	}
	return rs.CSpace.Migrate(dstIdx, src, srcIdx)
}
