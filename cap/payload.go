package cap

/// Payload is implemented by every concrete object a Capability can
/// wrap. The root capability over a derivation tree owns the payload;
/// descendants only reference it (see Capability.Payload).
type Payload interface {
	Kind() PayloadKind
}

/// TestObjectPayload is a minimal payload used to exercise the
/// capability system's invariants in isolation from any real kernel
/// object (cap/cap syscalls, derivation, revoke).
type TestObjectPayload struct {
	Tag int
}

func (TestObjectPayload) Kind() PayloadKind { return PayloadTestObject }
