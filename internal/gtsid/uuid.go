package gtsid

import "github.com/google/uuid"

// Namespace is the fixed UUIDv5 namespace every GTS implementation derives
// identifiers under: uuid5(NAMESPACE_URL, "gts"), i.e.
// 63b06280-5dd6-517d-abc6-5a2127e843c3. Changing it would break bit-for-bit
// agreement with other implementations.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("gts"))

// UUID deterministically maps the identifier's canonical text to a
// name-based (version 5) UUID. The same identifier always yields the same
// UUID across processes and implementations.
func (id ID) UUID() uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(id.raw))
}
