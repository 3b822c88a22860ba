// Package cache serializes a composition catalog to the binary cache format
// and reads it back.
//
// Every entity has one fixed layout:
//
//	catalog    = count part*
//	part       = type metadata exports exporting-members importing-members
//	             sharing-boundary on-imports-satisfied? (bool [ctor ctor-imports])
//	             creation-policy(u8) boundary-inferred(bool)
//	constraint = tag(u8) payload
//	value      = kind(u8) payload
//
// Optional references carry a leading boolean. Type, method and field tokens
// go through the codec's reusable-object table and strings through its string
// table, so repeated references cost one compressed index.
//
// The format holds tokens only. Reading a catalog binds it to a caller
// supplied resolver; nothing is resolved during the read.
package cache
