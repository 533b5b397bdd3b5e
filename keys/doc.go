// Package keys manages Ansybl signing key records: persistence, lookup, and
// rotation across a key family.
//
// A key family is the set of records sharing a base identifier across
// successive rotations (base, base_v2, base_v3, ...). At most one record per
// family is active at any time; deprecated records are retained indefinitely
// so historical signatures remain verifiable, and a deprecated record is
// never reactivated.
package keys
