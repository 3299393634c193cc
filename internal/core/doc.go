// Package core provides the reconciliation logic for taxonomy imports.
//
// This package holds all domain logic independent of any UI, transport or
// storage layer. It is used by the web handlers, the CLI and tests without
// modification. Every function is synchronous and reads its inputs only;
// callers may run them concurrently on shared snapshots.
//
// # Pipeline
//
// An import flows through four stages:
//
//  1. [ParseCSV] decodes the file (BOM, UTF-16, invalid bytes) and maps
//     each record onto a [FlatRow] by header name.
//  2. [ValidateRow] rejects rows that cannot be matched.
//  3. [Reconciler.Classify] builds the row's canonical id with
//     [BuildCandidateID], finds the matching [Entity] in the [Snapshot]
//     and diffs the supplied fields.
//  4. [AnalyzeImport] wraps the above into a [PreviewResponse] with counts,
//     in-file duplicates and near-match suggestions.
//
// Export runs the other way: [FlattenSnapshot] then [WriteCSV].
//
// # Identifiers
//
// Two identifiers exist and are never mixed:
//
//   - URN: the stable identifier assigned remotely, e.g.
//     "urn:li:glossaryTerm:7f2c". Recognized with [LooksLikeURN] and
//     compared verbatim.
//   - Canonical id: derived from names, e.g. "Finance.Customer.Physical-Address".
//     Produced only by [BuildPathID].
//
// The parent_nodes cell of an exported row is a display path ("Finance,
// Customer") and is not a canonical id.
//
// # Cell Encodings
//
// Composite values live inside single cells:
//
//	ownership          alice:DATAOWNER:CORP_USER,bob:TECHNICAL_OWNER:CORP_USER
//	custom_properties  team=finance; tier=gold
//	references         termSource=INTERNAL || sourceUrl=https://example.com
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - VAL001-VAL006: Validation errors (required fields, urns, columns)
//   - FILE001-FILE008: File errors (size, encoding, format)
//   - SNAP001-SNAP003: Snapshot errors (missing, undecodable, unavailable)
//   - REQ001-REQ002: Request errors (cancelled, timeout)
//
// Parsing and reconciliation never fail a whole batch: malformed lines become
// [ParseWarning] values and a fault in one row yields [ActionUnknown].
//
// # Diagnostics
//
// The reconciler reports match and diff decisions to an optional [Tracer].
// The default discards them; [SlogTracer] writes them as debug logs.
package core
