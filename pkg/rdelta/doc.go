// Package rdelta computes and applies binary deltas between similar byte
// sequences using the rsync rolling-checksum algorithm. The owner of the old
// file (the basis) generates a signature, a compact list of per-block
// checksums. A second party, holding the new file and that signature,
// generates a delta. The delta and the basis together are sufficient to
// reconstruct the new file, so the two files never need to be in the same
// place at the same time.
//
// All operations are exposed as resumable jobs driven by Iterate calls over
// caller-supplied buffers, so they can be embedded in any I/O model without
// the library performing I/O itself. Whole-file convenience functions that
// pump jobs between readers and writers are provided as well.
package rdelta
