// Package verify provides validation functions for OSIM machine images.
//
// # Overview
//
// The checks in this package work on raw image bytes, so a corrupt or
// half-written file can be diagnosed without rebuilding any subsystem.
// They are used by image.Decode before restoring a machine, by the
// osctl validate command, and by tests that assert an image round trip
// preserved every invariant.
//
// Validation categories:
//   - Image header: signature, version, section count
//   - Checksum: header integrity
//   - Sequence numbers: torn-write detection
//   - Image size: file length matches the header field
//   - Section table: known tags, bounds, no overlap, all sections present
//   - Memory partition: block records cover the arena exactly
//   - Process table: record bounds, unique PIDs, init present
//   - File tree: paths, parents before children, directory structure
//
// # Quick Start
//
// Validate everything in one call:
//
//	data, _ := os.ReadFile("machine.osim")
//	if err := verify.AllInvariants(data); err != nil {
//	    fmt.Printf("validation failed: %v\n", err)
//	}
//
// Or check one aspect:
//
//	if err := verify.SequenceNumbers(data); err != nil {
//	    fmt.Println("image was torn mid-save")
//	}
//
// # ValidationError
//
// Every check returns *ValidationError on failure:
//
//	type ValidationError struct {
//	    Type    string                 // failing check, e.g. "MemoryPartition"
//	    Message string                 // human-readable description
//	    Offset  int                    // file offset of the problem (-1 if N/A)
//	    Details map[string]interface{} // additional context
//	}
//
// The Offset points at the field that failed, so a hex dump of the image
// around it shows the corrupt bytes.
//
// # Memory Partition Checks
//
// MemoryPartition replays the arena's structural rules over the
// serialized block records:
//
//   - the first block starts at address 0
//   - each block starts where the previous one ended
//   - every block has a positive size
//   - no two adjacent blocks are both free
//   - free blocks carry owner 0, allocated blocks a positive owner
//   - the final block ends exactly at the recorded capacity
//
// An image that passes cannot describe a partition a live arena could
// not reach.
//
// # Process Table Checks
//
// ProcessTable walks the records checking bounds, positive unique PIDs,
// known state values, and decodable names. Every image must contain a
// record for the init process.
//
// # File Tree Checks
//
// FileTree requires normalized absolute paths, parents listed before
// their children, no duplicates, and content only on files. The working
// directory must name a listed directory or the root.
//
// # AllInvariants
//
// AllInvariants runs every check in order and returns the first error:
//
//  1. ImageHeader
//  2. Checksum
//  3. SequenceNumbers
//  4. ImageSize
//  5. SectionTable
//  6. MemoryPartition
//  7. ProcessTable
//  8. FileTree
//
// Unlike formats that tolerate stale checksums from older writers, an
// OSIM image is always written whole, so checksum and sequence failures
// are treated as hard errors rather than warnings.
//
// # Related Packages
//
//   - github.com/oskit-dev/oskit/image: encoding, decoding, save and load
//   - github.com/oskit-dev/oskit/internal/format: byte-level layout
package verify
