package format

// Align4 returns n aligned up to the next 4-byte boundary. Variable-length
// records inside section payloads start on 4-byte boundaries.
//
// Example:
//
//	Align4(1) = 4
//	Align4(4) = 4
//	Align4(5) = 8
func Align4(n int) int {
	return (n + RecordAlignmentMask) & ^RecordAlignmentMask
}
