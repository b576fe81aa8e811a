package types

// Position is a byte offset into a file: either the file_offset an index
// record points at in primary storage, or a byte position within the index
// log itself.
type Position uint64

// OffBytesLen is the on-disk byte width of a Position.
const OffBytesLen = 8
