package core

// UserID identifies a user in the input preference data.
// IDs are opaque 64-bit values and not assumed dense or bounded.
type UserID int64

// ItemID identifies an item in the input preference data.
// IDs are opaque 64-bit values and not assumed dense or bounded.
type ItemID int64

// ItemIndex is a dense, internal identifier for a distinct item within a run.
// It is strictly 32-bit, allowing for max 4 Billion distinct items per run.
// Used for all hot-path structures (co-occurrence columns, bitmaps, heaps).
type ItemIndex uint32

// MaxItemIndex is the maximum possible value for an ItemIndex.
const MaxItemIndex = ^ItemIndex(0)
