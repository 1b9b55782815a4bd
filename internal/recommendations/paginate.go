package recommendations

// Paginate returns at most limit items starting at offset, in order. An
// offset past the end yields an empty, non-nil slice. The result shares
// storage with items.
func Paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	if offset >= len(items) {
		return []T{}
	}

	end := offset + limit
	if end > len(items) || end < offset {
		end = len(items)
	}
	return items[offset:end]
}
