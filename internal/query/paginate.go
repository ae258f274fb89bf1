// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package query

// DefaultPageSize is the page length used when none is configured.
const DefaultPageSize = 10

// Paginate splits items into consecutive pages of size items; the last page
// may be shorter. Concatenating the pages gives back items in order.
func Paginate[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		pages = append(pages, items[start:end:end])
	}
	return pages
}
