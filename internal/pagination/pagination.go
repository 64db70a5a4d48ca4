// Package pagination implements the listing surface's offset arithmetic:
// fixed page size of 20 records, 1-indexed page numbers.
package pagination

// PageSize is the fixed number of records per listing page.
const PageSize = 20

// Page normalizes a requested page number. Zero or negative requests fall
// back to the first page.
func Page(requested int) int {
	if requested < 1 {
		return 1
	}
	return requested
}

// Offset returns the number of records to skip for a page.
func Offset(page int) int {
	return (Page(page) - 1) * PageSize
}

// TotalPages returns the ceiling of total records over the page size.
func TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}
