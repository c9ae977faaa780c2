package core

// Page describes one page of a paginated record listing.
type Page struct {
	Number     int
	Size       int
	Total      int
	TotalPages int
}

// NewPage clamps the requested page number into [1, TotalPages].
func NewPage(number, size, total int) Page {
	if size <= 0 {
		size = 5
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if number < 1 {
		number = 1
	}
	if number > pages {
		number = pages
	}
	return Page{Number: number, Size: size, Total: total, TotalPages: pages}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

func (p Page) HasPrevious() bool { return p.Number > 1 }

func (p Page) HasNext() bool { return p.Number < p.TotalPages }

func (p Page) Previous() int { return p.Number - 1 }

func (p Page) Next() int { return p.Number + 1 }
