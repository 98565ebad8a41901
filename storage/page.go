package storage

const DefaultPageSize = 12

// Page selects a 1-based page of a listing.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalized() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	return p
}

func (p Page) Offset() int {
	n := p.normalized()
	return (n.Number - 1) * n.Size
}

func (p Page) Limit() int {
	return p.normalized().Size
}

// HasNext reports whether rows remain after this page out of total.
func (p Page) HasNext(total int64) bool {
	return int64(p.Offset()+p.Limit()) < total
}
