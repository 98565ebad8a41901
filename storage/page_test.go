package storage

import "testing"

var pageTests = []struct {
	page    Page
	total   int64
	offset  int
	limit   int
	hasNext bool
}{
	{Page{}, 0, 0, DefaultPageSize, false},
	{Page{Number: 1, Size: 12}, 15, 0, 12, true},
	{Page{Number: 2, Size: 12}, 15, 12, 12, false},
	{Page{Number: 3, Size: 5}, 15, 10, 5, false},
	{Page{Number: -1, Size: 0}, 13, 0, DefaultPageSize, true},
}

func TestPage(t *testing.T) {
	for _, tt := range pageTests {
		if got := tt.page.Offset(); got != tt.offset {
			t.Errorf("%+v offset: got %d, want %d", tt.page, got, tt.offset)
		}
		if got := tt.page.Limit(); got != tt.limit {
			t.Errorf("%+v limit: got %d, want %d", tt.page, got, tt.limit)
		}
		if got := tt.page.HasNext(tt.total); got != tt.hasNext {
			t.Errorf("%+v has next: got %v, want %v", tt.page, got, tt.hasNext)
		}
	}
}
