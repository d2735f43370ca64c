// internal/app/system/paging/paging_test.go
package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParsePage(t *testing.T) {
	cases := []struct {
		url  string
		want int
	}{
		{"/api/activity/assignments", 1},
		{"/api/activity/assignments?page=3", 3},
		{"/api/activity/assignments?page=0", 1},
		{"/api/activity/assignments?page=-2", 1},
		{"/api/activity/assignments?page=abc", 1},
	}
	for _, c := range cases {
		r := httptest.NewRequest("GET", c.url, nil)
		if got := ParsePage(r); got != c.want {
			t.Errorf("ParsePage(%q) = %d, want %d", c.url, got, c.want)
		}
	}
}

func TestSkip(t *testing.T) {
	if got := Skip(1); got != 0 {
		t.Errorf("Skip(1) = %d, want 0", got)
	}
	if got := Skip(3); got != int64(2*PageSize) {
		t.Errorf("Skip(3) = %d, want %d", got, 2*PageSize)
	}
	if got := Skip(0); got != 0 {
		t.Errorf("Skip(0) = %d, want 0", got)
	}
}
