package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(newContext("/"))

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_Values(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantLimit  int
		wantOffset int
	}{
		{"custom", "/?limit=5&offset=10", 5, 10},
		{"max limit", "/?limit=1000", MaxLimit, 0},
		{"negative offset", "/?offset=-3", DefaultLimit, 0},
		{"garbage", "/?limit=abc&offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromContext(newContext(tt.target))
			if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
				t.Errorf("got limit=%d offset=%d, want limit=%d offset=%d",
					p.Limit, p.Offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 5, 2, 0)
	if resp.Total != 5 || resp.Limit != 2 || resp.Offset != 0 {
		t.Errorf("unexpected response %+v", resp)
	}
	if !resp.HasMore {
		t.Error("expected HasMore on first page")
	}

	last := NewResponse([]string{"e"}, 5, 2, 4)
	if last.HasMore {
		t.Error("expected no more results on last page")
	}
}

func TestResponse_WithNext(t *testing.T) {
	c := newContext("/api/v1/patients?name=perez&limit=2")
	resp := NewResponse(nil, 5, 2, 0).WithNext(c)
	want := "/api/v1/patients?limit=2&name=perez&offset=2"
	if resp.Next != want {
		t.Errorf("Next = %q, want %q", resp.Next, want)
	}

	last := NewResponse(nil, 5, 2, 4).WithNext(c)
	if last.Next != "" {
		t.Errorf("expected no next link on last page, got %q", last.Next)
	}
}

func TestParams_HasNext(t *testing.T) {
	p := Params{Limit: 10, Offset: 0}
	if !p.HasNext(11) {
		t.Error("expected next page with 11 results")
	}
	if p.HasNext(10) {
		t.Error("expected no next page with 10 results")
	}
	if got := p.NextOffset(); got != 10 {
		t.Errorf("NextOffset() = %d, want 10", got)
	}
}
