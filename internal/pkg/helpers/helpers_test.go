package helpers

import (
	"bytes"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quantumlab/labtrack/internal/pkg/logger"
)

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, 20},
		{-3, 5, 1, 5},
		{2, 1, 2, 1},
		{1, 1000, 1, MaxPageSize},
		{math.MaxInt, 50, MaxPage, 50},
	}
	for _, tc := range cases {
		p, l := NormalizePage(tc.page, tc.limit)
		if p != tc.wantPage || l != tc.wantLimit {
			t.Errorf("NormalizePage(%d,%d) = (%d,%d), want (%d,%d)", tc.page, tc.limit, p, l, tc.wantPage, tc.wantLimit)
		}
	}
}

func TestCalculateOffsetLimit(t *testing.T) {
	offset, limit := CalculateOffsetLimit(3, 10)
	if offset != 20 || limit != 10 {
		t.Fatalf("got offset=%d limit=%d", offset, limit)
	}

	// a huge page must not wrap around into a small or negative offset
	offset, limit = CalculateOffsetLimit(math.MaxInt, MaxPageSize)
	if offset != uint64(MaxPage-1)*MaxPageSize || limit != MaxPageSize {
		t.Fatalf("huge page: offset=%d limit=%d", offset, limit)
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{3, 1, 3},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.limit); got != tc.want {
			t.Errorf("TotalPages(%d,%d) = %d, want %d", tc.total, tc.limit, got, tc.want)
		}
	}
}

func TestParsePaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/admin/logs?page=2&limit=abc", nil)

	page, limit := ParsePaginationParams(c)
	if page != 2 || limit != DefaultPageSize {
		t.Fatalf("got page=%d limit=%d", page, limit)
	}
}

func TestNullIfBlank(t *testing.T) {
	blank := "   "
	if NullIfBlank(&blank) != nil {
		t.Fatal("blank input should become nil")
	}
	v := "  probe  "
	got := NullIfBlank(&v)
	if got == nil || *got != "probe" {
		t.Fatalf("unexpected %v", got)
	}
	if NullIfBlank(nil) != nil {
		t.Fatal("nil stays nil")
	}
}

func TestParseDuration(t *testing.T) {
	var buf bytes.Buffer
	logger.Configure(logger.Config{Level: logger.WarnLevel, Output: &buf})
	t.Cleanup(func() { logger.Configure(logger.Config{Level: logger.InfoLevel}) })

	if got := ParseDuration(" 90m ", time.Hour); got != 90*time.Minute {
		t.Fatalf("got %v", got)
	}
	if got := ParseDuration("", time.Hour); got != time.Hour || buf.Len() != 0 {
		t.Fatalf("blank value: got %v, log %q", got, buf.String())
	}

	for _, bad := range []string{"soon", "-5s", "0s"} {
		buf.Reset()
		if got := ParseDuration(bad, time.Hour); got != time.Hour {
			t.Fatalf("%q: fallback not applied, got %v", bad, got)
		}
		if !strings.Contains(buf.String(), "Ignoring configured duration") || !strings.Contains(buf.String(), bad) {
			t.Fatalf("%q: expected a warning, log %q", bad, buf.String())
		}
	}
}
