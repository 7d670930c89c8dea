package listutil

import (
	"net/url"
	"reflect"
	"testing"
	"time"
)

var sortable = map[string]string{"name": "name", "created_at": "created_at"}

func TestParse_Defaults(t *testing.T) {
	p := Parse(url.Values{}, sortable)
	if p.Page != 1 || p.PerPage != DefaultPerPage || p.Sort != "" || p.Dir != "asc" || p.Search != "" {
		t.Errorf("defaults = %+v", p)
	}
	if p.Offset() != 0 {
		t.Errorf("Offset = %d", p.Offset())
	}
}

func TestParse_Values(t *testing.T) {
	q := url.Values{
		"page": {"3"}, "per_page": {"10"}, "sort": {"name"}, "dir": {"DESC"},
		"q": {"  ana "}, "stage": {"won"}, "ignored": {"x"},
	}
	p := Parse(q, sortable, "stage", "city")
	if p.Page != 3 || p.PerPage != 10 || p.Sort != "name" || p.Dir != "desc" || p.Search != "ana" {
		t.Errorf("parsed = %+v", p)
	}
	if !reflect.DeepEqual(p.Filters, map[string]string{"stage": "won"}) {
		t.Errorf("filters = %v", p.Filters)
	}
	if p.Offset() != 20 {
		t.Errorf("Offset = %d, want 20", p.Offset())
	}
}

func TestParse_Clamps(t *testing.T) {
	tests := []struct {
		name        string
		q           url.Values
		wantPage    int
		wantPerPage int
		wantSort    string
	}{
		{"negative page", url.Values{"page": {"-2"}}, 1, DefaultPerPage, ""},
		{"garbage page", url.Values{"page": {"abc"}}, 1, DefaultPerPage, ""},
		{"huge per_page", url.Values{"per_page": {"5000"}}, 1, MaxPerPage, ""},
		{"zero per_page", url.Values{"per_page": {"0"}}, 1, DefaultPerPage, ""},
		{"unknown sort", url.Values{"sort": {"password_hash"}}, 1, DefaultPerPage, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(tt.q, sortable)
			if p.Page != tt.wantPage || p.PerPage != tt.wantPerPage || p.Sort != tt.wantSort {
				t.Errorf("Parse = %+v", p)
			}
		})
	}
}

func TestNewPageInfo(t *testing.T) {
	tests := []struct {
		name                    string
		page, perPage, total    int
		wantPage, wantPages     int
		wantHasNext, wantHasPrv bool
	}{
		{"empty", 1, 20, 0, 1, 1, false, false},
		{"exact", 2, 10, 20, 2, 2, false, true},
		{"partial", 1, 10, 21, 1, 3, true, false},
		{"page past end", 9, 10, 21, 3, 3, false, true},
		{"bad perPage", 1, 0, 30, 1, 2, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pi := NewPageInfo(tt.page, tt.perPage, tt.total)
			if pi.Page != tt.wantPage || pi.TotalPages != tt.wantPages {
				t.Errorf("NewPageInfo = %+v", pi)
			}
			if pi.HasNext() != tt.wantHasNext || pi.HasPrev() != tt.wantHasPrv {
				t.Errorf("HasNext/HasPrev = %v/%v", pi.HasNext(), pi.HasPrev())
			}
		})
	}
}

func TestPageNumbers(t *testing.T) {
	tests := []struct {
		page, totalPages int
		want             []int
	}{
		{1, 1, []int{1}},
		{1, 3, []int{1, 2, 3}},
		{1, 10, []int{1, 2, 3, 4, 5}},
		{5, 10, []int{3, 4, 5, 6, 7}},
		{10, 10, []int{6, 7, 8, 9, 10}},
	}
	for _, tt := range tests {
		pi := PageInfo{Page: tt.page, PerPage: 10, TotalPages: tt.totalPages}
		if got := pi.PageNumbers(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("PageNumbers(page=%d,total=%d) = %v, want %v", tt.page, tt.totalPages, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-03-04")
	if err != nil || !got.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseDate = %v, %v", got, err)
	}
	if got, err := ParseDate(""); err != nil || !got.IsZero() {
		t.Errorf("ParseDate(empty) = %v, %v", got, err)
	}
	if _, err := ParseDate("04/03/2026"); err == nil {
		t.Error("expected error for wrong layout")
	}
}

func TestParseDaysAndOneOf(t *testing.T) {
	if got := ParseDays("", 30, 365); got != 30 {
		t.Errorf("default = %d", got)
	}
	if got := ParseDays("-1", 30, 365); got != 30 {
		t.Errorf("negative = %d", got)
	}
	if got := ParseDays("1000", 30, 365); got != 365 {
		t.Errorf("capped = %d", got)
	}
	if got := OneOf("won", []string{"lead", "won"}); got != "won" {
		t.Errorf("OneOf = %q", got)
	}
	if got := OneOf("bogus", []string{"lead", "won"}); got != "" {
		t.Errorf("OneOf(bogus) = %q", got)
	}
}
