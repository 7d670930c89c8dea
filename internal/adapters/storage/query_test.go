package storage

import (
	"reflect"
	"testing"
)

// TestConditions verifies clause assembly and argument order.
func TestConditions(t *testing.T) {
	var c Conditions
	if c.Where() != "" {
		t.Fatalf("empty Where() = %q", c.Where())
	}
	c.Eq("stage", "lead")
	c.Eq("city", "")
	c.Search(" 50%_Off ", "name", "email")
	c.Add("created_at >= ?", "2026-01-01")

	want := " WHERE stage = ? AND (fold(name) LIKE ? ESCAPE '\\' OR fold(email) LIKE ? ESCAPE '\\') AND created_at >= ?"
	if got := c.Where(); got != want {
		t.Errorf("Where() =\n%q\nwant\n%q", got, want)
	}
	wantArgs := []any{"lead", `%50\%\_off%`, `%50\%\_off%`, "2026-01-01"}
	if !reflect.DeepEqual(c.Args(), wantArgs) {
		t.Errorf("Args() = %v, want %v", c.Args(), wantArgs)
	}
}

// TestOrderBy verifies whitelisting and direction.
func TestOrderBy(t *testing.T) {
	cols := map[string]string{"name": "name", "value": "value_cents"}
	tests := []struct {
		key, dir, want string
	}{
		{"name", "asc", " ORDER BY name ASC"},
		{"value", "DESC", " ORDER BY value_cents DESC"},
		{"id; DROP TABLE deal", "asc", " ORDER BY created_at DESC"},
		{"", "", " ORDER BY created_at DESC"},
	}
	for _, tt := range tests {
		if got := OrderBy(tt.key, tt.dir, cols, "created_at DESC"); got != tt.want {
			t.Errorf("OrderBy(%q,%q) = %q, want %q", tt.key, tt.dir, got, tt.want)
		}
	}
}

// TestPage verifies LIMIT rendering.
func TestPage(t *testing.T) {
	if sql, args := Page(0, 10); sql != "" || args != nil {
		t.Errorf("Page(0) = %q %v", sql, args)
	}
	sql, args := Page(20, -5)
	if sql != " LIMIT ? OFFSET ?" || !reflect.DeepEqual(args, []any{20, 0}) {
		t.Errorf("Page(20,-5) = %q %v", sql, args)
	}
}
