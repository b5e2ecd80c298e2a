package redis

import "testing"

func TestKeyPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		parts  []string
		want   string
	}{
		{"", []string{"market", "7"}, "market:7"},
		{"zento", []string{"market", "7"}, "zento:market:7"},
		{"zento", []string{"lock", "trade:0xabc"}, "zento:lock:trade:0xabc"},
	}
	for _, tt := range tests {
		c := &Client{prefix: tt.prefix}
		if got := c.key(tt.parts...); got != tt.want {
			t.Errorf("key(%q, %v) = %q, want %q", tt.prefix, tt.parts, got, tt.want)
		}
	}
}
