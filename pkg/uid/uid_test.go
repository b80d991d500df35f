package uid

import (
	"strings"
	"testing"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"empty", "", false},
		{"bot id", "discord-123456", true},
		{"uuid", "7d444840-9dc0-11d1-b245-5ffdce74fad2", true},
		{"spaces", "has space", false},
		{"newline", "a\nb", false},
		{"too long", strings.Repeat("a", MaxRequestIDLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RequestID(tt.incoming)
			if tt.keep && got != tt.incoming {
				t.Errorf("RequestID(%q) = %q, want unchanged", tt.incoming, got)
			}
			if !tt.keep && !IsValid(got) {
				t.Errorf("RequestID(%q) = %q, want fresh uuid", tt.incoming, got)
			}
		})
	}
}
