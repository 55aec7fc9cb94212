package notification

import (
	"reflect"
	"testing"
)

func TestExtractMentionHandles(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"no mentions", "just plain text", nil},
		{"single name", "hey @alice check this out", []string{"alice"}},
		{"email grammar preferred over name grammar", "ping @alice@example.com please", []string{"alice@example.com"}},
		{"duplicate handles collapse to first occurrence", "@bob and @bob again", []string{"bob"}},
		{"multiple distinct handles keep order", "@bob then @alice then @bob", []string{"bob", "alice"}},
		{"dotted and hyphenated names", "@jane.doe and @john-smith", []string{"jane.doe", "john-smith"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractMentionHandles(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractMentionHandles(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
