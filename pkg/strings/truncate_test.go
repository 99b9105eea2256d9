package strings

import (
	"testing"
)

func TestTruncateDescription(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{
			name:     "short result body unchanged",
			input:    `{"status":"success"}`,
			maxLen:   40,
			expected: `{"status":"success"}`,
		},
		{
			name:     "exact length unchanged",
			input:    "build-log",
			maxLen:   9,
			expected: "build-log",
		},
		{
			name:     "long console line truncated",
			input:    "Started by user admin Running on built-in node in /workspace",
			maxLen:   30,
			expected: "Started by user admin Runni...",
		},
		{
			name:     "console output flattened to one line",
			input:    "==== COMMAND EXECUTION ====\nls -la\n==== END OUTPUT ====",
			maxLen:   80,
			expected: "==== COMMAND EXECUTION ==== ls -la ==== END OUTPUT ====",
		},
		{
			name:     "trailing crlf from console dropped",
			input:    "Finished: SUCCESS\r\n",
			maxLen:   40,
			expected: "Finished: SUCCESS",
		},
		{
			name:     "tabs and runs of spaces collapsed",
			input:    "stage('Build')\t\techo   'building'",
			maxLen:   40,
			expected: "stage('Build') echo 'building'",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  deploy-pipeline result  ",
			maxLen:   40,
			expected: "deploy-pipeline result",
		},
		{
			name:     "emoji greeting preserved",
			input:    "Hello from MiladyOS! 👋",
			maxLen:   30,
			expected: "Hello from MiladyOS! 👋",
		},
		{
			name:     "emoji truncation is rune safe",
			input:    "👋👋👋👋👋",
			maxLen:   4,
			expected: "👋...",
		},
		{
			name:     "empty string",
			input:    "",
			maxLen:   10,
			expected: "",
		},
		{
			name:     "whitespace only becomes empty",
			input:    " \n\t ",
			maxLen:   10,
			expected: "",
		},
		{
			name:     "maxLen below minimum clamped",
			input:    "pipeline",
			maxLen:   2,
			expected: "p...",
		},
		{
			name:     "zero maxLen clamped",
			input:    "pipeline",
			maxLen:   0,
			expected: "p...",
		},
		{
			name:     "negative maxLen clamped",
			input:    "pipeline",
			maxLen:   -5,
			expected: "p...",
		},
		{
			name:     "maxLen exactly at minimum",
			input:    "pipeline",
			maxLen:   MinTruncateLen,
			expected: "p...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TruncateDescription(tt.input, tt.maxLen)
			if result != tt.expected {
				t.Errorf("TruncateDescription(%q, %d) = %q, want %q",
					tt.input, tt.maxLen, result, tt.expected)
			}
		})
	}
}

func TestTruncateDescription_CountsRunesNotBytes(t *testing.T) {
	// 7 characters but 21 bytes; byte-based slicing would split a rune.
	input := "ビルド成功ログ"
	result := TruncateDescription(input, 5)

	expected := "ビル..."
	if result != expected {
		t.Errorf("Expected %q but got %q", expected, result)
	}

	runeCount := 0
	for range result {
		runeCount++
	}
	if runeCount != 5 {
		t.Errorf("Expected 5 runes but got %d", runeCount)
	}
}
