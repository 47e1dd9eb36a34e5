package generation

import "testing"

func TestExtractCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			"labeled fence",
			"Sure!\n```go\npackage main\n```\nDone.",
			"package main",
		},
		{
			"unlabeled fence",
			"```\npackage main\n```",
			"package main",
		},
		{
			"no fence falls back to raw text",
			"  package main\n",
			"package main",
		},
		{
			"unterminated fence",
			"```go\npackage main\nfunc Parse() {}",
			"package main\nfunc Parse() {}",
		},
		{
			"first block wins",
			"```go\nfirst\n```\n```go\nsecond\n```",
			"first",
		},
		{
			"prose around fence ignored",
			"Here is the fix you asked for:\n\n```go\npackage main\n\nvar x = 1\n```\n\nLet me know how it goes.",
			"package main\n\nvar x = 1",
		},
		{
			"empty response",
			"   ",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractCodeBlock(tt.response, "go"); got != tt.want {
				t.Errorf("ExtractCodeBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}
