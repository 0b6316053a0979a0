package main

import "testing"

func TestPick(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"flag", "env", "file"}, "flag"},
		{[]string{"", "env", "file"}, "env"},
		{[]string{"", "", "file", "default"}, "file"},
		{[]string{"", ""}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := pick(tt.in...); got != tt.want {
			t.Errorf("pick(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
