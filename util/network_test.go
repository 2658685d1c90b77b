package util

import (
	"testing"
)

func TestCheckAddr(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"localhost:10497", false},
		{":10497", false},
		{"127.0.0.1:0", false},
		{"[::1]:443", false},
		{"localhost", true},
		{"localhost:http", true},
		{"localhost:70000", true},
		{"", true},
	}

	for _, tt := range tests {
		err := CheckAddr(tt.addr)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckAddr(%q) err=%v wantErr=%v", tt.addr, err, tt.wantErr)
		}
	}
}
