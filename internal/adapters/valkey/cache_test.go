package valkey

import "testing"

func TestOperation(t *testing.T) {
	tests := map[string]string{
		"hotspots:1718000000:all":                   "all",
		"hotspots:0:nearby:45.0000:-75.0000:10.0:5": "nearby",
		"hotspots:0:list:any:0:100":                 "list",
		"hotspots:generation":                       "generation",
		"plain":                                     "plain",
	}
	for key, want := range tests {
		if got := operation(key); got != want {
			t.Errorf("operation(%q) = %q, want %q", key, got, want)
		}
	}
}
