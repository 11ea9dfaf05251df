package token

import (
	"encoding/base64"
	"strings"
	"sync"
	"testing"
)

func TestNewSessionID(t *testing.T) {
	id, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID() error = %v", err)
	}

	if !strings.HasPrefix(id, SessionIDPrefix) {
		t.Errorf("NewSessionID() = %q, want prefix %q", id, SessionIDPrefix)
	}
	if len(id) != 31 {
		t.Errorf("len(NewSessionID()) = %d, want 31", len(id))
	}
	if id != strings.ToLower(id) {
		t.Errorf("NewSessionID() = %q, want lowercase", id)
	}
	if !IsSessionID(id) {
		t.Errorf("IsSessionID(%q) = false", id)
	}
}

func TestNewSessionID_Ordered(t *testing.T) {
	prev, _ := NewSessionID()
	for i := 0; i < 100; i++ {
		next, err := NewSessionID()
		if err != nil {
			t.Fatalf("NewSessionID() error = %v", err)
		}
		if next <= prev {
			t.Fatalf("NewSessionID() not monotonic: %s after %s", next, prev)
		}
		prev = next
	}
}

func TestNewSessionID_Concurrent(t *testing.T) {
	const workers, perWorker = 8, 100

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := NewSessionID()
				if err != nil {
					t.Errorf("NewSessionID() error = %v", err)
					return
				}
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate session id %s", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("minted %d unique ids, want %d", len(seen), workers*perWorker)
	}
}

func TestIsSessionID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"empty", "", false},
		{"no prefix", "01hq3v5k8n2m4p6r8t0w2y4a6c", false},
		{"wrong prefix", "sess-01hq3v5k8n2m4p6r8t0w2y4a6c", false},
		{"too short", "ssid-01hq3v5k8n", false},
		{"invalid chars", "ssid-01hq3v5k8n2m4p6r8t0w2y4a6u", false},
		{"valid", "ssid-01hq3v5k8n2m4p6r8t0w2y4a6c", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSessionID(tt.in); got != tt.want {
				t.Errorf("IsSessionID(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	secret, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(secret)
	if err != nil {
		t.Errorf("Generate() returned invalid base64: %v", err)
	}
	if len(decoded) != DefaultLength {
		t.Errorf("Generate() decoded length = %d, want %d", len(decoded), DefaultLength)
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if seen[s] {
			t.Errorf("Generate() produced duplicate secret: %s", s)
		}
		seen[s] = true
	}
}

func TestGenerateWithLength(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"16 bytes", 16},
		{"32 bytes", 32},
		{"64 bytes", 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := GenerateWithLength(tt.length)
			if err != nil {
				t.Fatalf("GenerateWithLength(%d) error = %v", tt.length, err)
			}
			decoded, err := base64.RawURLEncoding.DecodeString(s)
			if err != nil {
				t.Errorf("GenerateWithLength(%d) returned invalid base64: %v", tt.length, err)
			}
			if len(decoded) != tt.length {
				t.Errorf("GenerateWithLength(%d) decoded length = %d", tt.length, len(decoded))
			}
		})
	}
}

func TestGenerateBytes_InvalidLength(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := GenerateBytes(n); err == nil {
			t.Errorf("GenerateBytes(%d) should fail", n)
		}
	}
}
