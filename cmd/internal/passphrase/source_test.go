package passphrase

import (
	"io"
	"testing"
)

func fixedEnv(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestSourcePrefersEnvironment(t *testing.T) {
	s := NewSource("TIP_PASS", "")
	s.lookupEnv = fixedEnv(map[string]string{"TIP_PASS": "hunter2"})
	s.isTerminal = func() bool { t.Fatalf("terminal must not be consulted"); return false }
	got, err := s.Get()
	if err != nil || got != "hunter2" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestSourceRejectsEmptyEnvironment(t *testing.T) {
	s := NewSource("TIP_PASS", "")
	s.lookupEnv = fixedEnv(map[string]string{"TIP_PASS": "  "})
	if _, err := s.Get(); err == nil {
		t.Fatalf("expected empty env value to fail")
	}
}

func TestSourcePromptsOnceOnTerminal(t *testing.T) {
	calls := 0
	s := NewSource("", "pass: ")
	s.lookupEnv = fixedEnv(nil)
	s.isTerminal = func() bool { return true }
	s.readSecret = func() ([]byte, error) {
		calls++
		return []byte("typed"), nil
	}
	s.out = io.Discard
	for i := 0; i < 2; i++ {
		got, err := s.Get()
		if err != nil || got != "typed" {
			t.Fatalf("got %q, %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one prompt, got %d", calls)
	}
}

func TestSourceWithoutTerminalFails(t *testing.T) {
	s := NewSource("TIP_PASS", "")
	s.lookupEnv = fixedEnv(nil)
	s.isTerminal = func() bool { return false }
	if _, err := s.Get(); err == nil {
		t.Fatalf("expected error without terminal")
	}
}
