package interrupt

import (
	"errors"
	"strings"
	"testing"
)

func TestCheck_NotRaised(t *testing.T) {
	Reset()
	if err := Check(); err != nil {
		t.Fatalf("Check() = %v, expected nil", err)
	}
}

func TestRaise_PlainAndPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload error
		want    string
	}{
		{"plain", nil, "interrupted"},
		{"payload", errors.New("deadline from parent"), "deadline from parent"},
		{"already wrapped", ErrInterrupted, "interrupted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reset()
			defer Reset()

			Raise(tt.payload)
			err := Check()
			if !errors.Is(err, ErrInterrupted) {
				t.Fatalf("Check() = %v, expected ErrInterrupted", err)
			}
			if tt.payload != nil && !errors.Is(err, tt.payload) {
				t.Fatalf("payload %v not preserved in %v", tt.payload, err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestRaise_FirstCauseWins(t *testing.T) {
	Reset()
	defer Reset()

	first := errors.New("first")
	Raise(first)
	Raise(errors.New("second"))
	if err := Check(); !errors.Is(err, first) {
		t.Fatalf("Check() = %v, expected first cause", err)
	}
}

func TestCheck_LevelTriggered(t *testing.T) {
	Reset()
	defer Reset()

	Raise(nil)
	for i := 0; i < 3; i++ {
		if Check() == nil {
			t.Fatalf("check %d: flag must stay raised until Reset", i)
		}
	}
	Reset()
	if Check() != nil {
		t.Fatal("flag still raised after Reset")
	}
}
