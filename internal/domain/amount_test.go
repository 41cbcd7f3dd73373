package domain

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "0", want: "0"},
		{in: "-50", want: "-50"},
		{in: "120", want: "120"},
		{in: "340282366920938463463374607431768211456", want: "340282366920938463463374607431768211456"},
		{in: "-340282366920938463463374607431768211456", want: "-340282366920938463463374607431768211456"},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1.5", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error, got %s", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestAmountArithmetic(t *testing.T) {
	a := NewAmount(120)
	b := NewAmount(50)

	if got := a.Add(b).String(); got != "170" {
		t.Errorf("120 + 50 = %s, want 170", got)
	}
	if got := a.Sub(b).String(); got != "70" {
		t.Errorf("120 - 50 = %s, want 70", got)
	}
	if got := b.Sub(a).String(); got != "-70" {
		t.Errorf("50 - 120 = %s, want -70", got)
	}
	if got := NewAmount(-50).Neg().String(); got != "50" {
		t.Errorf("Neg(-50) = %s, want 50", got)
	}
	if NewAmount(-1).Sign() != -1 || NewAmount(1).Sign() != 1 || NewAmount(0).Sign() != 0 {
		t.Error("Sign mismatch")
	}
	if !NewAmount(0).IsZero() || NewAmount(7).IsZero() {
		t.Error("IsZero mismatch")
	}
}

// Operations must not mutate their receiver.
func TestAmountImmutable(t *testing.T) {
	a := NewAmount(100)
	_ = a.Add(NewAmount(1))
	_ = a.Sub(NewAmount(1))
	_ = a.Neg()
	if a.String() != "100" {
		t.Errorf("receiver mutated: got %s, want 100", a)
	}
}

// Amounts beyond float64 precision must survive a JSON round-trip exactly.
func TestAmountJSONRoundTrip(t *testing.T) {
	huge := "123456789012345678901234567890123456789"
	a, err := ParseAmount(huge)
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"`+huge+`"` {
		t.Fatalf("Marshal = %s, want %q", data, huge)
	}

	var back Amount
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.String() != huge {
		t.Errorf("round trip = %s, want %s", back, huge)
	}
}

// Bare JSON numbers from older snapshots must still decode.
func TestAmountUnmarshalBareNumber(t *testing.T) {
	var a Amount
	if err := json.Unmarshal([]byte(`-1200`), &a); err != nil {
		t.Fatalf("Unmarshal bare number: %v", err)
	}
	if a.String() != "-1200" {
		t.Errorf("got %s, want -1200", a)
	}
}
