package decode

import (
	"testing"
	"time"
)

type samplePayload struct {
	UserID    int64     `json:"userId"`
	UserType  string    `json:"userType"`
	Limit     int       `json:"limit"`
	CreatedAt time.Time `json:"createdAt"`
}

func TestDecodeMapTypedNumbers(t *testing.T) {
	m := map[string]any{
		"userId":    float64(42),
		"userType":  "doctor",
		"limit":     float64(50),
		"createdAt": "2026-08-31T10:00:00Z",
	}
	got, err := DecodeMap[samplePayload](m)
	if err != nil {
		t.Fatalf("DecodeMap: %v", err)
	}
	if got.UserID != 42 || got.UserType != "doctor" || got.Limit != 50 {
		t.Errorf("decoded %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("createdAt not parsed")
	}
}

func TestDecodeMapWeakTyping(t *testing.T) {
	got, err := DecodeMap[samplePayload](map[string]any{"userId": "42"})
	if err != nil {
		t.Fatalf("DecodeMap: %v", err)
	}
	if got.UserID != 42 {
		t.Errorf("userId = %d, want 42", got.UserID)
	}

	if _, err := DecodeMap[samplePayload](
		map[string]any{"userId": "42"}, WithWeaklyTypedInput(false)); err == nil {
		t.Error("strict mode should reject string-typed numbers")
	}
}

func TestDecodeMapNil(t *testing.T) {
	if _, err := DecodeMap[samplePayload](nil); err == nil {
		t.Error("nil map should error")
	}
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[samplePayload]([]byte(`{"userId":7,"userType":"patient"}`))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if got.UserID != 7 || got.UserType != "patient" {
		t.Errorf("decoded %+v", got)
	}
}
