package adapter

import (
	"errors"
	"fmt"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode error
	}{
		{
			name:         "nil error returns nil",
			err:          nil,
			expectedCode: nil,
		},
		{
			name:         "unknown error maps to INTERNAL",
			err:          errors.New("bus fault"),
			expectedCode: ErrInternal,
		},
		{
			name:         "duty cycle complaint maps to INVALID_RANGE",
			err:          errors.New("dutycycle must be <= 100.0: duty cycle out of range"),
			expectedCode: ErrInvalidRange,
		},
		{
			name:         "busy maps to BUSY",
			err:          errors.New("PTZ move IN_PROGRESS"),
			expectedCode: ErrBusy,
		},
		{
			name:         "soap timeout maps to UNAVAILABLE",
			err:          errors.New("Post http://cam/onvif/ptz_service: i/o timeout"),
			expectedCode: ErrUnavailable,
		},
		{
			name:         "wrapped sentinel keeps its code",
			err:          fmt.Errorf("set channel: %w", ErrInvalidRange),
			expectedCode: ErrInvalidRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize("op", tt.err)

			if tt.expectedCode == nil {
				if result != nil {
					t.Errorf("Expected nil, got %v", result)
				}
				return
			}

			driverErr, ok := result.(*DriverError)
			if !ok {
				t.Fatalf("Expected DriverError, got %T", result)
			}

			if driverErr.Code != tt.expectedCode {
				t.Errorf("Expected code %v, got %v", tt.expectedCode, driverErr.Code)
			}

			if !errors.Is(result, tt.expectedCode) {
				t.Errorf("errors.Is(%v, %v) = false", result, tt.expectedCode)
			}

			if driverErr.Original != tt.err {
				t.Errorf("Expected original error %v, got %v", tt.err, driverErr.Original)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	first := Normalize("move", errors.New("OFFLINE"))
	second := Normalize("stop", first)

	if first != second {
		t.Errorf("Normalize re-wrapped an already normalized error: %v", second)
	}
}

func TestDriverErrorMessage(t *testing.T) {
	err := &DriverError{Code: ErrUnavailable, Op: "continuousMove", Original: errors.New("NOT_CONFIGURED")}

	want := "continuousMove: UNAVAILABLE (driver: NOT_CONFIGURED)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestChannelNames(t *testing.T) {
	want := map[Channel]string{
		LeftReverse:  "leftReverse",
		RightReverse: "rightReverse",
		LeftForward:  "leftForward",
		RightForward: "rightForward",
		Channel(42):  "unknown",
	}

	for ch, name := range want {
		if ch.String() != name {
			t.Errorf("Channel(%d).String() = %q, want %q", int(ch), ch.String(), name)
		}
	}

	if len(AllChannels()) != 4 {
		t.Errorf("AllChannels() returned %d channels, want 4", len(AllChannels()))
	}
}
