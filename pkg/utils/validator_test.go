package utils

import (
	"strings"
	"testing"
)

func TestValidateAddress(t *testing.T) {
	valid := strings.Repeat("A", 16) + strings.Repeat("7", 16)

	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"valid address", valid, false},
		{"valid mixed alphabet", "JPEZN3JANDZZOFY5HB6XLMKFGUJ2RTD4", false},
		{"empty", "", true},
		{"too short", "ABC234", true},
		{"too long", valid + "A", true},
		{"lowercase rejected", strings.ToLower(valid), true},
		{"digit 0 not in alphabet", strings.Repeat("0", 32), true},
		{"digit 1 not in alphabet", "1" + valid[1:], true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.address)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.address, err, tt.wantErr)
			}
			if got := IsValidAddress(tt.address); got == tt.wantErr {
				t.Errorf("IsValidAddress(%q) = %v, wantErr %v", tt.address, got, tt.wantErr)
			}
		})
	}
}

func TestValidateUnit(t *testing.T) {
	valid := strings.Repeat("a", 20) + strings.Repeat("B", 10) + "0123+/7890123" + "=" // 44 chars

	tests := []struct {
		name    string
		unit    string
		wantErr bool
	}{
		{"valid unit", valid, false},
		{"empty", "", true},
		{"too short", "abc=", true},
		{"missing trailing =", strings.Repeat("a", 44), true},
		{"invalid character", strings.Repeat("a", 20) + "!" + strings.Repeat("b", 22) + "=", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUnit(tt.unit)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUnit(%q) error = %v, wantErr %v", tt.unit, err, tt.wantErr)
			}
		})
	}
}
