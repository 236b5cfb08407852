package utils

import (
	"fmt"
	"strings"
)

// validator.go - проверка форматов идентификаторов леджера
//
// Адрес: 32 символа алфавита base32 (A-Z, 2-7), всегда в верхнем
// регистре. Юнит транзакции: 44 символа base64 c завершающим '='.

const (
	addressLength  = 32
	unitLength     = 44
	base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
)

// ValidateAddress проверяет формат адреса на леджере
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address is empty")
	}
	if len(address) != addressLength {
		return fmt.Errorf("address must be %d characters, got %d", addressLength, len(address))
	}
	for i := 0; i < len(address); i++ {
		if !strings.ContainsRune(base32Alphabet, rune(address[i])) {
			return fmt.Errorf("address contains invalid character %q at position %d", address[i], i)
		}
	}
	return nil
}

// IsValidAddress - удобная булева обёртка над ValidateAddress
func IsValidAddress(address string) bool {
	return ValidateAddress(address) == nil
}

// ValidateUnit проверяет формат хеша юнита транзакции
func ValidateUnit(unit string) error {
	if unit == "" {
		return fmt.Errorf("unit is empty")
	}
	if len(unit) != unitLength {
		return fmt.Errorf("unit must be %d characters, got %d", unitLength, len(unit))
	}
	if unit[unitLength-1] != '=' {
		return fmt.Errorf("unit must end with '='")
	}
	for i := 0; i < unitLength-1; i++ {
		c := unit[i]
		isBase64 := c >= 'A' && c <= 'Z' ||
			c >= 'a' && c <= 'z' ||
			c >= '0' && c <= '9' ||
			c == '+' || c == '/'
		if !isBase64 {
			return fmt.Errorf("unit contains invalid character %q at position %d", c, i)
		}
	}
	return nil
}

// IsValidUnit - удобная булева обёртка над ValidateUnit
func IsValidUnit(unit string) bool {
	return ValidateUnit(unit) == nil
}
