package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// PTPLength is the fixed width of the secondary code.
const PTPLength = 4

// GeneratePTP devuelve un código PTP aleatorio de 4 dígitos ("0000"-"9999").
// Se usa crypto/rand: el código es una credencial, no basta math/rand.
func GeneratePTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generate ptp: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// ValidPTPFormat reports whether the submitted code is exactly four digits.
func ValidPTPFormat(code string) bool {
	if len(code) != PTPLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
