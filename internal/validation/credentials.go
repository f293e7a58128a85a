package validation

import (
	"fmt"
	"strings"
)

// FieldError representa un error de validación de un campo de entrada
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail valida una dirección de correo
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &FieldError{Field: "email", Message: "es obligatorio"}
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return &FieldError{Field: "email", Message: "formato inválido"}
	}
	if len(email) > 255 {
		return &FieldError{Field: "email", Message: "demasiado largo (máx 255)"}
	}
	return nil
}

// ValidatePassword valida una contraseña nueva
func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return &FieldError{Field: "password", Message: "es obligatoria"}
	}
	if len(password) < 8 {
		return &FieldError{Field: "password", Message: "debe tener al menos 8 caracteres"}
	}
	if len(password) > 72 {
		// límite de bcrypt
		return &FieldError{Field: "password", Message: "demasiado larga (máx 72)"}
	}
	return nil
}

// ValidateName valida el nombre para mostrar (opcional)
func ValidateName(name string) error {
	if len(name) > 100 {
		return &FieldError{Field: "name", Message: "demasiado largo (máx 100)"}
	}
	return nil
}
