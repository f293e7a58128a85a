package models

import "time"

// LoginRequest represents credentials provided by the client.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned upon successful authentication.
type LoginResponse struct {
	Success     bool      `json:"success"`
	User        UserDTO   `json:"user"`
	RequiresPTP bool      `json:"requiresPtp"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ValidatePTPRequest carries the PTP the user is confirming.
type ValidatePTPRequest struct {
	Email      string `json:"email"`
	CurrentPTP string `json:"currentPtp"`
}

// ValidatePTPResponse returns the freshly rotated code. El código anterior
// queda consumido: a partir de aquí el cliente debe reenviar el nuevo.
type ValidatePTPResponse struct {
	Success bool   `json:"success"`
	NewPTP  string `json:"newPtp"`
}

// DeviceInfo describes the client device registering itself.
type DeviceInfo struct {
	PTPNumber string `json:"ptpNumber,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Model     string `json:"model,omitempty"`
}

// RegisterDeviceRequest binds a device to a logged-in user.
type RegisterDeviceRequest struct {
	Email      string     `json:"email"`
	DeviceInfo DeviceInfo `json:"deviceInfo"`
	UserData   struct {
		Role string `json:"role,omitempty"`
	} `json:"userData"`
}

// RegisterDeviceResponse returns the opaque device token. The token is a
// client-held correlation id only; the server does not persist it.
type RegisterDeviceResponse struct {
	Success     bool    `json:"success"`
	DeviceToken string  `json:"deviceToken"`
	User        UserDTO `json:"user"`
}

// CheckAuthResponse is the per-request identity echo.
type CheckAuthResponse struct {
	Authenticated bool    `json:"authenticated"`
	User          UserDTO `json:"user,omitempty"`
}

// ErrorResponse is a simple error shape for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
