package models

import "time"

// User represents a user record in DB (internal use only).
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	PTP          string    `json:"-"` // código PTP de 4 dígitos, vacío si no asignado
	PTPVerified  bool      `json:"ptp_verified"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserDTO is a minimal user representation for responses.
type UserDTO struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	IsAdmin     bool   `json:"is_admin"`
	PTPVerified bool   `json:"ptp_verified"`
}

// DTO strips the credential fields from a full user record.
func (u User) DTO() UserDTO {
	return UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		IsAdmin:     u.IsAdmin,
		PTPVerified: u.PTPVerified,
	}
}

// AdminUserView es la fila que ve el administrador en el listado de usuarios.
// El código PTP NO se expone aquí: solo se entrega una vez al crear o resetear.
type AdminUserView struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
	Status  string `json:"status"` // "active" si ptp_verified, "inactive" si no
}

// AdminView deriva la vista administrativa de un usuario.
func (u User) AdminView() AdminUserView {
	status := "inactive"
	if u.PTPVerified {
		status = "active"
	}
	return AdminUserView{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.Name,
		IsAdmin: u.IsAdmin,
		Status:  status,
	}
}

// CreateUserRequest holds the data an admin submits to create a user.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"is_admin"`
}

// UpdateUserRequest holds the mutable user fields. Email is immutable after
// creation, so it is deliberately absent.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"`
	IsAdmin  *bool   `json:"is_admin,omitempty"`
	Password *string `json:"password,omitempty"`
}
