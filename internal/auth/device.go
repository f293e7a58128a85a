package auth

import "github.com/google/uuid"

// NewDeviceToken mints an opaque device identifier. El token solo lo guarda el
// cliente como correlación; el servidor no lo persiste ni lo verifica — la
// vinculación real del dispositivo la da el PTP reenviado en cada petición.
func NewDeviceToken() string {
	return uuid.NewString()
}
