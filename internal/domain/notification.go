package domain

// Notification kinds emitted by the backend.
const (
	NotificationLowStock     = "CANTIDAD_BAJA"
	NotificationExpiringSoon = "EXPIRACION_PROXIMA"
)

// Notification warns about a product running low or about to expire.
type Notification struct {
	ID        string `json:"id"`
	ProductID string `json:"productoId"`
	Message   string `json:"mensaje"`
	Type      string `json:"tipo"`
	CreatedAt string `json:"fechaCreacion"`
	Read      bool   `json:"leida"`
}
