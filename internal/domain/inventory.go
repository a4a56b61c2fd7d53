package domain

// Place is a storage location ("lugar") inside a family group.
type Place struct {
	ID          string    `json:"id"`
	Name        string    `json:"nombre"`
	Description string    `json:"descripcion"`
	CreatedAt   string    `json:"fechaCreacion"`
	GroupID     string    `json:"grupoFamiliarId"`
	Products    []Product `json:"productos"`
	CreatedBy   string    `json:"creadoPor"`
}

// OwnedBy reports whether user created the place. A place recorded under a derived id also
// belongs to the user with the embedded username, whatever id the session now carries.
func (p Place) OwnedBy(user User) bool {
	if p.CreatedBy == "" {
		return false
	}
	if user.ID != "" && p.CreatedBy == user.ID {
		return true
	}
	name, ok := DerivedUsername(p.CreatedBy)
	return ok && user.Username != "" && name == user.Username
}

// Product is an inventory item stored in a place.
type Product struct {
	ID          string       `json:"id"`
	Name        string       `json:"nombre"`
	Description string       `json:"descripcion"`
	Quantity    int          `json:"cantidad"`
	MinQuantity int          `json:"cantidadMinima"`
	Expiration  string       `json:"expiracion"`
	Category    *CategoryRef `json:"categoria"`
	PlaceID     string       `json:"lugarId,omitempty"`
	CreatedBy   string       `json:"creadoPor,omitempty"`
	CreatedAt   string       `json:"fechaCreacion,omitempty"`
}

// LowStock reports whether the product is at or below its minimum quantity.
func (p Product) LowStock() bool {
	return p.Quantity <= p.MinQuantity
}

// CategoryRef is the category summary embedded in a product.
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"nombre"`
}

// Category groups products by kind.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}
