package domain

// ShoppingList is a family group's shopping list.
type ShoppingList struct {
	ID          string     `json:"id"`
	Name        string     `json:"nombre"`
	Description *string    `json:"descripcion"`
	CreatedAt   string     `json:"fechaCreacion"`
	GroupID     string     `json:"grupoFamiliarId"`
	Items       []ListItem `json:"productosLista"`
}

// ListItem is a single line of a shopping list, identified by name.
type ListItem struct {
	Name      string `json:"nombre"`
	Quantity  string `json:"cantidad,omitempty"`
	Unit      string `json:"unidad,omitempty"`
	Purchased bool   `json:"comprado"`
}
