package models

// Client is an entry of the "clients" collection. NationalID (cedula) is the
// natural key used to deduplicate clients.
type Client struct {
	ID         string `json:"idCliente"`
	NationalID string `json:"cedula"`
	FirstName  string `json:"nombre"`
	LastName   string `json:"apellido"`
}

// FullName returns "first last".
func (c Client) FullName() string {
	return c.FirstName + " " + c.LastName
}
