package products

import "slices"

type Status string

const (
	StatusDisponible    Status = "Disponible"
	StatusEnPrestamo    Status = "En Préstamo"
	StatusMantenimiento Status = "En Mantenimiento"
	StatusFueraServicio Status = "Fuera de Servicio"
)

var Statuses = []Status{StatusDisponible, StatusEnPrestamo, StatusMantenimiento, StatusFueraServicio}

func (s Status) Valid() bool { return slices.Contains(Statuses, s) }

type Product struct {
	IDProducto     int64  `json:"IDPRODUCTO"`
	CodigoInterno  string `json:"CODIGO_INTERNO"`
	Nombre         string `json:"NOMBRE"`
	IDTipoProducto int64  `json:"IDTIPOPRODUCTO"`
	PlacaSena      string `json:"PLACA_SENA,omitempty"`
	Serial         string `json:"SERIAL,omitempty"`
	Marca          string `json:"MARCA,omitempty"`
	Estado         Status `json:"ESTADO"`
	Observaciones  string `json:"OBSERVACIONES,omitempty"`
}

type Type struct {
	ID     int64  `json:"IDTIPOPRODUCTO"`
	Nombre string `json:"NOMBRE_TIPO_PRODUCTO"`
}

// Counters: /productos/contadores（<tipo>_disponibles, totalDisponibles など）
type Counters map[string]int
