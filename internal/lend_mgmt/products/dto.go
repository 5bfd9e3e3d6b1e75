package products

import (
	"strings"

	"lendit-admin/internal/listing"
	"lendit-admin/internal/platform/apierr"
)

// 資産番号・シリアル・メーカーを持つ種別
const ComputerTypeName = "equipo de cómputo"

// IsComputer: 表示名で判定（大文字小文字・アクセントは無視）
func IsComputer(t Type) bool { return listing.Equal(t.Nombre, ComputerTypeName) }

type Form struct {
	CodigoInterno  string `json:"CODIGO_INTERNO"`
	Nombre         string `json:"NOMBRE"`
	IDTipoProducto int64  `json:"IDTIPOPRODUCTO"`
	PlacaSena      string `json:"PLACA_SENA"`
	Serial         string `json:"SERIAL"`
	Marca          string `json:"MARCA"`
	Estado         Status `json:"ESTADO"`
	Observaciones  string `json:"OBSERVACIONES"`
}

func NewForm() Form { return Form{Estado: StatusDisponible} }

func FormFrom(p Product) Form {
	return Form{
		CodigoInterno:  p.CodigoInterno,
		Nombre:         p.Nombre,
		IDTipoProducto: p.IDTipoProducto,
		PlacaSena:      p.PlacaSena,
		Serial:         p.Serial,
		Marca:          p.Marca,
		Estado:         p.Estado,
		Observaciones:  p.Observaciones,
	}
}

// ShowsAssetFields: 選択中の種別が「equipo de cómputo」か
func (f Form) ShowsAssetFields(types []Type) bool {
	for _, t := range types {
		if t.ID == f.IDTipoProducto {
			return IsComputer(t)
		}
	}
	return false
}

type Payload struct {
	CodigoInterno  string  `json:"CODIGO_INTERNO"`
	Nombre         string  `json:"NOMBRE"`
	IDTipoProducto int64   `json:"IDTIPOPRODUCTO"`
	PlacaSena      *string `json:"PLACA_SENA"`
	Serial         *string `json:"SERIAL"`
	Marca          *string `json:"MARCA"`
	Estado         Status  `json:"ESTADO"`
	Observaciones  *string `json:"OBSERVACIONES"`
}

// Payload: 種別一覧を見て資産系フィールドを含めるか決める
func (f Form) Payload(types []Type) (Payload, error) {
	p := Payload{
		CodigoInterno:  strings.TrimSpace(f.CodigoInterno),
		Nombre:         strings.TrimSpace(f.Nombre),
		IDTipoProducto: f.IDTipoProducto,
		Estado:         f.Estado,
		Observaciones:  optional(f.Observaciones),
	}
	switch {
	case p.CodigoInterno == "":
		return Payload{}, apierr.ErrInvalid("El código interno es obligatorio")
	case p.Nombre == "":
		return Payload{}, apierr.ErrInvalid("El nombre es obligatorio")
	case !f.Estado.Valid():
		return Payload{}, apierr.ErrInvalid("Estado inválido: " + string(f.Estado))
	}
	known := false
	for _, t := range types {
		if t.ID == f.IDTipoProducto {
			known = true
			break
		}
	}
	if !known {
		return Payload{}, apierr.ErrInvalid("Tipo de producto inválido")
	}

	if f.ShowsAssetFields(types) {
		p.PlacaSena = optional(f.PlacaSena)
		p.Serial = optional(f.Serial)
		p.Marca = optional(f.Marca)
	}
	return p, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
