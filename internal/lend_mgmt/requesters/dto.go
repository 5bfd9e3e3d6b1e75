package requesters

import (
	"strings"

	"lendit-admin/internal/platform/apierr"
)

// Form: 登録・編集フォームの入力値
type Form struct {
	Identificacion  string `json:"identificacion"`
	PrimerNombre    string `json:"primer_nombre"`
	SegundoNombre   string `json:"segundo_nombre"`
	PrimerApellido  string `json:"primer_apellido"`
	SegundoApellido string `json:"segundo_apellido"`
	Correo          string `json:"correo"`
	Telefono        string `json:"telefono"`
	Rol             Role   `json:"rol"`
	Ficha           string `json:"ficha"`
	Programa        string `json:"programa"`
}

// NewForm: 登録時の初期値
func NewForm() Form { return Form{Rol: RoleAprendiz} }

// FormFrom: 編集時は既存レコードから
func FormFrom(r Requester) Form {
	return Form{
		Identificacion:  r.Identificacion,
		PrimerNombre:    r.PrimerNombre,
		SegundoNombre:   r.SegundoNombre,
		PrimerApellido:  r.PrimerApellido,
		SegundoApellido: r.SegundoApellido,
		Correo:          r.Correo,
		Telefono:        r.Telefono,
		Rol:             r.Rol,
		Ficha:           r.Ficha,
		Programa:        r.Programa,
	}
}

// ShowsCohortFields: ficha / programa は aprendiz のときだけ
func (f Form) ShowsCohortFields() bool { return f.Rol == RoleAprendiz }

// Payload: 送信用。aprendiz 以外は ficha/programa を含めない
type Payload struct {
	Identificacion  string  `json:"identificacion"`
	PrimerNombre    string  `json:"primer_nombre"`
	SegundoNombre   *string `json:"segundo_nombre"`
	PrimerApellido  string  `json:"primer_apellido"`
	SegundoApellido *string `json:"segundo_apellido"`
	Correo          *string `json:"correo"`
	Telefono        string  `json:"telefono"`
	Rol             Role    `json:"rol"`
	Ficha           *string `json:"ficha,omitempty"`
	Programa        *string `json:"programa,omitempty"`
}

func (f Form) Payload() (Payload, error) {
	p := Payload{
		Identificacion:  strings.TrimSpace(f.Identificacion),
		PrimerNombre:    strings.TrimSpace(f.PrimerNombre),
		SegundoNombre:   optional(f.SegundoNombre),
		PrimerApellido:  strings.TrimSpace(f.PrimerApellido),
		SegundoApellido: optional(f.SegundoApellido),
		Correo:          optional(f.Correo),
		Telefono:        strings.TrimSpace(f.Telefono),
		Rol:             f.Rol,
	}
	switch {
	case p.Identificacion == "":
		return Payload{}, apierr.ErrInvalid("La identificación es obligatoria")
	case p.PrimerNombre == "" || p.PrimerApellido == "":
		return Payload{}, apierr.ErrInvalid("Primer nombre y primer apellido son obligatorios")
	case p.Telefono == "":
		return Payload{}, apierr.ErrInvalid("El teléfono es obligatorio")
	case !f.Rol.Valid():
		return Payload{}, apierr.ErrInvalid("Rol inválido: " + string(f.Rol))
	}

	if f.Rol == RoleAprendiz {
		p.Ficha = optional(f.Ficha)
		p.Programa = optional(f.Programa)
		if p.Ficha == nil || p.Programa == nil {
			return Payload{}, apierr.ErrInvalid("Ficha y programa son obligatorios para aprendices")
		}
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
