package requesters

import "slices"

type Role string

const (
	RoleAprendiz    Role = "aprendiz"
	RoleContratista Role = "contratista"
	RoleFuncionario Role = "funcionario"
	RoleInstructor  Role = "instructor"
)

var Roles = []Role{RoleAprendiz, RoleContratista, RoleFuncionario, RoleInstructor}

func (r Role) Valid() bool { return slices.Contains(Roles, r) }

// Requester: バックエンドの solicitante（JSON はそのまま）
type Requester struct {
	Identificacion  string `json:"identificacion"`
	PrimerNombre    string `json:"primer_nombre"`
	SegundoNombre   string `json:"segundo_nombre,omitempty"`
	PrimerApellido  string `json:"primer_apellido"`
	SegundoApellido string `json:"segundo_apellido,omitempty"`
	Correo          string `json:"correo,omitempty"`
	Telefono        string `json:"telefono"`
	Rol             Role   `json:"rol"`
	Ficha           string `json:"ficha,omitempty"`
	Programa        string `json:"programa,omitempty"`
}

// FullName: 空の部分は飛ばす
func (r Requester) FullName() string {
	out := ""
	for _, p := range []string{r.PrimerNombre, r.SegundoNombre, r.PrimerApellido, r.SegundoApellido} {
		if p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}
