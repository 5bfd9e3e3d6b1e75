package loans

import (
	"fmt"

	"lendit-admin/internal/lend_mgmt/requesters"
	"lendit-admin/internal/platform/apierr"
)

const (
	MaxExtensionDays     = 30
	DefaultExtensionDays = 7
)

// ExtensionLimits: 役割ごとの延長日数（最小・最大・既定）
func ExtensionLimits(rol requesters.Role) (lo, hi, def int) {
	if rol == requesters.RoleAprendiz {
		return 1, 1, 1
	}
	return 1, MaxExtensionDays, DefaultExtensionDays
}

func validateDays(rol requesters.Role, days int) error {
	lo, hi, _ := ExtensionLimits(rol)
	if rol == requesters.RoleAprendiz && days != 1 {
		return apierr.ErrInvalid("Los aprendices solo pueden prolongar por 1 día")
	}
	if days < lo || days > hi {
		return apierr.ErrInvalid(fmt.Sprintf("Los días de prolongación deben estar entre %d y %d", lo, hi))
	}
	return nil
}
