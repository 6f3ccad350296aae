package auth

import "strings"

type StaffPermission string

const (
	PermOrders  StaffPermission = "orders"
	PermReports StaffPermission = "reports"
)

var apiPermissionMap = map[string]StaffPermission{
	"/api/partner/reports":              PermReports,
	"/ws/partner/reports":               PermReports,
	"/api/partner/orders":               PermOrders,
	"POST /api/partner/reports/preview": PermReports,
}

func GetPermissionForAPI(path string, method string) *StaffPermission {
	method = strings.ToUpper(strings.TrimSpace(method))

	var bestPath string
	var bestPerm *StaffPermission
	var bestMethodSpecific bool

	for key, perm := range apiPermissionMap {
		keyPath := key
		methodSpecific := false
		if strings.Contains(key, " ") {
			parts := strings.SplitN(key, " ", 2)
			keyMethod := strings.ToUpper(strings.TrimSpace(parts[0]))
			keyPath = strings.TrimSpace(parts[1])
			methodSpecific = true
			if method == "" || method != keyMethod {
				continue
			}
		}

		if !strings.HasPrefix(path, keyPath) {
			continue
		}

		if bestPerm == nil || len(keyPath) > len(bestPath) || (len(keyPath) == len(bestPath) && methodSpecific && !bestMethodSpecific) {
			bestPath = keyPath
			bestMethodSpecific = methodSpecific
			permCopy := perm
			bestPerm = &permCopy
		}
	}

	return bestPerm
}

// HasPermission reports whether a staff permission list grants perm. Owners
// and admins are not checked here.
func HasPermission(granted []string, perm StaffPermission) bool {
	for _, p := range granted {
		if strings.EqualFold(strings.TrimSpace(p), string(perm)) {
			return true
		}
	}
	return false
}
