package googleauth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Service string

const (
	ServiceSheets         Service = "sheets"
	ServiceSheetsReadonly Service = "sheets.readonly"
	ServiceDriveReadonly  Service = "drive.readonly"
)

var errUnknownService = errors.New("unknown service")

func ParseService(s string) (Service, error) {
	switch Service(strings.ToLower(strings.TrimSpace(s))) {
	case ServiceSheets, ServiceSheetsReadonly, ServiceDriveReadonly:
		return Service(strings.ToLower(strings.TrimSpace(s))), nil
	default:
		return "", fmt.Errorf("unknown service %q (expected sheets|sheets.readonly|drive.readonly)", s)
	}
}

func AllServices() []Service {
	return []Service{ServiceSheets, ServiceSheetsReadonly, ServiceDriveReadonly}
}

func Scopes(service Service) ([]string, error) {
	switch service {
	case ServiceSheets:
		return []string{"https://www.googleapis.com/auth/spreadsheets"}, nil
	case ServiceSheetsReadonly:
		return []string{"https://www.googleapis.com/auth/spreadsheets.readonly"}, nil
	case ServiceDriveReadonly:
		return []string{"https://www.googleapis.com/auth/drive.readonly"}, nil
	default:
		return nil, errUnknownService
	}
}

// ScopeString joins the scopes of services into the space-separated form
// used by the "scope" claim.
func ScopeString(services []Service) (string, error) {
	set := make(map[string]struct{})
	for _, svc := range services {
		scopes, err := Scopes(svc)
		if err != nil {
			return "", err
		}
		for _, s := range scopes {
			set[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	// stable ordering (useful for tests + assertion diffs)
	sort.Strings(out)
	return strings.Join(out, " "), nil
}
