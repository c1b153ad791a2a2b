// Package audit classifies gRPC calls into an action on a resource for access logs.
package audit

import "strings"

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// Write reports whether the action mutates the event store.
func (a ActionResource) Write() bool {
	switch a.Action {
	case "ingest", "import", "generate":
		return true
	}
	return false
}

// ParseFullMethod maps a full method (e.g. /geointel.intel.v1.IntelService/ListEvents) to an
// action verb and a resource. The resource comes from the RPC noun when there is one
// (ListEvents -> events) and from the service name otherwise (Analyze -> intel).
func ParseFullMethod(fullMethod string) ActionResource {
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	service := fullMethod[:slash]
	if dot := strings.LastIndex(service, "."); dot >= 0 {
		service = service[dot+1:]
	} else {
		service = strings.TrimPrefix(service, "/")
	}
	if method == "" {
		return ActionResource{Action: "unknown", Resource: serviceToResource(service)}
	}

	if subject, ok := strings.CutSuffix(method, "Check"); ok && subject != "" {
		return ActionResource{Action: "check", Resource: toSnake(subject)}
	}
	verb, noun := splitMethod(method)
	action := strings.ToLower(verb)
	if verb == "List" || verb == "Get" {
		action = "read"
	}
	resource := toSnake(noun)
	if resource == "" {
		resource = serviceToResource(service)
	}
	return ActionResource{Action: action, Resource: resource}
}

// splitMethod splits a CamelCase RPC name at its first word boundary: ImportCSV -> Import, CSV.
func splitMethod(method string) (string, string) {
	for i := 1; i < len(method); i++ {
		if method[i] >= 'A' && method[i] <= 'Z' {
			return method[:i], method[i:]
		}
	}
	return method, ""
}

func serviceToResource(service string) string {
	s := strings.TrimSuffix(service, "Service")
	if s == "" {
		return "unknown"
	}
	return toSnake(s)
}

// toSnake converts CamelCase to snake_case, keeping acronyms together (FilterOptions -> filter_options, CSV -> csv).
func toSnake(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		upper := c >= 'A' && c <= 'Z'
		if upper && i > 0 {
			prevLower := s[i-1] >= 'a' && s[i-1] <= 'z'
			nextLower := i+1 < len(s) && s[i+1] >= 'a' && s[i+1] <= 'z'
			prevUpper := s[i-1] >= 'A' && s[i-1] <= 'Z'
			if prevLower || (prevUpper && nextLower) {
				b.WriteByte('_')
			}
		}
		if upper {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}
