package docsystem

// Principal is the authenticated caller as seen by visibility checks.
type Principal struct {
	ID              int64  `json:"id"`
	Role            string `json:"role"`
	ServiceID       *int64 `json:"service_id,omitempty"`
	EnterpriseID    int64  `json:"enterprise_id"`
	ViewAllServices bool   `json:"view_all_services"`
}

// InService reports whether the principal belongs to serviceID.
func (p *Principal) InService(serviceID int64) bool {
	return p.ServiceID != nil && *p.ServiceID == serviceID
}
