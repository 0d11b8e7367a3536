package types

import "time"

// OrphanResource is the resource value of a permission whose ticket was
// destroyed.
const OrphanResource int64 = -1

// Tag is a name/value label attached to a ticket at a location. Tags follow
// the ticket between the active and trash stores.
type Tag struct {
	ID               int64     `json:"id"`
	UUID             string    `json:"uuid"`
	Owner            string    `json:"owner"`
	Name             string    `json:"name"`
	Value            string    `json:"value"`
	ResourceType     string    `json:"resource_type"`
	Resource         int64     `json:"resource"`
	ResourceUUID     string    `json:"resource_uuid"`
	ResourceLocation Location  `json:"resource_location"`
	CreatedAt        time.Time `json:"created_at"`
}

// Permission grants Subject the capability Name on one ticket.
type Permission struct {
	ID               int64     `json:"id"`
	UUID             string    `json:"uuid"`
	Owner            string    `json:"owner"`
	Name             string    `json:"name"`
	Subject          string    `json:"subject"`
	ResourceType     string    `json:"resource_type"`
	Resource         int64     `json:"resource"`
	ResourceUUID     string    `json:"resource_uuid"`
	ResourceLocation Location  `json:"resource_location"`
	CreatedAt        time.Time `json:"created_at"`
}

// Orphaned reports whether the permission's ticket was destroyed.
func (p Permission) Orphaned() bool {
	return p.Resource == OrphanResource
}
