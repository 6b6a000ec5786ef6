package dto

// NodeInfo is the subset of the nodeinfo 2.0 document this service publishes.
type NodeInfo struct {
	Version           string           `json:"version"`
	Software          NodeInfoSoftware `json:"software"`
	Protocols         []string         `json:"protocols"`
	OpenRegistrations bool             `json:"openRegistrations"`
	Metadata          NodeInfoMetadata `json:"metadata"`
}

// NodeInfoSoftware identifies the server software.
type NodeInfoSoftware struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// NodeInfoMetadata carries instance-specific fields.
type NodeInfoMetadata struct {
	NodeName         string `json:"nodeName"`
	RegistrationText string `json:"registrationText,omitempty"`
}

// InstanceInfo is the Mastodon-compatible instance description.
type InstanceInfo struct {
	URI              string   `json:"uri"`
	Title            string   `json:"title"`
	Languages        []string `json:"languages"`
	Registrations    bool     `json:"registrations"`
	ApprovalRequired bool     `json:"approval_required"`
	EmailConfirm     bool     `json:"email_confirmation_required"`
	Thumbnail        string   `json:"thumbnail"`
}
