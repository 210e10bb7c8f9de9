// Package models defines the domain types for agent identity correlation.
package models

import "time"

// PublishedAgent is one agent as declared by an operator, in the order
// it was published. Publish order is the only reliable signal on this
// side: agent-hosting APIs do not expose a creation timestamp that
// lines up with the directory.
type PublishedAgent struct {
	Name         string `json:"name"`
	PublishOrder int    `json:"publish_order"`
}

// DirectoryRecord is one service principal returned by a directory
// query. ObjectID is the directory object id; AppID and DisplayName
// are carried for reporting only and play no part in correlation.
type DirectoryRecord struct {
	ObjectID    string    `json:"object_id"`
	AppID       string    `json:"app_id,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
