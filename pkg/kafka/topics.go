package kafka

import "fmt"

// TopicPrefix is the prefix of every open-commerce-search topic.
const TopicPrefix = "ocs"

// Topic constructs a fully-qualified topic name.
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}

var (
	// TopicConfigChanged carries ConfigChanged payloads.
	TopicConfigChanged = Topic("search", "config-changed")
	// TopicIndexUpdated carries IndexUpdated payloads.
	TopicIndexUpdated = Topic("index", "updated")
)

const (
	EventTypeConfigChanged = "search.config-changed"
	EventTypeIndexUpdated  = "index.updated"
)

// ConfigChanged announces that the search configuration of a tenant changed.
// An empty Tenant means every tenant.
type ConfigChanged struct {
	Tenant string `json:"tenant"`
}

// IndexUpdated announces that Alias now points at the freshly built Index.
type IndexUpdated struct {
	Index string `json:"index"`
	Alias string `json:"alias"`
}
