package domain

// PluginKind distinguishes the two plugin collections exposed by the backend.
type PluginKind string

const (
	PluginProvider  PluginKind = "provider"
	PluginPublisher PluginKind = "publisher"
)

// PluginDescriptor describes a provider or publisher plugin installed on the backend.
type PluginDescriptor struct {
	Name        string `json:"name"`
	Class       string `json:"class"`
	Description string `json:"description"`
	Console     bool   `json:"console"`
}

// About is the application descriptor returned by the version endpoint.
type About struct {
	Application string `json:"application"`
	Version     string `json:"version"`
	Timestamp   string `json:"timestamp"`
}
