package pages

// Page is a single site page, versionable through the admin UI.
// Images are stored as a name to content mapping, in jsonb.
type Page struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Path   string            `json:"path"`
	HTML   string            `json:"html"`
	Images map[string]string `json:"images,omitempty"`
}
