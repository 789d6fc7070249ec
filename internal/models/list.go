package models

const (
	WatchedListKey         = "__synthetic_watched__"
	DefaultListDescription = "Imported from Letterboxd"
)

// ListMeta identifies a destination list to create or reuse.
type ListMeta struct {
	Date        string
	Name        string
	Tags        []string
	URL         string
	Description string
}

// Key is the list's idempotency key in the list cache: its source URL, else its name.
func (m ListMeta) Key() string {
	if m.URL != "" {
		return m.URL
	}
	return m.Name
}

// CreateDescription is the description sent when the list is created.
func (m ListMeta) CreateDescription() string {
	if m.Description != "" {
		return m.Description
	}
	return DefaultListDescription
}

// WatchedListMeta is the synthetic list that receives watched-history events.
func WatchedListMeta() ListMeta {
	return ListMeta{
		Name:        "Watched",
		URL:         WatchedListKey,
		Description: "Imported from Letterboxd watched history",
	}
}

// IMDbListMeta is the synthetic list that receives an IMDb list export.
func IMDbListMeta(title string) ListMeta {
	name, key := "IMDb Import", "imdb:import"
	if title != "" {
		name, key = title, "imdb:"+title
	}
	return ListMeta{Name: name, URL: key, Description: "Imported from IMDb"}
}
