package domain

// DefaultPlaylistColor is used when a playlist is created implicitly,
// e.g. backfilled from media metadata.
const DefaultPlaylistColor = "#e0e0e0"

// Playlist groups images into a named display rotation.
// Playlists are keyed by their human-chosen name.
type Playlist struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	// Images is the ordered rotation; order is meaningful for display.
	Images []string `json:"images"`
	// Devices is a derived cache of display names of devices currently
	// assigned this playlist. It is rebuilt wholesale from device
	// records and is never the source of truth for assignment.
	Devices []string `json:"devices"`
}

// NewPlaylist creates a playlist with the given color, defaulting when empty.
func NewPlaylist(name, color string) *Playlist {
	if color == "" {
		color = DefaultPlaylistColor
	}
	return &Playlist{
		Name:    name,
		Color:   color,
		Images:  []string{},
		Devices: []string{},
	}
}

// ClearDevices resets the membership cache ahead of a rebuild.
func (p *Playlist) ClearDevices() {
	p.Devices = p.Devices[:0]
}
