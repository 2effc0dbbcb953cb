// Package epic fetches the Epic Games Store free-games feed through its
// RapidAPI proxy and tracks the monthly request budget.
package epic

import "time"

// Game is one catalog entry, either currently free or upcoming. Games are
// snapshots: fetched fresh on every call and never mutated in place.
type Game struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Seller      string     `json:"seller,omitempty"`
	URL         string     `json:"url,omitempty"`
	Images      []Image    `json:"images,omitempty"`
	FreeUntil   *time.Time `json:"free_until,omitempty"`
	FreeFrom    *time.Time `json:"free_from,omitempty"`
}

// Image is a typed image reference from the store listing.
type Image struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Snapshot is the result of one feed fetch. Transient; only the reconciled
// sets are persisted.
type Snapshot struct {
	Current  []Game
	Upcoming []Game
}

// WideImage returns the storefront banner when the listing has one, falling
// back to the thumbnail.
func (g Game) WideImage() string {
	thumb := ""
	for _, img := range g.Images {
		switch img.Type {
		case "DieselStoreFrontWide", "OfferImageWide":
			return img.URL
		case "Thumbnail":
			thumb = img.URL
		}
	}
	return thumb
}

// Thumbnail returns the listing thumbnail, if any.
func (g Game) Thumbnail() string {
	for _, img := range g.Images {
		if img.Type == "Thumbnail" {
			return img.URL
		}
	}
	return ""
}
