package render

import (
	"encoding/base64"
	"fmt"
)

// Placeholder image dimensions.
const (
	PlaceholderWidth  = 400
	PlaceholderHeight = 300
)

// PlaceholderText is shown when a chart image cannot be loaded.
const PlaceholderText = "Error loading chart"

// PlaceholderSVG is the fallback image shown in place of a failed render.
var PlaceholderSVG = fmt.Sprintf(
	`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`+
		`<rect width="100%%" height="100%%" fill="#f0f0f0"/>`+
		`<text x="50%%" y="50%%" font-family="Arial" font-size="14" fill="#999" text-anchor="middle" dy=".3em">%s</text>`+
		`</svg>`,
	PlaceholderWidth, PlaceholderHeight, PlaceholderText)

// PlaceholderDataURI is PlaceholderSVG as an inline data URI.
var PlaceholderDataURI = "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(PlaceholderSVG))
