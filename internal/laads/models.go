package laads

import (
	"fmt"
	"strings"
)

// Collection is the LAADS archive collection Black Marble is published in.
const Collection = "5000"

// File is one entry of an archive listing.
type File struct {
	Name     string `json:"name"`
	FileURL  string `json:"fileURL"`
	Size     int64  `json:"size"`
	MD5      string `json:"md5sum,omitempty"`
	Archive  string `json:"archiveSet,omitempty"`
	Modified string `json:"last_modified,omitempty"`
}

// Listing is the response of the files endpoint, keyed by archive file id.
type Listing map[string]File

// ForTile returns the file for the tile identifier, e.g. "h10v05".
// Archive names look like VNP46A2.A2022001.h10v05.001.2022010084105.h5.
func (l Listing) ForTile(tileID string) (File, bool) {
	needle := "." + tileID + "."
	var best File
	found := false
	for _, f := range l {
		if !strings.Contains(f.Name, needle) {
			continue
		}
		// Reprocessed files sort after their predecessors.
		if !found || f.Name > best.Name {
			best = f
			found = true
		}
	}
	return best, found
}

// AreaOfInterest formats a bounding box as the archive's x{W}y{S},x{E}y{N} filter.
func AreaOfInterest(west, south, east, north float64) string {
	return fmt.Sprintf("x%.2fy%.2f,x%.2fy%.2f", west, south, east, north)
}
