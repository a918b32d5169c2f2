package geocode

// Polygon is a closed boundary as a list of [lon, lat] vertices. The last
// vertex connects back to the first implicitly.
type Polygon [][2]float64

// Contains reports whether the point (lon, lat) lies inside the polygon,
// border inclusive. Ray casting with an explicit on-edge check first.
func (p Polygon) Contains(lon, lat float64) bool {
	n := len(p)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		if onSegment(p[i], p[(i+1)%n], lon, lat) {
			return true
		}
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := p[i][0], p[i][1]
		xj, yj := p[j][0], p[j][1]
		if (yi > lat) != (yj > lat) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// onSegment reports whether (lon, lat) lies on the segment a-b.
func onSegment(a, b [2]float64, lon, lat float64) bool {
	cross := (b[0]-a[0])*(lat-a[1]) - (b[1]-a[1])*(lon-a[0])
	if cross != 0 {
		return false
	}
	if lon < min(a[0], b[0]) || lon > max(a[0], b[0]) {
		return false
	}
	if lat < min(a[1], b[1]) || lat > max(a[1], b[1]) {
		return false
	}
	return true
}

// InBoundingBoxes reports whether the point lies in one of the boxes, border
// included. Each box is [minLon, minLat, maxLon, maxLat].
func InBoundingBoxes(lon, lat float64, boxes [][4]float64) bool {
	for _, box := range boxes {
		if lon >= box[0] && lon <= box[2] && lat >= box[1] && lat <= box[3] {
			return true
		}
	}
	return false
}
