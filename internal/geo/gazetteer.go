package geo

import "strings"

// Coord is a static gazetteer entry.
type Coord struct {
	Name string
	Lat  float64
	Lon  float64
}

// stateCoords maps lowercase US state names (plus DC) to centroids.
// The state list follows the upstream haunted-places dataset.
var stateCoords = map[string]Coord{
	"alabama":        {"Alabama", 32.8067, -86.7911},
	"alaska":         {"Alaska", 61.3707, -152.4044},
	"arizona":        {"Arizona", 33.7298, -111.4312},
	"arkansas":       {"Arkansas", 34.9697, -92.3731},
	"california":     {"California", 36.1162, -119.6816},
	"colorado":       {"Colorado", 39.0598, -105.3111},
	"connecticut":    {"Connecticut", 41.5978, -72.7554},
	"delaware":       {"Delaware", 39.3185, -75.5071},
	"florida":        {"Florida", 27.7663, -81.6868},
	"georgia":        {"Georgia", 33.0406, -83.6431},
	"hawaii":         {"Hawaii", 21.0943, -157.4983},
	"idaho":          {"Idaho", 44.2405, -114.4788},
	"illinois":       {"Illinois", 40.3495, -88.9861},
	"indiana":        {"Indiana", 39.8494, -86.2583},
	"iowa":           {"Iowa", 42.0115, -93.2105},
	"kansas":         {"Kansas", 38.5266, -96.7265},
	"kentucky":       {"Kentucky", 37.6681, -84.6701},
	"louisiana":      {"Louisiana", 31.1695, -91.8678},
	"maine":          {"Maine", 44.6939, -69.3819},
	"maryland":       {"Maryland", 39.0639, -76.8021},
	"massachusetts":  {"Massachusetts", 42.2302, -71.5301},
	"michigan":       {"Michigan", 43.3266, -84.5361},
	"minnesota":      {"Minnesota", 45.6945, -93.9002},
	"mississippi":    {"Mississippi", 32.7416, -89.6787},
	"missouri":       {"Missouri", 38.4561, -92.2884},
	"montana":        {"Montana", 46.9219, -110.4544},
	"nebraska":       {"Nebraska", 41.1254, -98.2681},
	"nevada":         {"Nevada", 38.3135, -117.0554},
	"new hampshire":  {"New Hampshire", 43.4525, -71.5639},
	"new jersey":     {"New Jersey", 40.2989, -74.5210},
	"new mexico":     {"New Mexico", 34.8405, -106.2485},
	"new york":       {"New York", 42.1657, -74.9481},
	"north carolina": {"North Carolina", 35.6301, -79.8064},
	"north dakota":   {"North Dakota", 47.5289, -99.7840},
	"ohio":           {"Ohio", 40.3888, -82.7649},
	"oklahoma":       {"Oklahoma", 35.5653, -96.9289},
	"oregon":         {"Oregon", 44.5720, -122.0709},
	"pennsylvania":   {"Pennsylvania", 40.5908, -77.2098},
	"rhode island":   {"Rhode Island", 41.6809, -71.5118},
	"south carolina": {"South Carolina", 33.8569, -80.9450},
	"south dakota":   {"South Dakota", 44.2998, -99.4388},
	"tennessee":      {"Tennessee", 35.7478, -86.6923},
	"texas":          {"Texas", 31.0545, -97.5635},
	"utah":           {"Utah", 40.1500, -111.8624},
	"vermont":        {"Vermont", 44.0459, -72.7107},
	"virginia":       {"Virginia", 37.7693, -78.1700},
	"washington":     {"Washington", 47.4009, -121.4905},
	"washington dc":  {"Washington DC", 38.8974, -77.0268},
	"west virginia":  {"West Virginia", 38.4912, -80.9545},
	"wisconsin":      {"Wisconsin", 44.2685, -89.6165},
	"wyoming":        {"Wyoming", 42.7560, -107.3025},
}

// stateAbbrevs maps USPS abbreviations to lowercase state names.
var stateAbbrevs = map[string]string{
	"AL": "alabama", "AK": "alaska", "AZ": "arizona", "AR": "arkansas",
	"CA": "california", "CO": "colorado", "CT": "connecticut", "DE": "delaware",
	"FL": "florida", "GA": "georgia", "HI": "hawaii", "ID": "idaho",
	"IL": "illinois", "IN": "indiana", "IA": "iowa", "KS": "kansas",
	"KY": "kentucky", "LA": "louisiana", "ME": "maine", "MD": "maryland",
	"MA": "massachusetts", "MI": "michigan", "MN": "minnesota", "MS": "mississippi",
	"MO": "missouri", "MT": "montana", "NE": "nebraska", "NV": "nevada",
	"NH": "new hampshire", "NJ": "new jersey", "NM": "new mexico", "NY": "new york",
	"NC": "north carolina", "ND": "north dakota", "OH": "ohio", "OK": "oklahoma",
	"OR": "oregon", "PA": "pennsylvania", "RI": "rhode island", "SC": "south carolina",
	"SD": "south dakota", "TN": "tennessee", "TX": "texas", "UT": "utah",
	"VT": "vermont", "VA": "virginia", "WA": "washington", "DC": "washington dc",
	"WV": "west virginia", "WI": "wisconsin", "WY": "wyoming",
}

// cityCoords maps lowercase "city, st" keys to coordinates. Curated around
// locations that recur in the haunted-places dataset.
var cityCoords = map[string]Coord{
	"springfield, il":   {"Springfield, IL", 39.7817, -89.6501},
	"chicago, il":       {"Chicago, IL", 41.8781, -87.6298},
	"new orleans, la":   {"New Orleans, LA", 29.9511, -90.0715},
	"savannah, ga":      {"Savannah, GA", 32.0809, -81.0912},
	"salem, ma":         {"Salem, MA", 42.5195, -70.8967},
	"san antonio, tx":   {"San Antonio, TX", 29.4241, -98.4936},
	"galveston, tx":     {"Galveston, TX", 29.3013, -94.7977},
	"st. augustine, fl": {"St. Augustine, FL", 29.9012, -81.3124},
	"gettysburg, pa":    {"Gettysburg, PA", 39.8309, -77.2311},
	"new york, ny":      {"New York, NY", 40.7128, -74.0060},
	"los angeles, ca":   {"Los Angeles, CA", 34.0522, -118.2437},
	"portland, or":      {"Portland, OR", 45.5152, -122.6784},
	"denver, co":        {"Denver, CO", 39.7392, -104.9903},
	"baltimore, md":     {"Baltimore, MD", 39.2904, -76.6122},
	"athens, oh":        {"Athens, OH", 39.3292, -82.1013},
	"estes park, co":    {"Estes Park, CO", 40.3772, -105.5217},
}

// lookupState resolves a state name (any case) to its centroid.
func lookupState(name string) (Coord, bool) {
	c, ok := stateCoords[strings.ToLower(name)]
	return c, ok
}

// lookupCity resolves a "City, ST" pair to curated city coordinates.
func lookupCity(city, abbrev string) (Coord, bool) {
	key := strings.ToLower(city) + ", " + strings.ToLower(abbrev)
	c, ok := cityCoords[key]
	return c, ok
}

// expandAbbrev resolves a USPS abbreviation to the lowercase state name.
func expandAbbrev(abbrev string) (string, bool) {
	name, ok := stateAbbrevs[strings.ToUpper(abbrev)]
	return name, ok
}
