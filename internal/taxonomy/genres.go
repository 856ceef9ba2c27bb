// package taxonomy holds the closed genre vocabulary tracks are classified into
// and maps free-text oracle answers back onto it.
package taxonomy

// DefaultGenre is used when nothing in a classification can be matched.
const DefaultGenre = "Pop"

// Genres is the ordered top-level vocabulary. The first entry is the default.
var Genres = []string{
	"Pop", "Rock", "Hip Hop", "R&B", "Country",
	"Electronic", "Classical", "Jazz", "Reggae", "Blues",
	"Latin", "Folk", "Metal", "Punk", "Gospel",
	"World", "K-Pop", "Afrobeats", "Indie", "Alternative",
}

// Subgenres lists the allowed subgenres per genre.
var Subgenres = map[string][]string{
	"Pop":         {"Synthpop", "Electropop", "Teen Pop", "Indie Pop"},
	"Rock":        {"Hard Rock", "Soft Rock", "Punk Rock", "Grunge", "Classic Rock"},
	"Hip Hop":     {"Trap", "Drill", "East Coast", "West Coast", "Conscious Rap"},
	"R&B":         {"Neo-Soul", "Contemporary R&B", "Funk"},
	"Country":     {"Country Pop", "Bluegrass", "Country Rock", "Honky Tonk"},
	"Electronic":  {"House", "Techno", "Trance", "Dubstep", "Progressive House"},
	"Classical":   {"Baroque", "Romantic", "Modern", "Chamber Music"},
	"Jazz":        {"Bebop", "Smooth Jazz", "Free Jazz"},
	"Reggae":      {"Dancehall", "Roots Reggae", "Dub"},
	"Blues":       {"Delta Blues", "Electric Blues", "Chicago Blues"},
	"Latin":       {"Reggaeton", "Bachata", "Salsa", "Latin Pop", "Cumbia"},
	"Folk":        {"Acoustic Folk", "Americana", "Traditional Folk"},
	"Metal":       {"Death Metal", "Black Metal", "Heavy Metal", "Nu Metal"},
	"Punk":        {"Hardcore Punk", "Pop Punk", "Post-Punk"},
	"Gospel":      {"Christian Rock", "Contemporary Christian", "Traditional Gospel"},
	"World":       {"Bhangra", "Afrobeat", "Flamenco", "Arabic Pop"},
	"K-Pop":       {"Korean Pop", "K-R&B", "K-Hip Hop"},
	"Afrobeats":   {"Afropop", "Alté", "Naija"},
	"Indie":       {"Indie Rock", "Indie Pop", "Lo-fi"},
	"Alternative": {"Alt Rock", "Alt Pop", "Post-Rock"},
}

// synonyms is checked in order, so more specific phrases precede the generic ones they contain.
var synonyms = []struct {
	keyword string
	genre   string
}{
	{"k pop", "K-Pop"},
	{"kpop", "K-Pop"},
	{"korean", "K-Pop"},
	{"afrobeats", "Afrobeats"},
	{"afrobeat", "Afrobeats"},
	{"afropop", "Afrobeats"},
	{"naija", "Afrobeats"},
	{"hip hop", "Hip Hop"},
	{"hiphop", "Hip Hop"},
	{"rap", "Hip Hop"},
	{"trap", "Hip Hop"},
	{"drill", "Hip Hop"},
	{"grime", "Hip Hop"},
	{"r&b", "R&B"},
	{"rnb", "R&B"},
	{"rhythm and blues", "R&B"},
	{"soul", "R&B"},
	{"funk", "R&B"},
	{"edm", "Electronic"},
	{"electronic", "Electronic"},
	{"electronica", "Electronic"},
	{"dance", "Electronic"},
	{"house", "Electronic"},
	{"techno", "Electronic"},
	{"trance", "Electronic"},
	{"dubstep", "Electronic"},
	{"drum and bass", "Electronic"},
	{"dnb", "Electronic"},
	{"reggaeton", "Latin"},
	{"latin", "Latin"},
	{"salsa", "Latin"},
	{"bachata", "Latin"},
	{"cumbia", "Latin"},
	{"dancehall", "Reggae"},
	{"reggae", "Reggae"},
	{"ska", "Reggae"},
	{"metal", "Metal"},
	{"metalcore", "Metal"},
	{"punk", "Punk"},
	{"emo", "Punk"},
	{"indie", "Indie"},
	{"lo fi", "Indie"},
	{"lofi", "Indie"},
	{"alternative", "Alternative"},
	{"alt", "Alternative"},
	{"grunge", "Rock"},
	{"rock", "Rock"},
	{"country", "Country"},
	{"bluegrass", "Country"},
	{"americana", "Folk"},
	{"folk", "Folk"},
	{"singer songwriter", "Folk"},
	{"acoustic", "Folk"},
	{"gospel", "Gospel"},
	{"christian", "Gospel"},
	{"worship", "Gospel"},
	{"jazz", "Jazz"},
	{"bebop", "Jazz"},
	{"swing", "Jazz"},
	{"blues", "Blues"},
	{"classical", "Classical"},
	{"orchestral", "Classical"},
	{"baroque", "Classical"},
	{"opera", "Classical"},
	{"soundtrack", "Classical"},
	{"bollywood", "World"},
	{"bhangra", "World"},
	{"filmi", "World"},
	{"flamenco", "World"},
	{"world", "World"},
	{"arabic", "World"},
	{"pop", "Pop"},
}
