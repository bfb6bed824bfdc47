package domain

// Location is a point of interest. Name is the only identity; two records
// with the same name are the same location as far as favorites go.
type Location struct {
	Name              string      `json:"name"`
	Address           string      `json:"address"`
	Phone             string      `json:"phone"`
	Website           *string     `json:"website"`
	Description       string      `json:"description"`
	OpeningTime       string      `json:"openingTime"`
	Rating            float64     `json:"rating"`
	SuggestedDuration string      `json:"suggestedDuration"`
	BestSeason        string      `json:"bestSeason"` // free text, e.g. "Spring, Autumn"
	Picture           *string     `json:"picture"`
	Ticket            *TicketInfo `json:"ticket"`
	TravelTips        []string    `json:"travelTips"`
	IsFavorite        bool        `json:"isFavorite"`
}

type TicketInfo struct {
	GroupGuideService   *string `json:"groupGuideService"`
	DigitalTour         *string `json:"digitalTour"`
	PrivateGuideService *string `json:"privateGuideService"`
	Other               *string `json:"other"`
}

type TipKind string

const (
	TipHeading   TipKind = "heading"
	TipPoint     TipKind = "point"
	TipParagraph TipKind = "paragraph"
)

type TipLine struct {
	Text string  `json:"text"`
	Kind TipKind `json:"kind"`
}
