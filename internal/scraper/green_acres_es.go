package scraper

// NewGreenAcresEs builds the green-acres.es adapter. The site shares the
// green-acres.gr markup; only domain and country differ.
func NewGreenAcresEs() Adapter {
	a := &greenAcres{
		domain:  "green-acres.es",
		base:    "https://www.green-acres.es",
		country: "ESP",
	}
	return Adapter{Home: a, List: a, Detail: a}
}
