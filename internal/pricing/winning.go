package pricing

// PriceType tags the rule that produced a winning price.
type PriceType string

// Price types assigned by Decide.
const (
	TypeBase             PriceType = "BASE"
	TypeTarget           PriceType = "TARGET"
	TypeCompetitor       PriceType = "COMPETITOR"
	TypeCompetitorAlways PriceType = "COMPETITOR_ALWAYS"
	TypeMin              PriceType = "MIN"
	TypeMinRated         PriceType = "MIN_RATED"
	TypeBaseRaised       PriceType = "BASE_RAISED"
)

var typeLabels = map[PriceType]string{
	TypeBase:             "Unmodified base price",
	TypeTarget:           "Limited by target markup",
	TypeCompetitor:       "Aligned to competitor",
	TypeCompetitorAlways: "Aligned to competitor above target markup",
	TypeMin:              "Limited by align markup",
	TypeMinRated:         "Max price drop from base price",
	TypeBaseRaised:       "Base price raised to min markup",
}

// Label returns a human readable description of the price type.
func (t PriceType) Label() string {
	if label, ok := typeLabels[t]; ok {
		return label
	}
	return string(t)
}

// WinningPrice is the price selected for a product and the rule behind it.
type WinningPrice struct {
	Value float64   `json:"value"`
	Type  PriceType `json:"type"`
}

func newWinningPrice(basePrice float64) WinningPrice {
	return WinningPrice{Value: Round(basePrice), Type: TypeBase}
}

// lower replaces the price when the candidate is lower or equal.
func (w *WinningPrice) lower(value float64, t PriceType) bool {
	value = Round(value)
	if w.Value < value {
		return false
	}
	w.Value = value
	w.Type = t
	return true
}

// raise replaces the price when the candidate is strictly higher.
func (w *WinningPrice) raise(value float64, t PriceType) bool {
	value = Round(value)
	if value <= w.Value {
		return false
	}
	w.Value = value
	w.Type = t
	return true
}

// Cents returns the price in cents.
func (w WinningPrice) Cents() int64 {
	return Cents(w.Value)
}

// Matches reports whether a stored price equals the winning price to the cent.
// A nil price never matches.
func (w WinningPrice) Matches(price *float64) bool {
	if price == nil {
		return false
	}
	return Cents(*price) == w.Cents()
}
