package pricing

// TargetPrice returns the selling price reaching the target markup on the
// purchase price, fees and shipping included.
func (p *Policy) TargetPrice(purchasePrice float64) (float64, error) {
	if p.targetMarkup == nil {
		return 0, ErrTargetMarkupRequired
	}
	return p.priceWithFactor(purchasePrice, p.targetMarkup.factor)
}

// MinPrice returns the lowest selling price accepted when aligning on a
// competitor. Without an align markup it is the target price.
func (p *Policy) MinPrice(purchasePrice float64) (float64, error) {
	if p.alignMarkup == nil {
		return p.TargetPrice(purchasePrice)
	}
	return p.priceWithFactor(purchasePrice, p.alignMarkup.factor)
}

// RaisedBasePrice returns the selling price reaching the min markup, used to
// raise a base price that does not cover it.
func (p *Policy) RaisedBasePrice(purchasePrice float64) (float64, error) {
	if p.minMarkup == nil {
		return 0, ErrMinMarkupRequired
	}
	return p.priceWithFactor(purchasePrice, p.minMarkup.factor)
}

func (p *Policy) priceWithFactor(purchasePrice, factor float64) (float64, error) {
	price := purchasePrice * factor * p.feeFactor
	shipping, err := p.shippingPrice(price)
	if err != nil {
		return 0, err
	}
	return Round(price + shipping), nil
}
