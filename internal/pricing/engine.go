package pricing

// Input carries the prices known for one product.
type Input struct {
	BasePrice       float64
	PurchasePrice   *float64
	CompetitorPrice *float64
}

// Amount returns a pointer to v, for optional Input prices.
func Amount(v float64) *float64 {
	return &v
}

// Decide selects the winning price for a product. The base price is never
// modified; a configuration error aborts the computation without a result.
func (p *Policy) Decide(in Input) (WinningPrice, error) {
	var (
		targetPrice *float64
		minPrice    = in.BasePrice * p.dropRateFactor
	)

	if in.PurchasePrice != nil {
		target, err := p.TargetPrice(*in.PurchasePrice)
		if err != nil {
			return WinningPrice{}, err
		}
		targetPrice = &target
		if minPrice, err = p.MinPrice(*in.PurchasePrice); err != nil {
			return WinningPrice{}, err
		}
	}

	var price WinningPrice
	if in.CompetitorPrice != nil {
		price = p.withCompetitor(in.BasePrice, *in.CompetitorPrice, targetPrice, minPrice, in.PurchasePrice != nil)
	} else {
		price = p.withoutCompetitor(in.BasePrice, targetPrice)
	}

	if price.Type == TypeBase && p.raiseBasePrice && in.PurchasePrice != nil {
		raised, err := p.RaisedBasePrice(*in.PurchasePrice)
		if err != nil {
			return WinningPrice{}, err
		}
		price.raise(raised, TypeBaseRaised)
	}

	return price, nil
}

func (p *Policy) withCompetitor(basePrice, competitorPrice float64, targetPrice *float64, minPrice float64, hasPurchasePrice bool) WinningPrice {
	price := newWinningPrice(basePrice)

	if p.competitorPolicy == NoAlign {
		if targetPrice != nil {
			price.lower(*targetPrice, TypeTarget)
		}
		return price
	}

	if p.competitorPolicy == Align && targetPrice != nil && competitorPrice > *targetPrice {
		price.lower(*targetPrice, TypeTarget)
		return price
	}

	if p.alignMarkup == nil {
		return price
	}

	if p.canUseCompetitor(competitorPrice, minPrice) {
		t := TypeCompetitor
		// Without a target every usable competitor counts as exceeding it.
		if p.competitorPolicy == AlignAlways && (targetPrice == nil || competitorPrice > *targetPrice) {
			t = TypeCompetitorAlways
		}
		price.lower(competitorPrice-p.competitorGap, t)
		return price
	}

	t := TypeMinRated
	if hasPurchasePrice {
		t = TypeMin
	}
	price.lower(minPrice, t)
	return price
}

func (p *Policy) withoutCompetitor(basePrice float64, targetPrice *float64) WinningPrice {
	price := newWinningPrice(basePrice)
	if targetPrice == nil {
		return price
	}

	switch p.noCompetitorPolicy {
	case TargetBelowBasePrice:
		price.lower(*targetPrice, TypeTarget)
	case TargetPrice:
		price.Value = Round(*targetPrice)
		price.Type = TypeTarget
	}
	return price
}

// canUseCompetitor compares in cents so that float noise never decides.
func (p *Policy) canUseCompetitor(competitorPrice, minPrice float64) bool {
	return Cents(competitorPrice-p.competitorGap) >= Cents(minPrice)
}
