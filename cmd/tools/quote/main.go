package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/spacefoot/pricer/internal/policy"
	"github.com/spacefoot/pricer/internal/quote"
)

// quote prices one product from the command line.
// Exit code 0 = priced, 1 = rejected request or policy, 2 = usage error.
func main() {
	var (
		policyFile  = flag.String("policy", os.Getenv("PRICING_POLICY_FILE"), "pricing policy YAML file; defaults to the built-in profile")
		profile     = flag.String("profile", policy.DefaultProfile, "profile to price with")
		sku         = flag.String("sku", "", "optional product reference echoed in the output")
		basePrice   = flag.Float64("base", 0, "base price of the product")
		purchase    = flag.String("purchase", "", "purchase price of the product")
		current     = flag.String("current", "", "price currently displayed")
		competitors = flag.String("competitors", "", "comma separated name=price competitor offers")
	)
	flag.Parse()

	req := quote.Request{SKU: *sku, BasePrice: *basePrice}
	var err error
	if req.PurchasePrice, err = optionalPrice(*purchase); err != nil {
		usage("purchase", err)
	}
	if req.CurrentPrice, err = optionalPrice(*current); err != nil {
		usage("current", err)
	}
	if req.Competitors, err = parseOffers(*competitors); err != nil {
		usage("competitors", err)
	}

	registry, err := loadRegistry(*policyFile, *profile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quote: load policy: %v\n", err)
		os.Exit(1)
	}
	svc, err := quote.NewService(quote.ServiceConfig{
		Registry:       registry,
		Logger:         zerolog.New(os.Stderr).Level(zerolog.WarnLevel),
		DefaultProfile: *profile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "quote: %v\n", err)
		os.Exit(2)
	}

	q, err := svc.Quote(context.Background(), *profile, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quote: %v\n", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(q); err != nil {
		fmt.Fprintf(os.Stderr, "quote: encode: %v\n", err)
		os.Exit(2)
	}
}

func loadRegistry(path, profile string) (*policy.Registry, error) {
	if path == "" {
		return policy.NewDefaultRegistry(profile)
	}
	return policy.FromFile(path)
}

func usage(flagName string, err error) {
	fmt.Fprintf(os.Stderr, "quote: invalid -%s: %v\n", flagName, err)
	flag.Usage()
	os.Exit(2)
}

func optionalPrice(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseOffers reads "shop-a=12.90,shop-b=13.10".
func parseOffers(value string) ([]quote.Offer, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	offers := make([]quote.Offer, 0, len(parts))
	for _, part := range parts {
		name, rawPrice, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("offer %q is not name=price", part)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rawPrice), 64)
		if err != nil {
			return nil, fmt.Errorf("offer %q: %w", part, err)
		}
		offers = append(offers, quote.Offer{Name: strings.TrimSpace(name), Price: price})
	}
	return offers, nil
}
