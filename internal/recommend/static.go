package recommend

import (
	"context"

	"dermaCareAi/internal/hair"
	"dermaCareAi/internal/skin"
)

// NewStatic returns a recommender backed by curated product lists. It is
// the fallback used when no chat model is configured or a call fails.
func NewStatic() Recommender {
	return staticRecommender{}
}

type staticRecommender struct{}

func (staticRecommender) Skincare(_ context.Context, profile skin.Profile) ([]Product, error) {
	base := []Product{
		{Name: "Hydrating Facial Cleanser", Brand: "CeraVe", Price: "12.99", Category: "cleanser", Reason: "Gentle non-foaming cleanser that suits most skin types."},
		{Name: "Daily Moisturizing Lotion", Brand: "CeraVe", Price: "13.99", Category: "moisturizer", Reason: "Ceramide-based hydration for daily use."},
		{Name: "Anthelios Melt-in Milk Sunscreen SPF 60", Brand: "La Roche-Posay", Price: "25.99", Category: "sunscreen", Reason: "Broad-spectrum protection recommended for every routine."},
		{Name: "Hyaluronic Acid 2% + B5", Brand: "The Ordinary", Price: "8.90", Category: "serum", Reason: "Lightweight hydration booster."},
	}

	switch profile.Type {
	case skin.TypeOily:
		base = append(base,
			Product{Name: "Effaclar Purifying Foaming Gel", Brand: "La Roche-Posay", Price: "16.99", Category: "cleanser", Reason: "Controls excess sebum on oily skin."},
			Product{Name: "Niacinamide 10% + Zinc 1%", Brand: "The Ordinary", Price: "6.50", Category: "serum", Reason: "Reduces shine and tightens the look of pores."},
		)
	case skin.TypeDry:
		base = append(base,
			Product{Name: "Ultra Facial Cream", Brand: "Kiehl's", Price: "35.00", Category: "moisturizer", Reason: "Rich cream for dry, flaky skin."},
			Product{Name: "Hydro Boost Water Gel", Brand: "Neutrogena", Price: "19.99", Category: "moisturizer", Reason: "Extra hyaluronic hydration layer."},
		)
	case skin.TypeCombination:
		base = append(base,
			Product{Name: "Toleriane Double Repair Face Moisturizer", Brand: "La Roche-Posay", Price: "21.99", Category: "moisturizer", Reason: "Balances oily and dry zones on combination skin."},
			Product{Name: "Witch Hazel Toner", Brand: "Thayers", Price: "10.95", Category: "toner", Reason: "Gently rebalances the T-zone without stripping."},
		)
	}

	if profile.HasAcne {
		base = append(base,
			Product{Name: "Salicylic Acid 2% Solution", Brand: "The Ordinary", Price: "7.50", Category: "treatment", Reason: "Exfoliates inside the pore to clear breakouts."},
			Product{Name: "Effaclar Duo Dual Action Acne Treatment", Brand: "La Roche-Posay", Price: "31.99", Category: "treatment", Reason: "Benzoyl peroxide treatment for active acne."},
		)
	}

	if len(base) > 10 {
		base = base[:10]
	}
	return base, nil
}

func (staticRecommender) Haircare(_ context.Context, profile hair.Profile) ([]HairProduct, error) {
	switch profile.Type {
	case "curly", "kinky":
		return []HairProduct{
			{Name: "Coconut & Hibiscus Curl Enhancing Smoothie", Brand: "SheaMoisture", Type: "styling", PriceEstimate: "13.99", Reason: "Defines curls without crunch."},
			{Name: "Don't Despair, Repair! Deep Conditioning Mask", Brand: "Briogeo", Type: "mask", PriceEstimate: "39.00", Reason: "Weekly repair for textured hair."},
			{Name: "Jamaican Black Castor Oil Strengthen & Restore Shampoo", Brand: "SheaMoisture", Type: "shampoo", PriceEstimate: "12.49", Reason: "Sulfate-free cleanse that keeps moisture in."},
			{Name: "Curl Charisma Leave-In Defining Cream", Brand: "Briogeo", Type: "styling", PriceEstimate: "24.00", Reason: "Humidity control between washes."},
			{Name: "100% Pure Argan Oil", Brand: "Moroccanoil", Type: "oil", PriceEstimate: "15.00", Reason: "Seals ends against breakage."},
		}, nil
	case "dreadlocks":
		return []HairProduct{
			{Name: "Rosewater Residue-Free Shampoo", Brand: "Dollylocks", Type: "shampoo", PriceEstimate: "16.00", Reason: "Residue-free formula made for locs."},
			{Name: "Tea Tree Special Shampoo", Brand: "Paul Mitchell", Type: "shampoo", PriceEstimate: "17.50", Reason: "Keeps the scalp clear under locs."},
			{Name: "Jojoba Scalp Oil", Brand: "Desert Essence", Type: "oil", PriceEstimate: "11.99", Reason: "Light oil that will not build up."},
			{Name: "Loc Tightening Gel", Brand: "Taliah Waajid", Type: "styling", PriceEstimate: "9.99", Reason: "Retwist hold without flaking."},
			{Name: "Aloe Herbal Refresher Spray", Brand: "Knotty Boy", Type: "conditioner", PriceEstimate: "12.00", Reason: "Daily refresh between washes."},
		}, nil
	default:
		products := []HairProduct{
			{Name: "Nutriplenish Hydrating Shampoo", Brand: "Aveda", Type: "shampoo", PriceEstimate: "31.00", Reason: "Everyday hydrating cleanse."},
			{Name: "No. 5 Bond Maintenance Conditioner", Brand: "Olaplex", Type: "conditioner", PriceEstimate: "30.00", Reason: "Strengthens bonds with every wash."},
			{Name: "Elixir Ultime Hair Oil", Brand: "Kérastase", Type: "oil", PriceEstimate: "42.00", Reason: "Adds shine and tames frizz."},
			{Name: "Hydrating Argan Oil Hair Mask", Brand: "Arvazallia", Type: "mask", PriceEstimate: "14.95", Reason: "Weekly deep conditioning."},
			{Name: "Heat Tamer Spray", Brand: "Tresemmé", Type: "styling", PriceEstimate: "5.99", Reason: "Protects before heat styling."},
		}
		if profile.Dandruff != "" && profile.Dandruff != "none" {
			products[0] = HairProduct{Name: "Scalp Relief Anti-Dandruff Shampoo", Brand: "Head & Shoulders", Type: "shampoo", PriceEstimate: "9.99", Reason: "Zinc pyrithione formula for reported dandruff."}
		}
		return products, nil
	}
}
