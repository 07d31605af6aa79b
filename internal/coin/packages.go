package coin

// Package is a static catalog entry; prices are in centavos.
type Package struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Coins      int64  `json:"coins"`
	BonusCoins int64  `json:"bonusCoins"`
	TotalCoins int64  `json:"totalCoins"`
	PriceCents int64  `json:"price"`
}

var packages = []Package{
	{ID: "starter", Name: "Starter", Coins: 50, BonusCoins: 0, PriceCents: 24900},
	{ID: "basic", Name: "Basic", Coins: 100, BonusCoins: 10, PriceCents: 49900},
	{ID: "popular", Name: "Popular", Coins: 250, BonusCoins: 50, PriceCents: 99900},
	{ID: "premium", Name: "Premium", Coins: 500, BonusCoins: 100, PriceCents: 199900},
	{ID: "enterprise", Name: "Enterprise", Coins: 1000, BonusCoins: 200, PriceCents: 349900},
}

// Packages returns the purchasable coin packages with totals filled in.
func Packages() []Package {
	out := make([]Package, len(packages))
	for i, p := range packages {
		p.TotalCoins = p.Coins + p.BonusCoins
		out[i] = p
	}
	return out
}

// PackageByID looks up a catalog entry; ok is false for unknown ids.
func PackageByID(id string) (Package, bool) {
	for _, p := range packages {
		if p.ID == id {
			p.TotalCoins = p.Coins + p.BonusCoins
			return p, true
		}
	}
	return Package{}, false
}

func ValidPaymentMethod(method string) bool {
	switch method {
	case "gcash", "bank_transfer", "cash":
		return true
	}
	return false
}
