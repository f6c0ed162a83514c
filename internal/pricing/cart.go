package pricing

import (
	"math"
	"sort"
)

// Item is a purchasable course or ebook.
type Item struct {
	ID    string
	Name  string
	Price float64
}

// PromoType distinguishes percentage promos from fixed-amount ones.
type PromoType string

const (
	PromoPercentage PromoType = "percentage"
	PromoFixed      PromoType = "fixed"
)

// Promo is a discount code.
type Promo struct {
	Type        PromoType
	Value       float64
	Description string
}

// Cart is an explicit, passed-in value object: the caller supplies item
// identifiers, there is no shared cart state anywhere in the process.
type Cart struct {
	Items          []string
	PromoCode      string
	MembershipTier string
}

// Quote is the priced view of a cart.
type Quote struct {
	Items          []Item
	Subtotal       float64
	DiscountRate   float64
	DiscountAmount float64
	PromoCode      string
	PromoDiscount  float64
	Total          float64
}

func defaultCourses() map[string]Item {
	courses := map[string]string{
		"finishing-tracks":       "Finishing Tracks Without Overthinking",
		"mixing-fundamentals":    "Mixing Fundamentals",
		"mastering-essentials":   "Mastering Essentials",
		"compression-basics":     "Compression Basics",
		"eq-fundamentals":        "EQ Fundamentals",
		"reverb-depth":           "Reverb & Depth",
		"delay-echo":             "Delay & Echo",
		"stereo-width":           "Stereo Width",
		"vocal-mixing":           "Vocal Mixing",
		"drum-processing":        "Drum Processing",
		"bass-management":        "Bass Management",
		"automation-movement":    "Automation & Movement",
		"parallel-processing":    "Parallel Processing",
		"distortion-saturation":  "Distortion & Saturation",
		"dynamic-control":        "Dynamic Control",
		"frequency-balance":      "Frequency Balance",
		"loudness-standards":     "Loudness Standards",
		"reference-mixing":       "Reference Mixing",
		"mix-bus-processing":     "Mix Bus Processing",
		"creative-clarity":       "Creative Clarity",
		"effects-chains":         "Effects Chains",
		"spatial-design":         "Spatial Design",
		"energy-dynamics":        "Energy & Dynamics",
		"transition-techniques":  "Transition Techniques",
		"layering-textures":      "Layering & Textures",
		"genre-specifics":        "Genre-Specific Techniques",
		"troubleshooting-fixes":  "Troubleshooting & Quick Fixes",
		"export-delivery":        "Export & Delivery",
		"deessing":               "De-essing",
		"monitoring-setup":       "Monitoring & Room Setup",
	}
	m := make(map[string]Item, len(courses))
	for id, name := range courses {
		m[id] = Item{ID: id, Name: name, Price: 35}
	}
	return m
}

func defaultEbooks() map[string]Item {
	return map[string]Item{
		"finishing-tracks-ebook": {ID: "finishing-tracks-ebook", Name: "Finishing Tracks Without Overthinking — Ebook", Price: 18},
		"mixing-checklist":       {ID: "mixing-checklist", Name: "Mixing Checklist", Price: 12},
		"mastering-guide":        {ID: "mastering-guide", Name: "Mastering Guide", Price: 15},
	}
}

// Quantity thresholds and their discount rates, largest first at evaluation.
func defaultBundleDiscounts() map[int]float64 {
	return map[int]float64{
		2:  0.10,
		3:  0.20,
		5:  0.30,
		10: 0.40,
	}
}

func defaultPromoCodes() map[string]Promo {
	return map[string]Promo{
		"LAUNCH50":  {Type: PromoPercentage, Value: 50, Description: "50% off launch special"},
		"WELCOME20": {Type: PromoPercentage, Value: 20, Description: "20% off for new customers"},
		"SAVE10":    {Type: PromoFixed, Value: 10, Description: "£10 off your order"},
		"FREESHIP":  {Type: PromoPercentage, Value: 10, Description: "10% off"},
	}
}

func defaultMembershipDiscounts() map[string]float64 {
	return map[string]float64{
		"basic":   0,
		"pro":     0.15,
		"premium": 0.25,
	}
}

// CartPricer prices carts of courses and ebooks.
type CartPricer struct {
	courses         map[string]Item
	ebooks          map[string]Item
	bundleDiscounts map[int]float64
	promoCodes      map[string]Promo
	membershipTiers map[string]float64
}

// NewCartPricer creates a pricer with the studio's published catalog.
func NewCartPricer() *CartPricer {
	return &CartPricer{
		courses:         defaultCourses(),
		ebooks:          defaultEbooks(),
		bundleDiscounts: defaultBundleDiscounts(),
		promoCodes:      defaultPromoCodes(),
		membershipTiers: defaultMembershipDiscounts(),
	}
}

// PromoFor returns the promo definition for a code, if it exists.
func (p *CartPricer) PromoFor(code string) (Promo, bool) {
	promo, ok := p.promoCodes[code]
	return promo, ok
}

// CalculatePrice prices a cart: subtotal, the better of bundle-quantity and
// membership discounts, then any promo code, floored at zero.
func (p *CartPricer) CalculatePrice(cart Cart) Quote {
	var subtotal float64
	items := make([]Item, 0, len(cart.Items))
	for _, id := range cart.Items {
		item, ok := p.courses[id]
		if !ok {
			item, ok = p.ebooks[id]
		}
		if !ok {
			continue
		}
		subtotal += item.Price
		items = append(items, item)
	}

	var bundleRate float64
	thresholds := make([]int, 0, len(p.bundleDiscounts))
	for qty := range p.bundleDiscounts {
		thresholds = append(thresholds, qty)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(thresholds)))
	for _, qty := range thresholds {
		if len(cart.Items) >= qty {
			bundleRate = p.bundleDiscounts[qty]
			break
		}
	}

	membershipRate := p.membershipTiers[cart.MembershipTier]

	// The customer gets whichever discount is larger, never both.
	rate := math.Max(bundleRate, membershipRate)
	discountAmount := subtotal * rate
	total := subtotal - discountAmount

	var promoDiscount float64
	if promo, ok := p.promoCodes[cart.PromoCode]; ok {
		switch promo.Type {
		case PromoPercentage:
			promoDiscount = total * promo.Value / 100
		case PromoFixed:
			promoDiscount = promo.Value
		}
		total -= promoDiscount
	}

	total = math.Max(0, total)

	return Quote{
		Items:          items,
		Subtotal:       round2(subtotal),
		DiscountRate:   rate,
		DiscountAmount: round2(discountAmount),
		PromoCode:      cart.PromoCode,
		PromoDiscount:  round2(promoDiscount),
		Total:          round2(total),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
