package catalog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/snuzng/storefront/internal/domain"
	"github.com/snuzng/storefront/internal/pricing"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	jpegPath     = regexp.MustCompile(`(?i)^(.*)\.(jpe?g)$`)
)

// Slugify lowercases s and joins its alphanumeric runs with "-".
func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(slug, "-")
}

// ParsePrice reads an amount from displayed currency text such as "₦9,500".
// Anything that does not yield a positive number falls back to the default unit price.
func ParsePrice(text string) float64 {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	n, ok := parseLeadingFloat(b.String())
	if !ok || n <= 0 {
		return domain.DefaultUnitPrice
	}
	return n
}

// parseLeadingFloat accepts the longest prefix that is a valid decimal, so "9.500.00" reads as 9.5.
func parseLeadingFloat(s string) (float64, bool) {
	end := 0
	seenDot := false
	for end < len(s) {
		if s[end] == '.' {
			if seenDot {
				break
			}
			seenDot = true
		}
		end++
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ImageSources holds modern-format siblings of a JPEG image.
type ImageSources struct {
	AVIF     string
	WebP     string
	Fallback string
}

// ModernImageSources derives AVIF/WebP URLs for a .jpg/.jpeg src, keeping any query string.
// It returns nil for other formats.
func ModernImageSources(src string) *ImageSources {
	pathPart, query, _ := strings.Cut(src, "?")
	m := jpegPath.FindStringSubmatch(pathPart)
	if m == nil {
		return nil
	}
	suffix := ""
	if query != "" {
		suffix = "?" + query
	}
	return &ImageSources{
		AVIF:     m[1] + ".avif" + suffix,
		WebP:     m[1] + ".webp" + suffix,
		Fallback: src,
	}
}

// Card is the view model of a product card.
type Card struct {
	ID        string
	Name      string
	Image     string
	Sources   *ImageSources
	PriceText string
	Strength  string
}

func NewCard(p Product) Card {
	name := p.Name
	if name == "" {
		name = "Product"
	}
	return Card{
		ID:        Slugify(name),
		Name:      name,
		Image:     p.Image,
		Sources:   ModernImageSources(p.Image),
		PriceText: pricing.FormatNGN(domain.DefaultUnitPrice),
		Strength:  StrengthFor(name),
	}
}

// BrandCards renders the cards of one brand page; unknown brands yield no cards.
func BrandCards(brand string) []Card {
	products := BrandProducts(brand)
	cards := make([]Card, 0, len(products))
	for _, p := range products {
		cards = append(cards, NewCard(p))
	}
	return cards
}

// AllCards returns every product card with its brand key, for the home page tabs.
func AllCards() []CategorizedCard {
	var out []CategorizedCard
	for _, b := range brands {
		for _, p := range b.Products {
			out = append(out, CategorizedCard{Category: b.Key, Card: NewCard(p)})
		}
	}
	return out
}

type CategorizedCard struct {
	Category string
	Card
}
