package catalog

type Product struct {
	Name  string
	Image string
}

type Brand struct {
	Key      string
	Name     string
	Products []Product
}

// brands is in display order.
var brands = []Brand{
	{Key: "pablo", Name: "Pablo", Products: []Product{
		{Name: "Pablo Blue Mint", Image: "/assets/pablo-bluemint.jpg"},
		{Name: "Pablo Bubblegum", Image: "/assets/pablo-bubblegum.jpg"},
		{Name: "Pablo Dark Cherry", Image: "/assets/pablo-darkcherry.jpg"},
		{Name: "Pablo Frosted Mint", Image: "/assets/pablo-frostedmint.jpg"},
		{Name: "Pablo Green Mint", Image: "/assets/pablo-greenmint.jpg"},
		{Name: "Pablo Liquorice", Image: "/assets/pablo-liquorice.jpg"},
		{Name: "Pablo Orange Exclusive", Image: "/assets/pablo-orangeexclusive.jpg"},
		{Name: "Pablo Passionfruit", Image: "/assets/pablo-passionfruit.jpg"},
	}},
	{Key: "zafari", Name: "Zafari", Products: []Product{
		{Name: "Zafari Cool Mint", Image: "/assets/zafari-coolmint.jpg"},
		{Name: "Zafari Grapefruit", Image: "/assets/zafari-grapefruit.jpg"},
		{Name: "Zafari Jalapeño Lime", Image: "/assets/zafari-jalapenolime.jpg"},
		{Name: "Zafari Mango", Image: "/assets/zafari-mango.jpg"},
		{Name: "Zafari Mint", Image: "/assets/zafari-mint.jpg"},
		{Name: "Zafari Passionfruit", Image: "/assets/zafari-passionfruit.jpg"},
	}},
	{Key: "zyn", Name: "Zyn", Products: []Product{
		{Name: "Zyn Cool Blueberry", Image: "/assets/zyn-coolblueberry.jpg"},
		{Name: "Zyn Cool Watermelon", Image: "/assets/zyn-coolwatermelon.jpg"},
		{Name: "Zyn Fresh Mint", Image: "/assets/zyn-freshmint.jpg"},
	}},
	{Key: "iceberg", Name: "Iceberg", Products: []Product{
		{Name: "Iceberg Cherry", Image: "/assets/iceberg-cherry.jpg"},
		{Name: "Iceberg Cola", Image: "/assets/iceberg-cola.jpg"},
		{Name: "Iceberg Emerald", Image: "/assets/iceberg-emerald.jpg"},
		{Name: "Iceberg Kiwi Strawberry", Image: "/assets/iceberg-kiwistrawberry.jpg"},
		{Name: "Iceberg Mango Banana", Image: "/assets/iceberg-mango-banana.jpg"},
		{Name: "Iceberg Watermelon", Image: "/assets/iceberg-watermelon.jpg"},
	}},
	{Key: "velo", Name: "Velo", Products: []Product{
		{Name: "Velo Bright Spearmint", Image: "/assets/velo-brightspearmint.jpg"},
		{Name: "Velo Crispy Peppermint", Image: "/assets/velo-crispypeppermint.jpg"},
		{Name: "Velo Strawberry Ice", Image: "/assets/velo-strawberryice.jpg"},
	}},
	{Key: "maggie", Name: "Maggie", Products: []Product{
		{Name: "Maggie Cherry Tonic", Image: "/assets/maggie-cherrytonic.jpg"},
	}},
}

func Brands() []Brand {
	out := make([]Brand, len(brands))
	copy(out, brands)
	return out
}

// BrandProducts returns the products of a brand, or nil for an unknown key.
func BrandProducts(key string) []Product {
	for _, b := range brands {
		if b.Key == key {
			out := make([]Product, len(b.Products))
			copy(out, b.Products)
			return out
		}
	}
	return nil
}

func BrandByKey(key string) (Brand, bool) {
	for _, b := range brands {
		if b.Key == key {
			return b, true
		}
	}
	return Brand{}, false
}
