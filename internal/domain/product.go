package domain

// Product is the storefront view of a print-on-demand product, cached from
// the fulfillment provider's catalog.
type Product struct {
	ID                string           `json:"id"`
	ExternalProductID string           `json:"externalProductId"`
	Name              string           `json:"name"`
	ThumbnailURL      string           `json:"thumbnailUrl,omitempty"`
	Variants          []ProductVariant `json:"variants,omitempty"`
}

type ProductVariant struct {
	ID                string `json:"id"`
	ExternalVariantID string `json:"externalVariantId"`
	Name              string `json:"name"`
	RetailPriceCents  int64  `json:"retailPriceCents"`
}
