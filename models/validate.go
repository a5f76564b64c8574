package models

import "errors"

// Categories is the fixed set of item categories.
var Categories = []string{"electronics", "office", "daily", "clothing", "books", "other"}

// AllowedConditions is the discrete wear/quality scale for sell-type items.
var AllowedConditions = []int{6, 7, 8, 9, 10, 85, 95, 99}

var (
	ErrCategoryRequired    = errors.New("category is required")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrNameRequired        = errors.New("name is required")
	ErrDescriptionRequired = errors.New("description is required")
	ErrInvalidItemType     = errors.New("invalid item type")
	ErrConditionRequired   = errors.New("selling items require a condition grade")
	ErrInvalidCondition    = errors.New("invalid condition grade")
	ErrPriceRequired       = errors.New("selling items require a price")
	ErrNegativePrice       = errors.New("price cannot be negative")
)

// ValidCategory reports whether s is one of the fixed categories.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if s == c {
			return true
		}
	}
	return false
}

// ValidCondition reports whether v is on the allowed condition scale.
func ValidCondition(v int) bool {
	for _, c := range AllowedConditions {
		if v == c {
			return true
		}
	}
	return false
}

// ValidItemType reports whether s is sell or buy.
func ValidItemType(s string) bool {
	return s == TypeSell || s == TypeBuy
}

// Validate applies the variant-aware item rules in a fixed order, returning
// the first violation. Sell-type items require a condition grade from the
// allowed scale and a non-negative price; for buy-type items both are
// optional and the condition grade carries no meaning.
func (i *Item) Validate() error {
	if i.Category == "" {
		return ErrCategoryRequired
	}
	if !ValidCategory(i.Category) {
		return ErrInvalidCategory
	}
	if i.Name == "" {
		return ErrNameRequired
	}
	if i.Description == "" {
		return ErrDescriptionRequired
	}
	if !ValidItemType(i.ItemType) {
		return ErrInvalidItemType
	}
	if i.ItemType == TypeSell {
		if i.ItemCondition == nil {
			return ErrConditionRequired
		}
		if !ValidCondition(*i.ItemCondition) {
			return ErrInvalidCondition
		}
		if i.Price == nil {
			return ErrPriceRequired
		}
	}
	if i.Price != nil && *i.Price < 0 {
		return ErrNegativePrice
	}
	return nil
}
