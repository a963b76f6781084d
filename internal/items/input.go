package items

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Faith-Anthony/presently/pkg/db/models"
	"github.com/Faith-Anthony/presently/pkg/enums"
	pkgerrors "github.com/Faith-Anthony/presently/pkg/errors"
)

// Item names feed into comma-separated share text, so a comma inside a name
// would corrupt it.
const nameForbiddenRune = ","

// BuildItem validates owner input and produces a fresh unpicked item row for
// the given wishlist.
func BuildItem(wishlistID uuid.UUID, input ItemInput) (*models.Item, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if strings.Contains(name, nameForbiddenRune) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name may not contain commas")
	}

	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	price, err := parsePrice(input.Price)
	if err != nil {
		return nil, err
	}

	currency, err := parseCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	return &models.Item{
		ID:          uuid.New(),
		WishlistID:  wishlistID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Quantity:    quantity,
		Price:       price,
		Currency:    currency,
		VendorLink:  strings.TrimSpace(input.VendorLink),
		ImageURL:    strings.TrimSpace(input.ImageURL),
		Status:      enums.ItemStatusUnpicked,
	}, nil
}

// ApplyUpdate mutates the row in place with the non-nil fields of the request.
// Status and reservation columns are out of reach on purpose.
func ApplyUpdate(item *models.Item, req UpdateItemRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
		}
		if strings.Contains(name, nameForbiddenRune) {
			return pkgerrors.New(pkgerrors.CodeValidation, "item name may not contain commas")
		}
		item.Name = name
	}
	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		item.Quantity = *req.Quantity
	}
	if req.Price != nil {
		price, err := parsePrice(*req.Price)
		if err != nil {
			return err
		}
		item.Price = price
	}
	if req.Currency != nil {
		currency, err := parseCurrency(*req.Currency)
		if err != nil {
			return err
		}
		item.Currency = currency
	}
	if req.VendorLink != nil {
		item.VendorLink = strings.TrimSpace(*req.VendorLink)
	}
	if req.ImageURL != nil {
		item.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	return nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	price, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid price %q", trimmed))
	}
	if price.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price may not be negative")
	}
	return price.Round(2), nil
}

func parseCurrency(raw string) (enums.Currency, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return enums.DefaultCurrency, nil
	}
	currency, err := enums.ParseCurrency(trimmed)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	return currency, nil
}
