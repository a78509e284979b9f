package projectstate

import (
	"fmt"
	"strings"

	"github.com/dalemusser/salesmake/internal/app/system/htmlsanitize"
	"github.com/dalemusser/salesmake/internal/app/system/limits"
	"github.com/dalemusser/salesmake/internal/domain/models"
)

// The ICP helpers turn a list operation on one section into a nested edit
// that replaces the whole section list. Items are trimmed; empty items are
// rejected, as are items over limits.MaxICPItemLen.

// AddICPItem appends item to section.
func AddICPItem(p models.Project, section, item string) (FieldEdit, error) {
	items, err := icpSection(p, section)
	if err != nil {
		return FieldEdit{}, err
	}
	item, err = icpItem(item)
	if err != nil {
		return FieldEdit{}, err
	}
	return Nested("ideal_customer_profile", section, append(items, item))
}

// EditICPItem replaces the item at index in section.
func EditICPItem(p models.Project, section string, index int, item string) (FieldEdit, error) {
	items, err := icpSection(p, section)
	if err != nil {
		return FieldEdit{}, err
	}
	if index < 0 || index >= len(items) {
		return FieldEdit{}, fmt.Errorf("%w: %s index %d out of range", ErrInvalidEdit, section, index)
	}
	item, err = icpItem(item)
	if err != nil {
		return FieldEdit{}, err
	}
	items[index] = item
	return Nested("ideal_customer_profile", section, items)
}

// RemoveICPItem drops the item at index in section.
func RemoveICPItem(p models.Project, section string, index int) (FieldEdit, error) {
	items, err := icpSection(p, section)
	if err != nil {
		return FieldEdit{}, err
	}
	if index < 0 || index >= len(items) {
		return FieldEdit{}, fmt.Errorf("%w: %s index %d out of range", ErrInvalidEdit, section, index)
	}
	items = append(items[:index], items[index+1:]...)
	return Nested("ideal_customer_profile", section, items)
}

// icpSection returns a private copy of the section list.
func icpSection(p models.Project, section string) ([]string, error) {
	items, ok := p.IdealCustomerProfile.Section(section)
	if !ok {
		return nil, fmt.Errorf("%w: unknown ICP section %q", ErrInvalidEdit, section)
	}
	return append([]string{}, items...), nil
}

func icpItem(s string) (string, error) {
	s = strings.TrimSpace(htmlsanitize.PlainText(s))
	if s == "" {
		return "", fmt.Errorf("%w: empty ICP item", ErrInvalidEdit)
	}
	if len(s) > limits.MaxICPItemLen {
		return "", fmt.Errorf("%w: ICP item longer than %d characters", ErrInvalidEdit, limits.MaxICPItemLen)
	}
	return s, nil
}
