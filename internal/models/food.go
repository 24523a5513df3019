// internal/models/food.go
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

type ReferenceKind string

const (
	BarcodeReference ReferenceKind = "barcode"
	NameReference    ReferenceKind = "name"
)

var ErrInvalidReference = errors.New("invalid food reference")

// FoodReference identifies what the user is trying to log. It is a lookup key
// and never stored on its own.
type FoodReference struct {
	Kind  ReferenceKind `json:"kind"`
	Value string        `json:"value"`
}

// NewBarcodeReference strips separators from code and pads 12-digit UPC-A
// codes to EAN-13.
func NewBarcodeReference(code string) (FoodReference, error) {
	var b strings.Builder
	for _, r := range code {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-':
		default:
			return FoodReference{}, fmt.Errorf("%w: barcode %q contains %q", ErrInvalidReference, code, r)
		}
	}
	digits := b.String()
	if len(digits) < 8 || len(digits) > 14 {
		return FoodReference{}, fmt.Errorf("%w: barcode %q must have 8-14 digits", ErrInvalidReference, code)
	}
	if len(digits) == 12 {
		digits = "0" + digits
	}
	return FoodReference{Kind: BarcodeReference, Value: digits}, nil
}

// NewNameReference lowercases the name and collapses whitespace.
func NewNameReference(name string) (FoodReference, error) {
	n := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if n == "" {
		return FoodReference{}, fmt.Errorf("%w: empty food name", ErrInvalidReference)
	}
	return FoodReference{Kind: NameReference, Value: n}, nil
}

// ParseReference normalizes a reference received from a client.
func ParseReference(kind, value string) (FoodReference, error) {
	switch ReferenceKind(strings.ToLower(kind)) {
	case BarcodeReference:
		return NewBarcodeReference(value)
	case NameReference, "":
		return NewNameReference(value)
	default:
		return FoodReference{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidReference, kind)
	}
}

// Key is the cache key for the reference.
func (r FoodReference) Key() string {
	return string(r.Kind) + ":" + r.Value
}

func (r FoodReference) String() string {
	return r.Key()
}

const ManualSourceName = "manual"

// FoodProfile is an immutable snapshot of a food's nutrient content as
// resolved from one source at one point in time.
type FoodProfile struct {
	ProfileID         string         `json:"profile_id"`
	Reference         FoodReference  `json:"reference"`
	SourceID          string         `json:"source_id"`
	SourceName        string         `json:"source_name"`
	Name              string         `json:"name"`
	Nutrients         NutrientVector `json:"nutrients"`
	ReferenceQuantity float64        `json:"reference_quantity"`
	ReferenceUnit     string         `json:"reference_unit"`

	// ServingQuantity and ServingUnit give the size of one serving when the
	// source publishes it, so "serving" quantities can be scaled.
	ServingQuantity float64   `json:"serving_quantity,omitempty"`
	ServingUnit     string    `json:"serving_unit,omitempty"`
	ResolvedAt      time.Time `json:"resolved_at"`
}

// Snapshot returns a copy that shares no memory with p.
func (p FoodProfile) Snapshot() FoodProfile {
	s := p
	s.Nutrients = p.Nutrients.Clone()
	return s
}
