package enums

import "fmt"

// CancellationScope decides which items return to stock when a seller cancels.
type CancellationScope string

const (
	// CancellationScopeWholeOrder restores every item regardless of the acting seller.
	CancellationScopeWholeOrder CancellationScope = "whole_order"
	// CancellationScopeSellerItems restores only the acting seller's items.
	CancellationScopeSellerItems CancellationScope = "seller_items"
)

func (c CancellationScope) IsValid() bool {
	return c == CancellationScopeWholeOrder || c == CancellationScopeSellerItems
}

func ParseCancellationScope(value string) (CancellationScope, error) {
	scope := CancellationScope(value)
	if !scope.IsValid() {
		return "", fmt.Errorf("invalid cancellation scope %q", value)
	}
	return scope, nil
}
