package basket

import (
	"encoding/json"

	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
)

// ItemsRequest is the body shared by every basket mutation.
type ItemsRequest struct {
	Items []json.RawMessage `json:"items"`
}

// ItemError explains why one entry of a batch was skipped.
type ItemError struct {
	Index   int            `json:"index"`
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
}

type AddResult struct {
	Created int         `json:"created"`
	Errors  []ItemError `json:"errors,omitempty"`
}

type UpdateResult struct {
	Updated int         `json:"updated"`
	Errors  []ItemError `json:"errors,omitempty"`
}

type RemoveResult struct {
	Deleted int         `json:"deleted"`
	Errors  []ItemError `json:"errors,omitempty"`
}

type addItem struct {
	ProductInfo *uint64 `json:"product_info"`
	Quantity    *int    `json:"quantity"`
}

type quantityItem struct {
	ID       *uint64 `json:"id"`
	Quantity *int    `json:"quantity"`
}
