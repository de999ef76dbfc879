package googleapi

import (
	"context"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func NewSheets(ctx context.Context, d Delegation, extra ...option.ClientOption) (*sheets.Service, error) {
	opts, err := optionsForDelegation(ctx, d, extra)
	if err != nil {
		return nil, err
	}
	return sheets.NewService(ctx, opts...)
}
