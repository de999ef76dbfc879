package googleapi

import (
	"context"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func NewGmail(ctx context.Context, d Delegation, extra ...option.ClientOption) (*gmail.Service, error) {
	opts, err := optionsForDelegation(ctx, d, extra)
	if err != nil {
		return nil, err
	}
	return gmail.NewService(ctx, opts...)
}
