package workflow

import "context"

type userAddressKey struct{}

// WithUserAddress attaches the caller's wallet address to ctx so tools can
// default to it.
func WithUserAddress(ctx context.Context, address string) context.Context {
	if address == "" {
		return ctx
	}
	return context.WithValue(ctx, userAddressKey{}, address)
}

// UserAddress returns the wallet address attached by WithUserAddress.
func UserAddress(ctx context.Context) string {
	addr, _ := ctx.Value(userAddressKey{}).(string)
	return addr
}
