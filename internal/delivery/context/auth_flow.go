package context

import "context"

// AuthFlow identifies how a client wants its session delivered.
type AuthFlow string

const (
	// FlowWeb delivers the refresh token as an httpOnly cookie and nulls it
	// in response bodies.
	FlowWeb AuthFlow = "web"

	// FlowAPI delivers both tokens in the response body. This is the default
	// when the header is absent or carries any other value.
	FlowAPI AuthFlow = "api"

	// KeyAuthFlow is the key for storing the auth flow in context.
	KeyAuthFlow ContextKey = "auth_flow"

	// HeaderAuthFlow is the HTTP header clients use to select the flow.
	HeaderAuthFlow = "x-auth-flow"
)

// ParseAuthFlow maps a header value to a flow. Only the exact value "web"
// selects the cookie flow.
func ParseAuthFlow(headerValue string) AuthFlow {
	if headerValue == string(FlowWeb) {
		return FlowWeb
	}

	return FlowAPI
}

// WithAuthFlow returns a new context carrying the auth flow.
func WithAuthFlow(ctx context.Context, flow AuthFlow) context.Context {
	return context.WithValue(ctx, KeyAuthFlow, flow)
}

// GetAuthFlow extracts the auth flow from context, defaulting to FlowAPI.
func GetAuthFlow(ctx context.Context) AuthFlow {
	if flow, ok := ctx.Value(KeyAuthFlow).(AuthFlow); ok {
		return flow
	}

	return FlowAPI
}
