package domain

import "context"

type contextKey string

const (
	requestedDomainKey contextKey = "requested_domain"
	memberEmailKey     contextKey = "member_email"
)

// WithCaller stores the caller's requested domain and email in the context
func WithCaller(ctx context.Context, domain, email string) context.Context {
	ctx = context.WithValue(ctx, requestedDomainKey, domain)
	return context.WithValue(ctx, memberEmailKey, email)
}

// GetCallerFromContext returns the requested domain and email set by WithCaller
func GetCallerFromContext(ctx context.Context) (string, string) {
	domain, _ := ctx.Value(requestedDomainKey).(string)
	email, _ := ctx.Value(memberEmailKey).(string)
	return domain, email
}
