package logger

import (
	"context"
	"sort"
)

type fieldsKey struct{}

type field struct {
	key   string
	value any
}

func fieldsFrom(ctx context.Context) []field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]field)
	return fields
}

// withFields copies the parent's fields so sibling contexts never share a
// backing array. A repeated key replaces the earlier value.
func withFields(ctx context.Context, add ...field) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	parent := fieldsFrom(ctx)
	next := make([]field, len(parent), len(parent)+len(add))
	copy(next, parent)
outer:
	for _, f := range add {
		for i := range next {
			if next[i].key == f.key {
				next[i].value = f.value
				continue outer
			}
		}
		next = append(next, f)
	}
	return context.WithValue(ctx, fieldsKey{}, next)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return withFields(ctx, field{key: key, value: value})
}

// WithFields attaches the map in key order so entries render stably.
func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	add := make([]field, 0, len(keys))
	for _, k := range keys {
		add = append(add, field{key: k, value: fields[k]})
	}
	return withFields(ctx, add...)
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

// WithListingID tags entries with the listing under negotiation.
func (l *Logger) WithListingID(ctx context.Context, listingID string) context.Context {
	return l.WithField(ctx, "listing_id", listingID)
}

func (l *Logger) WithOfferID(ctx context.Context, offerID string) context.Context {
	return l.WithField(ctx, "offer_id", offerID)
}

// WithSessionID tags entries with the gateway checkout session.
func (l *Logger) WithSessionID(ctx context.Context, sessionID string) context.Context {
	return l.WithField(ctx, "session_id", sessionID)
}

func (l *Logger) WithOrderID(ctx context.Context, orderID string) context.Context {
	return l.WithField(ctx, "order_id", orderID)
}
