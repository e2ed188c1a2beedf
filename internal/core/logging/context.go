package logging

import "context"

type fieldsKey struct{}

// Fields are the edit attributes carried on a context and stamped onto every
// log event written with that context.
type Fields struct {
	ResourceID string
	Operation  string
	// Attempt is 1 for the first write of an edit and 2 for its replay after
	// a conflict. Zero means the context is not inside a write.
	Attempt int
}

// FromContext returns the fields carried by ctx.
func FromContext(ctx context.Context) Fields {
	if ctx == nil {
		return Fields{}
	}
	f, _ := ctx.Value(fieldsKey{}).(Fields)
	return f
}

func with(ctx context.Context, fn func(*Fields)) context.Context {
	f := FromContext(ctx)
	fn(&f)
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithResourceID records the versioned resource being edited.
func WithResourceID(ctx context.Context, resourceID string) context.Context {
	return with(ctx, func(f *Fields) { f.ResourceID = resourceID })
}

// WithOperation records the name of the edit being applied.
func WithOperation(ctx context.Context, op string) context.Context {
	return with(ctx, func(f *Fields) { f.Operation = op })
}

// WithAttempt records which write attempt of the edit is running.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return with(ctx, func(f *Fields) { f.Attempt = attempt })
}
