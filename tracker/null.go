package tracker

import "context"

// NullSink discards every call. Safe for concurrent use, zero overhead.
type NullSink struct{}

// NewNullSink returns a Sink that records nothing.
func NewNullSink() *NullSink { return &NullSink{} }

func (*NullSink) Start(context.Context, StartInput) Handle { return NullHandle }
func (*NullSink) Complete(context.Context, Handle, map[string]interface{}) {}
func (*NullSink) Fail(context.Context, Handle, string) {}
func (*NullSink) MarkWaiting(context.Context, Handle) {}
func (*NullSink) MarkSkipped(context.Context, Handle, string) {}
