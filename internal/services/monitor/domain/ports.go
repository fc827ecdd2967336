package domain

import "context"

// PullProducerPort is a poll-based content source. FetchRecent returns the
// newest items first; the ingestion loop applies the recency window and
// seen-item dedup on top
type PullProducerPort interface {
	Kind() SourceKind
	FetchRecent(ctx context.Context) ([]SourceItem, error)
}

// PushProducerPort is an event-driven content source. Run blocks, invoking
// onItem for every arriving item, until ctx is cancelled or the connection
// hard-fails. Channel and self-author filtering happen inside the producer;
// seen-item dedup is the loop's job
type PushProducerPort interface {
	Kind() SourceKind
	Run(ctx context.Context, onItem func(context.Context, SourceItem)) error
}

// ResolverPort converts an image reference into best-effort extracted text.
// ok is false when nothing usable came back; resolution never errors to the
// caller, a failed resolve is simply an empty result
type ResolverPort interface {
	Resolve(ctx context.Context, ref ImageRef) (text string, ok bool)
}

// NotifierPort delivers detections to the outside channel. Deliver reports
// delivered/not-delivered; the caller rolls back its code reservation on
// false. Report carries a periodic aggregate summary and may be a no-op
// per deployment configuration
type NotifierPort interface {
	Deliver(ctx context.Context, det Detection) bool
	Report(ctx context.Context, snap Snapshot) bool
}

// ArchivePort records accepted codes for history. Best-effort: failures are
// logged, never surfaced into the delivery path
type ArchivePort interface {
	Record(ctx context.Context, det Detection) error
}
