package enums

// OutboxAggregateType is the kind of entity an outbox row belongs to.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregateUser      OutboxAggregateType = "user"
	AggregateImportJob OutboxAggregateType = "import_job"
)

func (a OutboxAggregateType) IsValid() bool {
	return member(a, []OutboxAggregateType{AggregateOrder, AggregateUser, AggregateImportJob})
}

// OutboxEventType names what happened. The relay routes on it.
type OutboxEventType string

const (
	EventOrderPlaced            OutboxEventType = "order_placed"
	EventUserRegistered         OutboxEventType = "user_registered"
	EventPasswordResetRequested OutboxEventType = "password_reset_requested"
	EventCatalogImportRequested OutboxEventType = "catalog_import_requested"
)

func (e OutboxEventType) IsValid() bool {
	return member(e, []OutboxEventType{
		EventOrderPlaced,
		EventUserRegistered,
		EventPasswordResetRequested,
		EventCatalogImportRequested,
	})
}

// OutboxDLQErrorReason says why a row was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
