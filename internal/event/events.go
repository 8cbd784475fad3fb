package event

type Type string

const (
	ListingCreatedEvent      Type = "ListingCreatedEvent"
	ListingSoldEvent         Type = "ListingSoldEvent"
	ListingCanceledEvent     Type = "ListingCanceledEvent"
	FeeCollectedEvent        Type = "FeeCollectedEvent"
	FeesWithdrawnEvent       Type = "FeesWithdrawnEvent"
	FeeRateUpdatedEvent      Type = "FeeRateUpdatedEvent"
	PausedEvent              Type = "PausedEvent"
	UnpausedEvent            Type = "UnpausedEvent"
	OperatorTransferredEvent Type = "OperatorTransferredEvent"
	OperationRejectedEvent   Type = "OperationRejectedEvent"
)

// ActionEvents carry an entity.MarketplaceAction payload.
var ActionEvents = []Type{
	ListingCreatedEvent,
	ListingSoldEvent,
	ListingCanceledEvent,
	FeeCollectedEvent,
	FeesWithdrawnEvent,
	FeeRateUpdatedEvent,
	PausedEvent,
	UnpausedEvent,
	OperatorTransferredEvent,
}
