package events

// Topic constants for domain events emitted by the platform.
const (
	TopicEstimateCreated       = "estimate.created"
	TopicEstimateUpdated       = "estimate.updated"
	TopicShipmentBooked        = "shipment.booked"
	TopicShipmentStatusChanged = "shipment.status_changed"
	TopicNotificationSent      = "notification.sent"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicEstimateCreated,
		TopicEstimateUpdated,
		TopicShipmentBooked,
		TopicShipmentStatusChanged,
	}
}
