package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/impexflow/backend-impex/internal/events"
)

func subjectFor(topic string, payload map[string]any) string {
	reference := stringField(payload, "reference")
	switch topic {
	case events.TopicEstimateCreated:
		return withReference("New landed cost estimate", reference)
	case events.TopicEstimateUpdated:
		return withReference("Landed cost estimate updated", reference)
	case events.TopicShipmentBooked:
		return withReference("Shipment booked", reference)
	case events.TopicShipmentStatusChanged:
		status := stringField(payload, "status")
		if status != "" {
			return withReference("Shipment "+strings.ToLower(strings.ReplaceAll(status, "_", " ")), reference)
		}
		return withReference("Shipment status update", reference)
	default:
		return fmt.Sprintf("Notification: %s", topic)
	}
}

func bodyFor(topic string, payload map[string]any, occurred time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event %s occurred at %s.", topic, occurred.Format(time.RFC3339))
	if reference := stringField(payload, "reference"); reference != "" {
		fmt.Fprintf(&b, "\nReference: %s", reference)
	}
	if supplier := stringField(payload, "supplier_name"); supplier != "" {
		fmt.Fprintf(&b, "\nSupplier: %s", supplier)
	}
	if status := stringField(payload, "status"); status != "" {
		fmt.Fprintf(&b, "\nStatus: %s", status)
	}
	if location := stringField(payload, "location"); location != "" {
		fmt.Fprintf(&b, "\nLocation: %s", location)
	}
	if total, ok := payload["total_cost_zar"].(float64); ok && total > 0 {
		fmt.Fprintf(&b, "\nTotal in-warehouse cost: R %.2f", total)
	}
	return b.String()
}

func withReference(subject, reference string) string {
	if reference == "" {
		return subject
	}
	return subject + " " + reference
}

func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if val, ok := payload[key].(string); ok {
		return strings.TrimSpace(val)
	}
	return ""
}
