package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "doctor_agent"

var (
	AppointmentsBooked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "appointments_booked_total",
		Help:      "Appointments created and left waiting for notification confirmation.",
	})

	// BookingConfirmations counts resolved confirmations by outcome (confirmed, declined, expired).
	BookingConfirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_confirmations_total",
		Help:      "Resolved booking confirmations by outcome.",
	}, []string{"outcome"})

	// Notifications counts email attempts by result (sent, failed).
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Appointment notification attempts by result.",
	}, []string{"result"})

	ToolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_invocations_total",
		Help:      "Assistant tool invocations by tool name and result.",
	}, []string{"tool", "result"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
