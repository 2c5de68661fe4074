package rabbitmq

import (
	"encoding/json"
	"testing"
	"time"

	"safaisetu/models"

	"github.com/streadway/amqp"
)

func TestNewPublishing(t *testing.T) {
	at := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	ev := models.Event{
		Type:     models.EventReportStatusChanged,
		ReportID: "R1",
		From:     models.StatusPending,
		To:       models.StatusPendingVerification,
		At:       at,
	}
	p, err := newPublishing(ev, at)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if p.ContentType != "application/json" || p.DeliveryMode != amqp.Persistent || !p.Timestamp.Equal(at) {
		t.Errorf("unexpected publishing %+v", p)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(p.Body, &got); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	expect := map[string]interface{}{
		"type":      "report.status_changed",
		"report_id": "R1",
		"from":      "Pending",
		"to":        "Pending Verification",
		"at":        "2025-05-06T07:08:09Z",
	}
	for k, v := range expect {
		if got[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, got[k])
		}
	}
}

func TestNewPublishingRejectsUnencodable(t *testing.T) {
	if _, err := newPublishing(make(chan int), time.Now()); err == nil {
		t.Errorf("expected marshal error")
	}
}

func TestIsConnectedWithoutConnection(t *testing.T) {
	if (&Publisher{}).IsConnected() {
		t.Errorf("expected a publisher without a connection to report disconnected")
	}
}
