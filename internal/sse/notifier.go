package sse

import (
	"time"

	"github.com/GTDGit/photoverify_api/internal/models"
	"github.com/GTDGit/photoverify_api/internal/verification"
)

// HubNotifier publishes photo status changes on the SSE Hub.
type HubNotifier struct {
	hub *Hub
	now func() time.Time
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub, now: time.Now}
}

func (n *HubNotifier) PhotoVerified(p *models.VerificationPhoto) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(n.photoToEvent(EventPhotoVerified, p))
}

func (n *HubNotifier) PhotoReviewed(p *models.VerificationPhoto) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(n.photoToEvent(EventPhotoReviewed, p))
}

func (n *HubNotifier) photoToEvent(eventType EventType, p *models.VerificationPhoto) *PhotoEvent {
	return &PhotoEvent{
		Event:              eventType,
		PhotoID:            p.ID,
		LoanID:             p.LoanID,
		DrawID:             p.DrawID,
		Status:             string(p.VerificationStatus),
		Label:              verification.StatusLabel(p.VerificationStatus),
		Color:              string(verification.StatusColor(p.VerificationStatus)),
		GPSMatchConfidence: string(p.GPSMatchConfidence),
		VerifiedBy:         p.VerifiedBy,
		Timestamp:          n.now().UTC(),
	}
}
