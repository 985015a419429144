package handler

import (
	"encoding/json"

	"github.com/GTDGit/photoverify_api/internal/models"
	"github.com/GTDGit/photoverify_api/internal/verification"
)

// photoResponse decorates a photo with its display label and color, and inlines the
// stored verification details as a JSON object.
type photoResponse struct {
	*models.VerificationPhoto
	StatusLabel         string             `json:"statusLabel"`
	StatusColor         verification.Color `json:"statusColor"`
	VerificationDetails json.RawMessage    `json:"verificationDetails,omitempty"`
}

func newPhotoResponse(p *models.VerificationPhoto) photoResponse {
	resp := photoResponse{
		VerificationPhoto: p,
		StatusLabel:       verification.StatusLabel(p.VerificationStatus),
		StatusColor:       verification.StatusColor(p.VerificationStatus),
	}
	if p.VerificationDetails != nil && json.Valid([]byte(*p.VerificationDetails)) {
		resp.VerificationDetails = json.RawMessage(*p.VerificationDetails)
	}
	return resp
}

func newPhotoResponses(photos []models.VerificationPhoto) []photoResponse {
	out := make([]photoResponse, 0, len(photos))
	for i := range photos {
		out = append(out, newPhotoResponse(&photos[i]))
	}
	return out
}
