package usecases

import (
	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/webhook"
)

func resourcePayload(r domain.Resource, message string) webhook.ResourcePayload {
	return webhook.ResourcePayload{
		ResourceID: r.ID,
		Name:       r.Name,
		Status:     string(r.Status),
		Message:    message,
		Error:      r.Error,
	}
}

func searchPayload(s domain.SearchRequest, message string) webhook.SearchPayload {
	return webhook.SearchPayload{
		SearchID:      s.ID,
		Status:        string(s.Status),
		Message:       message,
		CredentialURL: s.CredentialURL,
		Error:         s.Error,
	}
}
