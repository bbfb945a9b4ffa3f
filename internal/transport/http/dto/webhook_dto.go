package dto

type WebhookResponse struct {
	OK bool `json:"ok"`
}
