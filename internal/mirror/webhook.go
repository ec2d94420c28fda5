package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookTarget posts each mirror row as JSON to an external collector,
// typically a sheet-automation endpoint run by the organizers.
type WebhookTarget struct {
	client *resty.Client
}

var _ Target = (*WebhookTarget)(nil)

func NewWebhookTarget(url string) *WebhookTarget {
	client := resty.New().
		SetBaseURL(url).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &WebhookTarget{client: client}
}

func (t *WebhookTarget) Name() string { return "webhook" }

func (t *WebhookTarget) Upsert(ctx context.Context, row Row) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(row).
		Post("")
	if err != nil {
		return fmt.Errorf("post mirror row: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mirror webhook returned %s", resp.Status())
	}
	return nil
}
