package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/stemsi/exstem-client/internal/model"
)

// LogEvents uploads one batch of proctoring events. batchID travels as
// X-Batch-ID so server logs can correlate a batch with client logs.
func (c *Client) LogEvents(ctx context.Context, attemptID, batchID string, events []model.ViolationEvent) (*model.BatchReceipt, error) {
	var out model.BatchReceipt
	err := c.do(ctx, call{
		method:       http.MethodPost,
		path:         "/exam/" + url.PathEscape(attemptID) + "/proctoring",
		body:         model.EventBatch{Events: events},
		header:       http.Header{"X-Batch-ID": []string{batchID}},
		attemptRoute: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
