package data

import (
	"context"
	"fmt"
	"net/url"

	"converse/internal/chat/stream"
)

// StreamOpener implements biz.StreamOpener: it builds the incremental
// message endpoint URL for a turn and hands it to the stream consumer.
type StreamOpener struct {
	client   *Client
	consumer *stream.Consumer
}

// NewStreamOpener creates a stream opener. consumer must use an HTTP
// client without a timeout (a turn is open-ended) but sharing the API
// client's cookie jar.
func NewStreamOpener(client *Client, consumer *stream.Consumer) *StreamOpener {
	return &StreamOpener{client: client, consumer: consumer}
}

// OpenStream opens the SSE connection for one turn
func (o *StreamOpener) OpenStream(ctx context.Context, projectID, userText string) (*stream.Handle, error) {
	endpoint := o.client.url(fmt.Sprintf("/projects/%s/messages/stream", projectID)) +
		"?content=" + url.QueryEscape(userText)
	return o.consumer.Open(ctx, endpoint)
}
