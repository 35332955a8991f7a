// ABOUTME: QQ open API gateway - posts group and direct messages over HTTP
// ABOUTME: Maps HTTP and gateway rejections onto the retryable/fatal taxonomy

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/message"
)

// DefaultBaseURL is the production QQ bot open API endpoint.
const DefaultBaseURL = "https://api.sgroup.qq.com"

// QQGateway dispatches messages to the QQ bot open API. It implements
// dispatch.Gateway. One HTTP call per attempt; retries are the dispatch
// layer's decision.
type QQGateway struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

// NewQQGateway creates a gateway against baseURL (DefaultBaseURL if empty).
func NewQQGateway(baseURL string, tokens TokenSource, logger *slog.Logger) *QQGateway {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QQGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		logger:  logger.With("component", "transport"),
	}
}

// messageRequest is the open API body for both group and direct messages.
type messageRequest struct {
	Content string            `json:"content"`
	MsgType int               `json:"msg_type"`
	MsgID   string            `json:"msg_id,omitempty"`
	MsgSeq  int64             `json:"msg_seq,omitempty"`
	Media   *message.MediaRef `json:"media,omitempty"`
}

// apiError is the open API error body.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Dispatch posts msg to the open API and classifies the result.
func (g *QQGateway) Dispatch(ctx context.Context, msg *message.Outbound) error {
	var path string
	switch msg.Key.Kind {
	case message.KindGroup:
		path = fmt.Sprintf("/v2/groups/%s/messages", msg.Key.ID)
	case message.KindUser:
		path = fmt.Sprintf("/v2/users/%s/messages", msg.Key.ID)
	default:
		return message.NewFatal(message.CodeInvalidType,
			fmt.Sprintf("unknown conversation kind: %q", msg.Key.Kind), nil)
	}

	body, err := json.Marshal(messageRequest{
		Content: msg.Content,
		MsgType: int(msg.Type),
		MsgID:   msg.MsgID,
		MsgSeq:  msg.Sequence,
		Media:   msg.Media,
	})
	if err != nil {
		return message.NewFatal(message.CodeGatewayRejected, "encoding message body", err)
	}

	token, err := g.tokens.Token(ctx)
	if err != nil {
		return message.NewRetryable(message.CodeUnknown, "fetching access token", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return message.NewFatal(message.CodeGatewayRejected, "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "QQBot "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isTimeout(err) {
			return message.NewRetryable(message.CodeTimeout, "gateway timeout", err)
		}
		return message.NewRetryable(message.CodeUnknown, "gateway unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	_ = json.Unmarshal(raw, &apiErr)
	reason := apiErr.Message
	if reason == "" {
		reason = strings.TrimSpace(string(raw))
	}

	g.logger.Debug("gateway rejection",
		"status", resp.StatusCode,
		"code", apiErr.Code,
		"reason", reason,
		"conversation", msg.Key.String())

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return message.NewRetryable(message.CodeThrottled,
			fmt.Sprintf("gateway throttled: %s", reason), nil)
	case resp.StatusCode >= 500:
		return message.NewRetryable(message.CodeUnknown,
			fmt.Sprintf("gateway error %d: %s", resp.StatusCode, reason), nil)
	case isSequenceConflict(reason):
		return message.NewRetryable(message.CodeSequenceConflict,
			fmt.Sprintf("gateway deduplicated msg_seq: %s", reason), nil)
	default:
		return message.NewFatal(message.CodeGatewayRejected,
			fmt.Sprintf("gateway rejected message (%d): %s", apiErr.Code, reason), nil)
	}
}

// isSequenceConflict matches the gateway's msg_seq-duplicate rejection, which
// it reports in the error text rather than a dedicated code.
func isSequenceConflict(reason string) bool {
	low := strings.ToLower(reason)
	return strings.Contains(low, "msgseq") ||
		strings.Contains(low, "msg_seq") ||
		strings.Contains(reason, "消息被去重")
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
