package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	ChannelFCM = "fcm"

	fcmScope           = "https://www.googleapis.com/auth/firebase.messaging"
	fcmDefaultEndpoint = "https://fcm.googleapis.com"
	fcmRequestTimeout  = 10 * time.Second
)

// FCM sends messages through the Firebase Cloud Messaging HTTP v1 API.
type FCM struct {
	projectID string
	endpoint  string
	client    *http.Client
}

// NewFCM loads service account credentials and builds an authorized client.
// It fails when the credentials cannot be read, so a misconfigured service
// never starts.
func NewFCM(ctx context.Context, projectID, credentialsFile string) (*FCM, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read fcm credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, fcmScope)
	if err != nil {
		return nil, fmt.Errorf("parse fcm credentials: %w", err)
	}
	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = fcmRequestTimeout
	return NewFCMWithClient(projectID, fcmDefaultEndpoint, client), nil
}

// NewFCMWithClient uses an already authorized HTTP client.
func NewFCMWithClient(projectID, endpoint string, client *http.Client) *FCM {
	if client == nil {
		client = &http.Client{Timeout: fcmRequestTimeout}
	}
	return &FCM{
		projectID: projectID,
		endpoint:  strings.TrimRight(endpoint, "/"),
		client:    client,
	}
}

func (f *FCM) Channel() string { return ChannelFCM }

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmResponse struct {
	Name string `json:"name"`
}

type fcmErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type      string `json:"@type"`
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

// Error is a non-2xx response from FCM.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("fcm: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps provider codes onto the package token errors.
func (e *Error) Unwrap() error {
	switch e.Code {
	case "UNREGISTERED":
		return ErrTokenNotRegistered
	case "INVALID_ARGUMENT":
		if strings.Contains(strings.ToLower(e.Message), "registration token") {
			return ErrInvalidToken
		}
	}
	return nil
}

func (f *FCM) Send(ctx context.Context, msg Message) (string, error) {
	body, err := json.Marshal(fcmRequest{Message: fcmMessage{
		Token:        msg.Token,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	}})
	if err != nil {
		return "", fmt.Errorf("encode fcm message: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", f.endpoint, f.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build fcm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fcm request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read fcm response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", parseFCMError(resp.StatusCode, raw)
	}

	var out fcmResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode fcm response: %w", err)
	}
	return out.Name, nil
}

func parseFCMError(status int, raw []byte) error {
	e := &Error{StatusCode: status, Message: strings.TrimSpace(string(raw))}
	var body fcmErrorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return e
	}
	e.Code = body.Error.Status
	if body.Error.Message != "" {
		e.Message = body.Error.Message
	}
	for _, d := range body.Error.Details {
		if d.ErrorCode != "" {
			e.Code = d.ErrorCode
			break
		}
	}
	return e
}
