package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/google/uuid"

	"github.com/artpar/deploybot/internal/core/domain"
	"github.com/artpar/deploybot/internal/shell/store"
)

// MaxWebhookBodySize is the largest payload GitHub delivers.
const MaxWebhookBodySize = 25 << 20

var (
	// ErrInvalidSignature is returned when a payload signature does not match.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedPayload is returned when a payload cannot be decoded.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// EventMeta holds the delivery fields recorded for every event.
type EventMeta struct {
	Action     string
	Repository string
}

// =============================================================================
// Webhook Handler
// =============================================================================

func (h *Handler) handleGitHubWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "payload too large", "payload_too_large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "failed to read body", "invalid_body")
		return
	}

	contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || (contentType != "application/json" && contentType != "application/x-www-form-urlencoded") {
		h.writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json or application/x-www-form-urlencoded", "unsupported_media_type")
		return
	}

	payload, err := ValidatePayload(contentType, body, signature(r), h.webhookSecret)
	if err != nil {
		h.logger.Warn("rejected webhook", "error", err, "remote", r.RemoteAddr)
		h.writeError(w, http.StatusUnauthorized, err.Error(), "invalid_signature")
		return
	}

	eventName := github.WebHookType(r)
	if eventName == "" {
		h.writeError(w, http.StatusBadRequest, "missing "+github.EventTypeHeader+" header", "missing_event")
		return
	}

	deliveryID := github.DeliveryID(r)
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	ev, meta, err := DecodeEvent(eventName, payload)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "invalid_payload")
		return
	}

	logger := h.logger.With("delivery", deliveryID, "event", eventName, "action", meta.Action)

	recorded, err := h.store.RecordDelivery(r.Context(), store.Delivery{
		ID:         deliveryID,
		Event:      eventName,
		Action:     meta.Action,
		Repository: meta.Repository,
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		logger.Error("failed to record delivery", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to record delivery", "internal_error")
		return
	}
	if !recorded {
		logger.Info("duplicate delivery")
		h.writeJSON(w, http.StatusOK, WebhookResponse{Status: WebhookDuplicate, Delivery: deliveryID, Event: eventName})
		return
	}

	if ev == nil {
		logger.Debug("ignored webhook")
		h.writeJSON(w, http.StatusAccepted, WebhookResponse{Status: WebhookIgnored, Delivery: deliveryID, Event: eventName})
		return
	}

	logger.Info("accepted webhook", "kind", ev.Kind(), "repo", ev.Repository().FullName())
	h.events.Submit(ev)
	h.writeJSON(w, http.StatusAccepted, WebhookResponse{Status: WebhookAccepted, Delivery: deliveryID, Event: eventName})
}

// =============================================================================
// Signature
// =============================================================================

// signature returns the SHA-256 signature header, falling back to the
// legacy SHA-1 header.
func signature(r *http.Request) string {
	if sig := r.Header.Get(github.SHA256SignatureHeader); sig != "" {
		return sig
	}
	return r.Header.Get(github.SHA1SignatureHeader)
}

// ValidatePayload checks sig against body and returns the JSON payload,
// unwrapping form-encoded deliveries. A nil secret skips the check unless
// a signature was sent.
func ValidatePayload(contentType string, body []byte, sig string, secret []byte) ([]byte, error) {
	payload, err := github.ValidatePayloadFromBody(contentType, bytes.NewReader(body), sig, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return payload, nil
}

// =============================================================================
// Decoding
// =============================================================================

// DecodeEvent converts a webhook payload into a domain event. A nil event
// with a nil error means the delivery is valid but not acted on.
func DecodeEvent(name string, payload []byte) (domain.Event, EventMeta, error) {
	if github.EventForType(name) == nil {
		return nil, EventMeta{}, nil
	}

	parsed, err := github.ParseWebHook(name, payload)
	if err != nil {
		return nil, EventMeta{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	meta := eventMeta(parsed)

	switch e := parsed.(type) {
	case *github.PushEvent:
		if e.GetDeleted() || !strings.HasPrefix(e.GetRef(), "refs/heads/") {
			return nil, meta, nil
		}
		r := e.GetRepo()
		return domain.PushEvent{
			Repo: repository(r.GetOwner().GetLogin(), r.GetName(), r.GetFullName()),
			Ref:  e.GetRef(),
			SHA:  e.GetAfter(),
		}, meta, nil

	case *github.StatusEvent:
		branches := make([]string, 0, len(e.Branches))
		for _, b := range e.Branches {
			branches = append(branches, b.GetName())
		}
		return domain.StatusEvent{
			Repo:     repoOf(e.GetRepo()),
			SHA:      e.GetSHA(),
			State:    e.GetState(),
			Context:  e.GetContext(),
			Branches: branches,
		}, meta, nil

	case *github.CheckRunEvent:
		if e.GetAction() != "completed" {
			return nil, meta, nil
		}
		run := e.GetCheckRun()
		return domain.CheckRunEvent{
			Repo:       repoOf(e.GetRepo()),
			Name:       run.GetName(),
			HeadBranch: run.GetCheckSuite().GetHeadBranch(),
			HeadSHA:    run.GetHeadSHA(),
			Conclusion: run.GetConclusion(),
		}, meta, nil

	case *github.IssueCommentEvent:
		if e.GetAction() != "created" {
			return nil, meta, nil
		}
		issue := e.GetIssue()
		return domain.IssueCommentEvent{
			Repo:          repoOf(e.GetRepo()),
			IssueNumber:   issue.GetNumber(),
			IsPullRequest: issue != nil && issue.IsPullRequest(),
			Body:          e.GetComment().GetBody(),
			User:          e.GetComment().GetUser().GetLogin(),
		}, meta, nil

	case *github.PullRequestEvent:
		if e.GetAction() != "closed" {
			return nil, meta, nil
		}
		pr := e.GetPullRequest()
		return domain.PullRequestClosedEvent{
			Repo: repoOf(e.GetRepo()),
			PullRequest: domain.PullRequest{
				Number:  pr.GetNumber(),
				Title:   pr.GetTitle(),
				State:   pr.GetState(),
				HeadRef: pr.GetHead().GetRef(),
				HeadSHA: pr.GetHead().GetSHA(),
				BaseRef: pr.GetBase().GetRef(),
				User:    pr.GetUser().GetLogin(),
				URL:     pr.GetHTMLURL(),
			},
		}, meta, nil
	}

	return nil, meta, nil
}

// eventMeta reads the action and repository most events carry.
func eventMeta(parsed any) EventMeta {
	var meta EventMeta
	if a, ok := parsed.(interface{ GetAction() string }); ok {
		meta.Action = a.GetAction()
	}
	switch e := parsed.(type) {
	case *github.PushEvent:
		meta.Repository = e.GetRepo().GetFullName()
	case interface{ GetRepo() *github.Repository }:
		meta.Repository = e.GetRepo().GetFullName()
	}
	return meta
}

func repoOf(r *github.Repository) domain.Repository {
	return repository(r.GetOwner().GetLogin(), r.GetName(), r.GetFullName())
}

func repository(owner, name, fullName string) domain.Repository {
	repo := domain.Repository{Owner: owner, Name: name}
	if (repo.Owner == "" || repo.Name == "") && fullName != "" {
		if o, n, ok := strings.Cut(fullName, "/"); ok {
			repo = domain.Repository{Owner: o, Name: n}
		}
	}
	return repo
}
