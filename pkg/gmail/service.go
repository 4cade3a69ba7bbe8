package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	authdomain "mailboard-backend/internal/auth/domain"
	maildomain "mailboard-backend/internal/mail/domain"
)

// TokenPersistFunc is called whenever the oauth2 transport refreshes an
// account's access token, so the new token can be written back to storage.
type TokenPersistFunc func(accountID string, token *oauth2.Token) error

type Service struct {
	clientID     string
	clientSecret string
	persist      TokenPersistFunc
}

type notifyTokenSource struct {
	src       oauth2.TokenSource
	current   *oauth2.Token
	accountID string
	persist   TokenPersistFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.persist != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.persist(s.accountID, t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token for account %s: %v", s.accountID, err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string, persist TokenPersistFunc) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		persist:      persist,
	}
}

// client builds a Gmail API client for the linked account, wrapping the
// token source so refreshed tokens are persisted.
func (s *Service) client(ctx context.Context, acct *authdomain.LinkedAccount) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  acct.AccessToken,
		RefreshToken: acct.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       acct.TokenExpiry,
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrapped := &notifyTokenSource{
		src:       config.TokenSource(ctx, token),
		current:   token,
		accountID: acct.ID,
		persist:   s.persist,
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, wrapped)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// ListLabels retrieves all labels from the account's mailbox.
func (s *Service) ListLabels(ctx context.Context, acct *authdomain.LinkedAccount) ([]*maildomain.Mailbox, error) {
	srv, err := s.client(ctx, acct)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Users.Labels.List("me").Do()
	if err != nil {
		return nil, mapAPIError(err, "unable to retrieve labels")
	}

	mailboxes := make([]*maildomain.Mailbox, 0, len(resp.Labels))
	for _, label := range resp.Labels {
		if label.Type != "system" && label.Type != "user" {
			continue
		}
		mailboxType := "user"
		if label.Type == "system" {
			mailboxType = strings.ToLower(label.Name)
		}
		mailboxes = append(mailboxes, &maildomain.Mailbox{
			ID:          label.Id,
			Name:        label.Name,
			Type:        mailboxType,
			UnreadCount: int(label.MessagesUnread),
		})
	}
	return mailboxes, nil
}

// CreateLabel creates a user label. Returns maildomain.ErrLabelExists when a
// label with the same name already exists.
func (s *Service) CreateLabel(ctx context.Context, acct *authdomain.LinkedAccount, name string) (*maildomain.Mailbox, error) {
	srv, err := s.client(ctx, acct)
	if err != nil {
		return nil, err
	}

	label := &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}
	created, err := srv.Users.Labels.Create("me", label).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 409 {
			return nil, maildomain.ErrLabelExists
		}
		return nil, mapAPIError(err, "unable to create label")
	}

	return &maildomain.Mailbox{
		ID:   created.Id,
		Name: created.Name,
		Type: "user",
	}, nil
}

// ListMessageIDs lists message IDs matching the query, newest first, up to max.
func (s *Service) ListMessageIDs(ctx context.Context, acct *authdomain.LinkedAccount, query string, max int64) ([]string, error) {
	srv, err := s.client(ctx, acct)
	if err != nil {
		return nil, err
	}

	call := srv.Users.Messages.List("me").MaxResults(max)
	if query != "" {
		call = call.Q(query)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, mapAPIError(err, "unable to list messages")
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, nil
}

// GetMessage fetches a single message in full and converts it to the domain shape.
func (s *Service) GetMessage(ctx context.Context, acct *authdomain.LinkedAccount, messageID string) (*maildomain.Message, error) {
	srv, err := s.client(ctx, acct)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", messageID).Format("full").Do()
	if err != nil {
		return nil, mapAPIError(err, "unable to retrieve message")
	}
	return convertMessage(acct.UserID, msg), nil
}

// ModifyMessageLabels adds and/or removes labels from a message.
func (s *Service) ModifyMessageLabels(ctx context.Context, acct *authdomain.LinkedAccount, messageID string, add, remove []string) error {
	srv, err := s.client(ctx, acct)
	if err != nil {
		return err
	}

	req := &gmail.ModifyMessageRequest{}
	if len(add) > 0 {
		req.AddLabelIds = add
	}
	if len(remove) > 0 {
		req.RemoveLabelIds = remove
	}

	if _, err := srv.Users.Messages.Modify("me", messageID, req).Do(); err != nil {
		return mapAPIError(err, "unable to modify message labels")
	}
	return nil
}

// SendMessage composes and sends an email from the linked account.
func (s *Service) SendMessage(ctx context.Context, acct *authdomain.LinkedAccount, out *maildomain.OutgoingMessage) error {
	srv, err := s.client(ctx, acct)
	if err != nil {
		return err
	}

	raw, err := buildMIME(out)
	if err != nil {
		return fmt.Errorf("unable to build message: %w", err)
	}

	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}
	if _, err := srv.Users.Messages.Send("me", msg).Do(); err != nil {
		return mapAPIError(err, "unable to send message")
	}
	return nil
}

// Watch sets up Pub/Sub push notifications for the account's inbox.
func (s *Service) Watch(ctx context.Context, acct *authdomain.LinkedAccount, topicName string) error {
	srv, err := s.client(ctx, acct)
	if err != nil {
		return err
	}

	// Only one push notification client is allowed per user, so clear any
	// existing watch first.
	_ = srv.Users.Stop("me").Do()

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{maildomain.LabelInbox},
	}
	resp, err := srv.Users.Watch("me", req).Do()
	if err != nil {
		return mapAPIError(err, "unable to watch mailbox")
	}
	log.Printf("[Gmail] Watch started for %s. Expiration: %d, HistoryId: %d", acct.ProviderID, resp.Expiration, resp.HistoryId)
	return nil
}

// Stop tears down push notifications for the account's mailbox.
func (s *Service) Stop(ctx context.Context, acct *authdomain.LinkedAccount) error {
	srv, err := s.client(ctx, acct)
	if err != nil {
		return err
	}
	if err := srv.Users.Stop("me").Do(); err != nil {
		return mapAPIError(err, "unable to stop mailbox watch")
	}
	return nil
}

// mapAPIError maps auth failures to the domain sentinel so callers can tell
// revoked credentials apart from transient errors.
func mapAPIError(err error, msg string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 401 || apiErr.Code == 403) {
		return fmt.Errorf("%s: %w", msg, maildomain.ErrUnauthorized)
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%s: %w", msg, maildomain.ErrUnauthorized)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func buildMIME(out *maildomain.OutgoingMessage) ([]byte, error) {
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(time.Now())
	from := &mail.Address{Name: out.FromName, Address: out.From}
	h.SetAddressList("From", []*mail.Address{from})
	to, err := mail.ParseAddressList(out.To)
	if err != nil {
		return nil, fmt.Errorf("invalid To address: %w", err)
	}
	h.SetAddressList("To", to)
	if out.Cc != "" {
		cc, err := mail.ParseAddressList(out.Cc)
		if err != nil {
			return nil, fmt.Errorf("invalid Cc address: %w", err)
		}
		h.SetAddressList("Cc", cc)
	}
	if out.Bcc != "" {
		bcc, err := mail.ParseAddressList(out.Bcc)
		if err != nil {
			return nil, fmt.Errorf("invalid Bcc address: %w", err)
		}
		h.SetAddressList("Bcc", bcc)
	}
	h.SetSubject(out.Subject)

	contentType := "text/plain"
	if out.HTML {
		contentType = "text/html"
	}
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, out.Body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// convertMessage maps a Gmail API message onto the domain Message.
func convertMessage(userID string, msg *gmail.Message) *maildomain.Message {
	from := getHeader(msg.Payload.Headers, "From")
	fromName := from
	if idx := strings.Index(from, "<"); idx > 0 {
		fromName = strings.TrimSpace(from[:idx])
	}

	body, isHTML := extractBody(msg.Payload)
	snippet := msg.Snippet
	if snippet == "" {
		snippet = body
		if isHTML {
			snippet = stripHTML(snippet)
		}
		snippet = strings.Join(strings.Fields(snippet), " ")
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
	}

	return &maildomain.Message{
		UserID:    userID,
		MessageID: msg.Id,
		ThreadID:  msg.ThreadId,
		Subject:   getHeader(msg.Payload.Headers, "Subject"),
		Snippet:   snippet,
		Body:      body,
		From:      from,
		FromName:  fromName,
		Date:      time.Unix(msg.InternalDate/1000, 0),
		LabelIDs:  append(maildomain.StringArray{}, msg.LabelIds...),
	}
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

func extractBody(payload *gmail.MessagePart) (string, bool) {
	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	var htmlBody, plainBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Body != nil && part.Body.Data != "" {
				data, err := base64.URLEncoding.DecodeString(part.Body.Data)
				if err == nil {
					switch part.MimeType {
					case "text/html":
						htmlBody = string(data)
					case "text/plain":
						plainBody = string(data)
					}
				}
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}
	findBody(payload.Parts)

	if htmlBody != "" {
		return htmlBody, true
	}
	return plainBody, false
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	return s
}
