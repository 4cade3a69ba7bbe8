package snooze

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	authdomain "mailboard-backend/internal/auth/domain"
	maildomain "mailboard-backend/internal/mail/domain"
	"mailboard-backend/internal/mail/labels"
)

type fakeAccounts struct {
	acct *authdomain.LinkedAccount
}

func (f *fakeAccounts) Link(acct *authdomain.LinkedAccount) error { return nil }
func (f *fakeAccounts) FindByID(id string) (*authdomain.LinkedAccount, error) {
	return f.acct, nil
}
func (f *fakeAccounts) FindByUserAndProvider(userID, provider string) (*authdomain.LinkedAccount, error) {
	if f.acct != nil && f.acct.UserID == userID {
		return f.acct, nil
	}
	return nil, nil
}
func (f *fakeAccounts) FindByProviderIdentity(provider, providerID string) (*authdomain.LinkedAccount, error) {
	return nil, nil
}
func (f *fakeAccounts) ListByProvider(provider string) ([]*authdomain.LinkedAccount, error) {
	return nil, nil
}
func (f *fakeAccounts) UpdateTokens(acct *authdomain.LinkedAccount) error { return nil }

type modifyCall struct {
	messageID string
	add       []string
	remove    []string
}

type fakeProvider struct {
	labels    []*maildomain.Mailbox
	calls     []modifyCall
	modifyErr error
}

func (f *fakeProvider) ListLabels(ctx context.Context, acct *authdomain.LinkedAccount) ([]*maildomain.Mailbox, error) {
	out := make([]*maildomain.Mailbox, len(f.labels))
	copy(out, f.labels)
	return out, nil
}
func (f *fakeProvider) CreateLabel(ctx context.Context, acct *authdomain.LinkedAccount, name string) (*maildomain.Mailbox, error) {
	mb := &maildomain.Mailbox{ID: "Label_" + name, Name: name, Type: "user"}
	f.labels = append(f.labels, mb)
	return mb, nil
}
func (f *fakeProvider) ListMessageIDs(ctx context.Context, acct *authdomain.LinkedAccount, query string, max int64) ([]string, error) {
	return nil, nil
}
func (f *fakeProvider) GetMessage(ctx context.Context, acct *authdomain.LinkedAccount, messageID string) (*maildomain.Message, error) {
	return nil, nil
}
func (f *fakeProvider) ModifyMessageLabels(ctx context.Context, acct *authdomain.LinkedAccount, messageID string, add, remove []string) error {
	if f.modifyErr != nil {
		return f.modifyErr
	}
	f.calls = append(f.calls, modifyCall{messageID: messageID, add: add, remove: remove})
	return nil
}
func (f *fakeProvider) SendMessage(ctx context.Context, acct *authdomain.LinkedAccount, msg *maildomain.OutgoingMessage) error {
	return nil
}
func (f *fakeProvider) Watch(ctx context.Context, acct *authdomain.LinkedAccount, topicName string) error {
	return nil
}
func (f *fakeProvider) Stop(ctx context.Context, acct *authdomain.LinkedAccount) error { return nil }

type fakeSnoozes struct {
	records []*maildomain.SnoozeRecord
}

func (f *fakeSnoozes) Create(record *maildomain.SnoozeRecord) error {
	for _, r := range f.records {
		if r.UserID == record.UserID && r.MessageID == record.MessageID && r.Status == maildomain.SnoozeActive {
			r.Status = maildomain.SnoozeProcessed
		}
	}
	f.records = append(f.records, record)
	return nil
}
func (f *fakeSnoozes) FindDue(now time.Time) ([]*maildomain.SnoozeRecord, error) {
	var due []*maildomain.SnoozeRecord
	for _, r := range f.records {
		if r.Status == maildomain.SnoozeActive && !r.WakeUpTime.After(now) {
			due = append(due, r)
		}
	}
	return due, nil
}
func (f *fakeSnoozes) MarkProcessed(id string, at time.Time) error {
	for _, r := range f.records {
		if r.ID == id && r.Status == maildomain.SnoozeActive {
			r.Status = maildomain.SnoozeProcessed
			r.ProcessedAt = &at
		}
	}
	return nil
}
func (f *fakeSnoozes) ListActive(userID string, page, limit int) ([]*maildomain.SnoozeRecord, int, error) {
	var active []*maildomain.SnoozeRecord
	for _, r := range f.records {
		if r.UserID == userID && r.Status == maildomain.SnoozeActive {
			active = append(active, r)
		}
	}
	return active, len(active), nil
}

type fakeMessages struct {
	patches []modifyCall
}

func (f *fakeMessages) BulkUpsert(messages []*maildomain.Message) error { return nil }
func (f *fakeMessages) LatestMessageDate(userID string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}
func (f *fakeMessages) GetByMessageID(userID, messageID string) (*maildomain.Message, error) {
	return nil, nil
}
func (f *fakeMessages) GetByMessageIDs(userID string, messageIDs []string) ([]*maildomain.Message, error) {
	return nil, nil
}
func (f *fakeMessages) Recent(userID string, limit int) ([]*maildomain.Message, error) {
	return nil, nil
}
func (f *fakeMessages) ListByLabel(userID, labelID string, limit, offset int) ([]*maildomain.Message, int, error) {
	return nil, 0, nil
}
func (f *fakeMessages) PatchLabels(userID, messageID string, add, remove []string) error {
	f.patches = append(f.patches, modifyCall{messageID: messageID, add: add, remove: remove})
	return nil
}

func newTestScheduler() (*Scheduler, *fakeProvider, *fakeSnoozes, *fakeMessages) {
	provider := &fakeProvider{labels: []*maildomain.Mailbox{
		{ID: "INBOX", Name: "INBOX", Type: "inbox"},
		{ID: "Label_TODO", Name: "TODO", Type: "user"},
		{ID: "Label_DONE", Name: "DONE", Type: "user"},
		{ID: "Label_SNOOZED", Name: "SNOOZED", Type: "user"},
	}}
	snoozes := &fakeSnoozes{}
	messages := &fakeMessages{}
	accounts := &fakeAccounts{acct: &authdomain.LinkedAccount{
		ID: "acct-1", UserID: "user-1", Provider: authdomain.ProviderGoogle,
	}}
	directory := labels.NewDirectory(provider, accounts)
	return NewScheduler(snoozes, messages, provider, accounts, directory), provider, snoozes, messages
}

func TestSnoozeHidesBeforeRecording(t *testing.T) {
	s, provider, snoozes, _ := newTestScheduler()

	wake := time.Now().Add(time.Hour)
	record, err := s.Snooze(context.Background(), "user-1", "msg-1", wake)
	if err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	if record.Status != maildomain.SnoozeActive {
		t.Errorf("new record status = %s, want ACTIVE", record.Status)
	}

	if len(provider.calls) != 1 {
		t.Fatalf("expected one provider call, got %d", len(provider.calls))
	}
	call := provider.calls[0]
	if !reflect.DeepEqual(call.add, []string{"Label_SNOOZED"}) || !reflect.DeepEqual(call.remove, []string{"INBOX"}) {
		t.Errorf("snooze should swap INBOX for the snoozed label, got add=%v remove=%v", call.add, call.remove)
	}
	if len(snoozes.records) != 1 {
		t.Errorf("expected one record, got %d", len(snoozes.records))
	}
}

func TestSnoozeFailedHideCreatesNoRecord(t *testing.T) {
	s, provider, snoozes, _ := newTestScheduler()
	provider.modifyErr = errors.New("provider down")

	_, err := s.Snooze(context.Background(), "user-1", "msg-1", time.Now().Add(time.Hour))
	if err == nil {
		t.Fatal("expected error when the hide call fails")
	}
	if len(snoozes.records) != 0 {
		t.Error("no record may exist for a snooze that never took effect")
	}
}

func TestSweepProcessesDueExactlyOnce(t *testing.T) {
	s, provider, snoozes, _ := newTestScheduler()

	record := &maildomain.SnoozeRecord{
		ID: "rec-1", UserID: "user-1", MessageID: "msg-1",
		WakeUpTime: time.Now().Add(-time.Minute),
		Status:     maildomain.SnoozeActive,
	}
	snoozes.records = append(snoozes.records, record)

	if n := s.ProcessDue(context.Background()); n != 1 {
		t.Fatalf("first sweep processed %d, want 1", n)
	}
	if record.Status != maildomain.SnoozeProcessed {
		t.Errorf("record status = %s, want PROCESSED", record.Status)
	}
	if record.ProcessedAt == nil {
		t.Error("ProcessedAt not set")
	}
	if len(provider.calls) != 1 {
		t.Fatalf("expected one wake call, got %d", len(provider.calls))
	}
	call := provider.calls[0]
	if !reflect.DeepEqual(call.add, []string{"INBOX"}) || !reflect.DeepEqual(call.remove, []string{"Label_SNOOZED"}) {
		t.Errorf("wake should swap the snoozed label back for INBOX, got add=%v remove=%v", call.add, call.remove)
	}

	// A second sweep finds nothing to do.
	if n := s.ProcessDue(context.Background()); n != 0 {
		t.Errorf("second sweep processed %d, want 0", n)
	}
	if len(provider.calls) != 1 {
		t.Error("processed records must never be reprocessed")
	}
}

func TestSweepFailureLeavesRecordActive(t *testing.T) {
	s, provider, snoozes, _ := newTestScheduler()
	provider.modifyErr = errors.New("rate limited")

	record := &maildomain.SnoozeRecord{
		ID: "rec-1", UserID: "user-1", MessageID: "msg-1",
		WakeUpTime: time.Now().Add(-time.Minute),
		Status:     maildomain.SnoozeActive,
	}
	snoozes.records = append(snoozes.records, record)

	if n := s.ProcessDue(context.Background()); n != 0 {
		t.Fatalf("failed wake must not count as processed, got %d", n)
	}
	if record.Status != maildomain.SnoozeActive {
		t.Errorf("record status = %s, want ACTIVE for retry", record.Status)
	}

	// Provider recovers; the retry succeeds.
	provider.modifyErr = nil
	if n := s.ProcessDue(context.Background()); n != 1 {
		t.Fatalf("retry sweep processed %d, want 1", n)
	}
	if record.Status != maildomain.SnoozeProcessed {
		t.Errorf("record status after retry = %s, want PROCESSED", record.Status)
	}
}

func TestSweepUndueRecordsUntouched(t *testing.T) {
	s, _, snoozes, _ := newTestScheduler()

	record := &maildomain.SnoozeRecord{
		ID: "rec-1", UserID: "user-1", MessageID: "msg-1",
		WakeUpTime: time.Now().Add(time.Hour),
		Status:     maildomain.SnoozeActive,
	}
	snoozes.records = append(snoozes.records, record)

	if n := s.ProcessDue(context.Background()); n != 0 {
		t.Fatalf("future record processed early, got %d", n)
	}
	if record.Status != maildomain.SnoozeActive {
		t.Error("future record must stay ACTIVE")
	}
}

func TestSnoozeSupersedesPriorActive(t *testing.T) {
	s, _, _, _ := newTestScheduler()

	first, err := s.Snooze(context.Background(), "user-1", "msg-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Snooze(context.Background(), "user-1", "msg-1", time.Now().Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	if first.Status != maildomain.SnoozeProcessed {
		t.Errorf("superseded record status = %s, want PROCESSED", first.Status)
	}
	active, total, err := s.ListActive("user-1", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(active) != 1 {
		t.Fatalf("expected exactly one active record, got %d", total)
	}
}

// A snoozed message must carry the snoozed workflow label while it is out
// of the inbox, so the board's Snoozed column can list it, and must lose
// that label when it wakes. Both the provider and the local mirror see the
// same swaps.
func TestSnoozeWakeRoundTripSwapsLabels(t *testing.T) {
	s, provider, _, messages := newTestScheduler()

	if _, err := s.Snooze(context.Background(), "user-1", "msg-1", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	if n := s.ProcessDue(context.Background()); n != 1 {
		t.Fatalf("sweep processed %d, want 1", n)
	}

	if len(provider.calls) != 2 {
		t.Fatalf("expected hide and wake calls, got %d", len(provider.calls))
	}
	hide, wake := provider.calls[0], provider.calls[1]
	if !reflect.DeepEqual(hide.add, []string{"Label_SNOOZED"}) || !reflect.DeepEqual(hide.remove, []string{"INBOX"}) {
		t.Errorf("hide delta = add=%v remove=%v", hide.add, hide.remove)
	}
	if !reflect.DeepEqual(wake.add, []string{"INBOX"}) || !reflect.DeepEqual(wake.remove, []string{"Label_SNOOZED"}) {
		t.Errorf("wake delta = add=%v remove=%v", wake.add, wake.remove)
	}

	if len(messages.patches) != 2 {
		t.Fatalf("expected two mirror patches, got %d", len(messages.patches))
	}
	for i := range provider.calls {
		if !reflect.DeepEqual(messages.patches[i].add, provider.calls[i].add) ||
			!reflect.DeepEqual(messages.patches[i].remove, provider.calls[i].remove) {
			t.Errorf("mirror patch %d does not match the provider delta", i)
		}
	}
}
