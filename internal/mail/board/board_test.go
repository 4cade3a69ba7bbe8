package board

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

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

type fakeProvider struct {
	labels     []*maildomain.Mailbox
	modifyAdd  []string
	modifyRem  []string
	modifyMsg  string
	modifyHits int
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
	f.modifyHits++
	f.modifyMsg = messageID
	f.modifyAdd = add
	f.modifyRem = remove
	return nil
}
func (f *fakeProvider) SendMessage(ctx context.Context, acct *authdomain.LinkedAccount, msg *maildomain.OutgoingMessage) error {
	return nil
}
func (f *fakeProvider) Watch(ctx context.Context, acct *authdomain.LinkedAccount, topicName string) error {
	return nil
}
func (f *fakeProvider) Stop(ctx context.Context, acct *authdomain.LinkedAccount) error { return nil }

type fakeColumns struct {
	columns    []*maildomain.KanbanColumn
	updateHits int
}

func (f *fakeColumns) GetColumnsByUserID(userID string) ([]*maildomain.KanbanColumn, error) {
	var out []*maildomain.KanbanColumn
	for _, c := range f.columns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}
func (f *fakeColumns) GetColumnByID(userID, columnID string) (*maildomain.KanbanColumn, error) {
	for _, c := range f.columns {
		if c.UserID == userID && c.ColumnID == columnID {
			return c, nil
		}
	}
	return nil, nil
}
func (f *fakeColumns) CreateColumn(column *maildomain.KanbanColumn) error {
	if column.ID == "" {
		column.ID = uuid.New().String()
	}
	if column.ColumnID == "" {
		column.ColumnID = uuid.New().String()
	}
	f.columns = append(f.columns, column)
	return nil
}
func (f *fakeColumns) UpdateColumn(userID, columnID string, patch maildomain.ColumnPatch) (*maildomain.KanbanColumn, error) {
	f.updateHits++
	col, _ := f.GetColumnByID(userID, columnID)
	if col == nil {
		return nil, maildomain.ErrColumnNotFound
	}
	if patch.Title != nil {
		col.Title = *patch.Title
	}
	if patch.TargetLabel != nil {
		col.TargetLabel = *patch.TargetLabel
	}
	if patch.Color != nil {
		col.Color = *patch.Color
	}
	if patch.Order != nil {
		col.Order = *patch.Order
	}
	return col, nil
}
func (f *fakeColumns) DeleteColumn(userID, columnID string) error {
	out := f.columns[:0]
	for _, c := range f.columns {
		if !(c.UserID == userID && c.ColumnID == columnID) {
			out = append(out, c)
		}
	}
	f.columns = out
	return nil
}
func (f *fakeColumns) UpdateColumnOrders(userID string, orders map[string]int) error {
	for _, c := range f.columns {
		if c.UserID != userID {
			continue
		}
		if o, ok := orders[c.ColumnID]; ok {
			c.Order = o
		}
	}
	return nil
}

type fakeMessages struct {
	patchedAdd []string
	patchedRem []string
	byLabel    map[string][]*maildomain.Message
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
	msgs := f.byLabel[labelID]
	return msgs, len(msgs), nil
}
func (f *fakeMessages) PatchLabels(userID, messageID string, add, remove []string) error {
	f.patchedAdd = add
	f.patchedRem = remove
	return nil
}

func newTestEngine() (*Engine, *fakeProvider, *fakeColumns, *fakeMessages) {
	provider := &fakeProvider{labels: []*maildomain.Mailbox{
		{ID: "INBOX", Name: "INBOX", Type: "inbox"},
	}}
	accounts := &fakeAccounts{acct: &authdomain.LinkedAccount{
		ID: "acct-1", UserID: "user-1", Provider: authdomain.ProviderGoogle,
	}}
	columns := &fakeColumns{}
	messages := &fakeMessages{byLabel: map[string][]*maildomain.Message{}}
	dir := labels.NewDirectory(provider, accounts)
	return NewEngine(columns, messages, dir, provider, accounts), provider, columns, messages
}

func TestComputeMoveDelta(t *testing.T) {
	cases := []struct {
		name       string
		source     string
		dest       string
		wantAdd    []string
		wantRemove []string
	}{
		{
			name:   "inbox to user label archives",
			source: "INBOX", dest: "Label_X",
			wantAdd: []string{"Label_X"}, wantRemove: []string{"INBOX"},
		},
		{
			name:   "user label back to inbox",
			source: "Label_A", dest: "INBOX",
			wantAdd: []string{"INBOX"}, wantRemove: []string{"Label_A"},
		},
		{
			name:   "snoozed source is never removed",
			source: "SNOOZED", dest: "Label_X",
			wantAdd: []string{"Label_X"}, wantRemove: []string{"INBOX"},
		},
		{
			name:   "no source column",
			source: "", dest: "Label_X",
			wantAdd: []string{"Label_X"}, wantRemove: []string{"INBOX"},
		},
		{
			name:   "same target never contradicts",
			source: "Label_X", dest: "Label_X",
			wantAdd: []string{"Label_X"}, wantRemove: []string{"INBOX"},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			add, remove := ComputeMoveDelta(c.source, c.dest)
			if !reflect.DeepEqual(add, c.wantAdd) {
				t.Errorf("add = %v, want %v", add, c.wantAdd)
			}
			if !reflect.DeepEqual(remove, c.wantRemove) {
				t.Errorf("remove = %v, want %v", remove, c.wantRemove)
			}
			for _, a := range add {
				for _, r := range remove {
					if a == r {
						t.Errorf("label %s appears in both add and remove", a)
					}
				}
			}
		})
	}
}

func TestGetConfigMaterializesDefaults(t *testing.T) {
	engine, provider, _, _ := newTestEngine()

	columns, err := engine.GetConfig(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if len(columns) != 4 {
		t.Fatalf("expected 4 default columns, got %d", len(columns))
	}

	titles := []string{columns[0].Title, columns[1].Title, columns[2].Title, columns[3].Title}
	want := []string{"Inbox", "To-Do", "Done", "Snoozed"}
	if !reflect.DeepEqual(titles, want) {
		t.Errorf("column titles = %v, want %v", titles, want)
	}

	// The To-Do column must be bound to the auto-created provider label.
	if columns[1].TargetLabel != "Label_TODO" {
		t.Errorf("To-Do target = %q, want provider label id", columns[1].TargetLabel)
	}
	found := false
	for _, mb := range provider.labels {
		if mb.ID == columns[1].TargetLabel {
			found = true
		}
	}
	if !found {
		t.Error("To-Do target label does not exist at the provider")
	}

	// Second call returns the same set without re-materializing.
	again, err := engine.GetConfig(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetConfig second call: %v", err)
	}
	if len(again) != 4 {
		t.Errorf("expected 4 columns on second call, got %d", len(again))
	}
}

func TestCreateColumnsDeduplicates(t *testing.T) {
	engine, _, _, _ := newTestEngine()

	if _, err := engine.GetConfig(context.Background(), "user-1"); err != nil {
		t.Fatal(err)
	}

	created, err := engine.CreateColumns(context.Background(), "user-1", []*maildomain.KanbanColumn{
		{ColumnID: "custom-1", Title: "Waiting", TargetLabel: "Label_WAIT", Order: -1},
		{ColumnID: "custom-1", Title: "Duplicate", TargetLabel: "Label_DUP", Order: -1},
		{Title: "Unnamed", TargetLabel: "Label_U", Order: -1},
	})
	if err != nil {
		t.Fatalf("CreateColumns: %v", err)
	}
	if len(created) != 6 {
		t.Fatalf("expected 6 columns (4 default + 2 new), got %d", len(created))
	}
	for _, col := range created {
		if col.ColumnID == "" {
			t.Error("column missing identifier")
		}
		if col.Title == "Duplicate" {
			t.Error("duplicate column id should have been skipped")
		}
	}
}

func TestDeleteColumnIdempotent(t *testing.T) {
	engine, _, _, _ := newTestEngine()

	if err := engine.DeleteColumn(context.Background(), "user-1", "no-such-column"); err != nil {
		t.Fatalf("deleting an unknown column must succeed, got %v", err)
	}
}

func TestUpdateColumnNotFound(t *testing.T) {
	engine, _, _, _ := newTestEngine()

	title := "Renamed"
	_, err := engine.UpdateColumn(context.Background(), "user-1", "no-such-column", maildomain.ColumnPatch{Title: &title})
	if err != maildomain.ErrColumnNotFound {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestUpdateColumnEmptyPatchLeavesColumnUnchanged(t *testing.T) {
	engine, _, columns, _ := newTestEngine()

	if _, err := engine.GetConfig(context.Background(), "user-1"); err != nil {
		t.Fatal(err)
	}
	all, _ := columns.GetColumnsByUserID("user-1")
	before := *all[1]

	got, err := engine.UpdateColumn(context.Background(), "user-1", before.ColumnID, maildomain.ColumnPatch{})
	if err != nil {
		t.Fatalf("UpdateColumn: %v", err)
	}
	if got.Title != before.Title || got.TargetLabel != before.TargetLabel ||
		got.Color != before.Color || got.Order != before.Order {
		t.Errorf("empty patch changed the column: got %+v, want %+v", got, before)
	}
	if columns.updateHits != 0 {
		t.Errorf("empty patch hit the store %d times, want 0", columns.updateHits)
	}

	// An empty patch against an unknown column still reports not found.
	if _, err := engine.UpdateColumn(context.Background(), "user-1", "no-such-column", maildomain.ColumnPatch{}); err != maildomain.ErrColumnNotFound {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestCreateColumnsOrderAssignment(t *testing.T) {
	engine, _, _, _ := newTestEngine()

	if _, err := engine.GetConfig(context.Background(), "user-1"); err != nil {
		t.Fatal(err)
	}

	// An explicit order is kept, zero included; a negative order means the
	// caller left the position open and the column goes to the tail.
	created, err := engine.CreateColumns(context.Background(), "user-1", []*maildomain.KanbanColumn{
		{ColumnID: "pinned", Title: "Pinned", TargetLabel: "Label_P", Order: 0},
		{ColumnID: "appended", Title: "Appended", TargetLabel: "Label_A", Order: -1},
	})
	if err != nil {
		t.Fatalf("CreateColumns: %v", err)
	}

	byID := make(map[string]*maildomain.KanbanColumn)
	maxOrder := 0
	for _, col := range created {
		byID[col.ColumnID] = col
		if col.Order > maxOrder {
			maxOrder = col.Order
		}
	}
	if byID["pinned"].Order != 0 {
		t.Errorf("explicit order 0 was reassigned to %d", byID["pinned"].Order)
	}
	if byID["appended"].Order != maxOrder {
		t.Errorf("unpositioned column got order %d, want tail %d", byID["appended"].Order, maxOrder)
	}
}

func TestMoveCardAppliesDelta(t *testing.T) {
	engine, provider, columns, messages := newTestEngine()

	if _, err := engine.GetConfig(context.Background(), "user-1"); err != nil {
		t.Fatal(err)
	}
	all, _ := columns.GetColumnsByUserID("user-1")
	inbox, todo := all[0], all[1]

	err := engine.MoveCard(context.Background(), "user-1", "msg-1", inbox.ColumnID, todo.ColumnID)
	if err != nil {
		t.Fatalf("MoveCard: %v", err)
	}

	if provider.modifyHits != 1 || provider.modifyMsg != "msg-1" {
		t.Fatalf("expected one provider modify for msg-1, got %d for %q", provider.modifyHits, provider.modifyMsg)
	}
	if !reflect.DeepEqual(provider.modifyAdd, []string{"Label_TODO"}) {
		t.Errorf("add = %v, want [Label_TODO]", provider.modifyAdd)
	}
	if !reflect.DeepEqual(provider.modifyRem, []string{"INBOX"}) {
		t.Errorf("remove = %v, want [INBOX]", provider.modifyRem)
	}

	// The mirror receives the same delta.
	if !reflect.DeepEqual(messages.patchedAdd, provider.modifyAdd) || !reflect.DeepEqual(messages.patchedRem, provider.modifyRem) {
		t.Error("mirror patch should match the provider delta")
	}
}

func TestMoveCardUnknownDestination(t *testing.T) {
	engine, _, _, _ := newTestEngine()

	err := engine.MoveCard(context.Background(), "user-1", "msg-1", "", "missing")
	if err != maildomain.ErrColumnNotFound {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}
