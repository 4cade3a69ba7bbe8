package board

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	authdomain "mailboard-backend/internal/auth/domain"
	authrepo "mailboard-backend/internal/auth/repository"
	maildomain "mailboard-backend/internal/mail/domain"
	"mailboard-backend/internal/mail/labels"
	mailrepo "mailboard-backend/internal/mail/repository"
)

// Engine projects labels onto Kanban columns and translates card moves
// into provider label deltas.
type Engine struct {
	columnRepo  mailrepo.KanbanColumnRepository
	messageRepo mailrepo.MessageRepository
	directory   *labels.Directory
	provider    maildomain.MailProvider
	accountRepo authrepo.AccountRepository
}

func NewEngine(
	columnRepo mailrepo.KanbanColumnRepository,
	messageRepo mailrepo.MessageRepository,
	directory *labels.Directory,
	provider maildomain.MailProvider,
	accountRepo authrepo.AccountRepository,
) *Engine {
	return &Engine{
		columnRepo:  columnRepo,
		messageRepo: messageRepo,
		directory:   directory,
		provider:    provider,
		accountRepo: accountRepo,
	}
}

// GetConfig returns the user's columns sorted by order, materializing the
// default four-column set on first access.
func (e *Engine) GetConfig(ctx context.Context, userID string) ([]*maildomain.KanbanColumn, error) {
	columns, err := e.columnRepo.GetColumnsByUserID(userID)
	if err != nil {
		return nil, err
	}
	if len(columns) > 0 {
		return columns, nil
	}
	return e.materializeDefaults(ctx, userID)
}

// materializeDefaults builds the Inbox / To-Do / Done / Snoozed set. To-Do
// and Done bind to the provider labels the directory just ensured exist;
// Inbox and Snoozed keep their reserved names and resolve at move time.
func (e *Engine) materializeDefaults(ctx context.Context, userID string) ([]*maildomain.KanbanColumn, error) {
	mailboxes, err := e.directory.GetMailboxes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to discover labels for default board: %w", err)
	}

	defaults := []*maildomain.KanbanColumn{
		{UserID: userID, Title: "Inbox", TargetLabel: maildomain.LabelInbox, Color: "#3b82f6", Order: 0},
		{UserID: userID, Title: "To-Do", TargetLabel: labels.ResolveLabelID(mailboxes, maildomain.LogicalTodo), Color: "#f59e0b", Order: 1},
		{UserID: userID, Title: "Done", TargetLabel: labels.ResolveLabelID(mailboxes, maildomain.LogicalDone), Color: "#10b981", Order: 2},
		{UserID: userID, Title: "Snoozed", TargetLabel: maildomain.LogicalSnoozed, Color: "#8b5cf6", Order: 3},
	}

	for _, col := range defaults {
		if err := e.columnRepo.CreateColumn(col); err != nil {
			return nil, fmt.Errorf("failed to create default column %s: %w", col.Title, err)
		}
	}

	log.Printf("[Board] Materialized default columns for user %s", userID)
	return e.columnRepo.GetColumnsByUserID(userID)
}

// CreateColumns appends columns to the user's set, assigning identifiers to
// columns lacking one and skipping identifiers that already exist.
func (e *Engine) CreateColumns(ctx context.Context, userID string, columns []*maildomain.KanbanColumn) ([]*maildomain.KanbanColumn, error) {
	existing, err := e.GetConfig(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(existing))
	order := 0
	for _, col := range existing {
		seen[col.ColumnID] = true
		if col.Order >= order {
			order = col.Order + 1
		}
	}

	for _, col := range columns {
		if col.ColumnID == "" {
			col.ColumnID = uuid.New().String()
		}
		if seen[col.ColumnID] {
			continue
		}
		seen[col.ColumnID] = true
		col.UserID = userID
		// A negative order means the caller did not pick a position;
		// those columns go to the tail in request order.
		if col.Order < 0 {
			col.Order = order
			order++
		}
		if err := e.columnRepo.CreateColumn(col); err != nil {
			return nil, err
		}
	}

	return e.columnRepo.GetColumnsByUserID(userID)
}

// UpdateColumn applies a sparse patch to one column. An empty patch
// changes nothing and returns the column as it stands.
func (e *Engine) UpdateColumn(ctx context.Context, userID, columnID string, patch maildomain.ColumnPatch) (*maildomain.KanbanColumn, error) {
	if patch.Empty() {
		col, err := e.columnRepo.GetColumnByID(userID, columnID)
		if err != nil {
			return nil, err
		}
		if col == nil {
			return nil, maildomain.ErrColumnNotFound
		}
		return col, nil
	}
	return e.columnRepo.UpdateColumn(userID, columnID, patch)
}

// DeleteColumn removes a column. Deleting an unknown id is a no-op; the
// column's messages and remote label are left untouched.
func (e *Engine) DeleteColumn(ctx context.Context, userID, columnID string) error {
	return e.columnRepo.DeleteColumn(userID, columnID)
}

// Reorder sets the display order of the given columns.
func (e *Engine) Reorder(ctx context.Context, userID string, orders map[string]int) error {
	return e.columnRepo.UpdateColumnOrders(userID, orders)
}

// GetColumnMessages returns the mirrored messages belonging to a column,
// newest first.
func (e *Engine) GetColumnMessages(ctx context.Context, userID, columnID string, limit, offset int) ([]*maildomain.Message, int, error) {
	col, err := e.columnRepo.GetColumnByID(userID, columnID)
	if err != nil {
		return nil, 0, err
	}
	if col == nil {
		return nil, 0, maildomain.ErrColumnNotFound
	}

	labelID, err := e.resolveTarget(ctx, userID, col.TargetLabel)
	if err != nil {
		return nil, 0, err
	}
	return e.messageRepo.ListByLabel(userID, labelID, limit, offset)
}

// MoveCard applies the label delta for moving a message between columns to
// the provider, then patches the local mirror with the same delta.
func (e *Engine) MoveCard(ctx context.Context, userID, messageID, sourceColumnID, destColumnID string) error {
	columns, err := e.columnRepo.GetColumnsByUserID(userID)
	if err != nil {
		return err
	}

	var source, dest *maildomain.KanbanColumn
	for _, col := range columns {
		if col.ColumnID == destColumnID {
			dest = col
		}
		if col.ColumnID == sourceColumnID {
			source = col
		}
	}
	if dest == nil {
		return maildomain.ErrColumnNotFound
	}

	sourceTarget := ""
	if source != nil {
		sourceTarget = source.TargetLabel
	}

	add, remove := ComputeMoveDelta(sourceTarget, dest.TargetLabel)

	acct, err := e.account(userID)
	if err != nil {
		return err
	}

	// Reserved names still in the delta resolve to real provider label IDs
	// here; unknown names pass through untouched.
	mailboxes, err := e.directory.GetMailboxes(ctx, userID)
	if err != nil {
		return err
	}
	add = resolveAll(mailboxes, add)
	remove = resolveAll(mailboxes, remove)

	if err := e.provider.ModifyMessageLabels(ctx, acct, messageID, add, remove); err != nil {
		return fmt.Errorf("failed to move card: %w", err)
	}

	if err := e.messageRepo.PatchLabels(userID, messageID, add, remove); err != nil {
		// The provider already applied the move; the mirror catches up on
		// the next sync pass.
		log.Printf("[Board] Failed to patch mirrored labels for message %s: %v", messageID, err)
	}
	return nil
}

func (e *Engine) account(userID string) (*authdomain.LinkedAccount, error) {
	acct, err := e.accountRepo.FindByUserAndProvider(userID, authdomain.ProviderGoogle)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, maildomain.ErrAccountNotFound
	}
	return acct, nil
}

func (e *Engine) resolveTarget(ctx context.Context, userID, target string) (string, error) {
	switch target {
	case maildomain.LabelInbox:
		return target, nil
	case maildomain.LogicalTodo, maildomain.LogicalDone, maildomain.LogicalSnoozed:
		return e.directory.FindLabelID(ctx, userID, target)
	default:
		return target, nil
	}
}

func resolveAll(mailboxes []*maildomain.Mailbox, labelNames []string) []string {
	out := make([]string, 0, len(labelNames))
	for _, name := range labelNames {
		if name == maildomain.LabelInbox {
			out = append(out, name)
			continue
		}
		out = append(out, labels.ResolveLabelID(mailboxes, name))
	}
	return out
}

// ComputeMoveDelta translates a move between two column targets into the
// label add/remove sets sent to the provider:
//   - the destination target is added ("INBOX" itself for the inbox column)
//   - any non-inbox destination also removes "INBOX" (archive semantics)
//   - the source target is removed, except "SNOOZED", which only the snooze
//     sweep removes
//   - a label in both sets stays in add and leaves remove, so one call never
//     carries contradictory instructions
func ComputeMoveDelta(sourceTarget, destTarget string) (add, remove []string) {
	add = append(add, destTarget)
	if destTarget != maildomain.LabelInbox {
		remove = append(remove, maildomain.LabelInbox)
	}
	if sourceTarget != "" && sourceTarget != maildomain.LogicalSnoozed {
		remove = append(remove, sourceTarget)
	}

	inAdd := make(map[string]bool, len(add))
	for _, l := range add {
		inAdd[l] = true
	}

	filtered := remove[:0]
	seen := make(map[string]bool, len(remove))
	for _, l := range remove {
		if inAdd[l] || seen[l] {
			continue
		}
		seen[l] = true
		filtered = append(filtered, l)
	}
	return add, filtered
}
