// Package feeshistory manages draft edits of the historical fee schedule.
// Drafts are validated as a whole and submitted by replacing the entire
// collection.
package feeshistory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/elektroapp/elektrodash/pkg/log"
	"github.com/elektroapp/elektrodash/pkg/types"
)

// DeleteCountdown is how long a delete stays armed before it can be
// confirmed.
const DeleteCountdown = 5 * time.Second

var (
	ErrNotFound        = errors.New("fee period not found")
	ErrCurrentEntry    = errors.New("the current fee period cannot be changed here")
	ErrCountdownActive = errors.New("delete confirmation countdown still running")
	ErrNotEditing      = errors.New("no fee period is being edited")
)

// Saver persists the whole fee history and returns it as stored.
type Saver interface {
	SaveFeesHistory(ctx context.Context, history []types.FeeScheduleInput) ([]types.FeeScheduleEntry, error)
}

// Entry is a draft together with its derived display state.
type Entry struct {
	Draft
	ValidTo          string `json:"valid_to"`
	IsCurrent        bool   `json:"is_current"`
	Editing          bool   `json:"editing"`
	ConfirmingDelete bool   `json:"confirming_delete"`
	Countdown        int    `json:"countdown"`
}

// State is a snapshot of the editor.
type State struct {
	Entries         []Entry `json:"entries"`
	EditingID       string  `json:"editing_id,omitempty"`
	ConfirmDeleteID string  `json:"confirm_delete_id,omitempty"`
	Countdown       int     `json:"countdown"`
	ValidationError string  `json:"validation_error,omitempty"`
}

// Editor is the state machine behind the fee history panel. It moves between
// viewing, editing one entry and confirming the delete of one entry.
type Editor struct {
	saver Saver
	now   func() time.Time

	mu              sync.Mutex
	history         []types.FeeScheduleEntry
	drafts          []Draft
	defaults        Values
	editingID       string
	confirmID       string
	confirmArmedAt  time.Time
	validationError string
}

// NewEditor returns an Editor that submits through saver. A nil now uses
// time.Now.
func NewEditor(saver Saver, now func() time.Time) *Editor {
	if now == nil {
		now = time.Now
	}
	return &Editor{saver: saver, now: now}
}

// SetDefaults sets the values newly added periods start with.
func (e *Editor) SetDefaults(v Values) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaults = v
}

// Reset replaces the drafts with history and returns to viewing.
func (e *Editor) Reset(history []types.FeeScheduleEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = history
	e.resetLocked()
}

func (e *Editor) resetLocked() {
	e.drafts = make([]Draft, 0, len(e.history))
	for _, h := range e.history {
		e.drafts = append(e.drafts, draftFromEntry(h))
	}
	e.editingID = ""
	e.disarmLocked()
	e.validationError = ""
}

func (e *Editor) disarmLocked() {
	e.confirmID = ""
	e.confirmArmedAt = time.Time{}
}

func (e *Editor) today() string {
	return e.now().Format(dateLayout)
}

func (e *Editor) countdownLocked() int {
	if e.confirmID == "" {
		return 0
	}
	remaining := DeleteCountdown - e.now().Sub(e.confirmArmedAt)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

// Countdown returns the seconds left before the armed delete can be
// confirmed, or 0.
func (e *Editor) Countdown() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countdownLocked()
}

// State returns the drafts sorted by effective_from with their derived state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	ranges := Ranges(e.drafts, e.today())
	countdown := e.countdownLocked()
	st := State{
		EditingID:       e.editingID,
		ConfirmDeleteID: e.confirmID,
		Countdown:       countdown,
		ValidationError: e.validationError,
	}
	for _, d := range sortDrafts(e.drafts) {
		r := ranges[d.ID]
		entry := Entry{
			Draft:            d,
			ValidTo:          r.ValidTo,
			IsCurrent:        r.IsCurrent,
			Editing:          d.ID == e.editingID,
			ConfirmingDelete: d.ID == e.confirmID,
		}
		if entry.ConfirmingDelete {
			entry.Countdown = countdown
		}
		st.Entries = append(st.Entries, entry)
	}
	return st
}

// Entries returns the drafts with their derived state.
func (e *Editor) Entries() []Entry {
	return e.State().Entries
}

func (e *Editor) indexLocked(id string) int {
	for i, d := range e.drafts {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Add inserts a new period covering the whole previous year, prefilled with
// the defaults, and starts editing it. It returns the new draft's ID.
func (e *Editor) Add() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	prevYear := strconv.Itoa(now.Year() - 1)
	d := Draft{
		ID:            "new-" + strconv.FormatInt(now.UnixMilli(), 10),
		EffectiveFrom: prevYear + "-01-01",
		EffectiveTo:   prevYear + "-12-31",
		Values:        e.defaults,
		IsNew:         true,
	}
	for e.indexLocked(d.ID) >= 0 {
		d.ID += "-1"
	}
	e.drafts = append([]Draft{d}, e.drafts...)
	e.editingID = d.ID
	e.disarmLocked()
	e.validationError = ""
	return d.ID
}

// Edit starts editing id. An open-ended period gets its resolved end date
// copied into effective_to first.
func (e *Editor) Edit(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	r := Ranges(e.drafts, e.today())[id]
	if r.IsCurrent {
		return ErrCurrentEntry
	}
	e.disarmLocked()
	if e.drafts[i].EffectiveTo == "" && r.ValidTo != "" {
		e.drafts[i].EffectiveTo = r.ValidTo
	}
	e.editingID = id
	return nil
}

// UpdateDraft applies fn to the draft id. Any armed delete is disarmed.
func (e *Editor) UpdateDraft(id string, fn func(*Draft)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.disarmLocked()
	i := e.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	d := e.drafts[i]
	fn(&d)
	d.ID = e.drafts[i].ID
	e.drafts[i] = d
	return nil
}

// Cancel drops all draft changes and returns to viewing.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

// CancelDelete disarms a pending delete confirmation.
func (e *Editor) CancelDelete() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disarmLocked()
}

// Save validates every draft and submits the collection. A validation
// failure is returned as *ValidationError and nothing is sent.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.editingID == "" {
		e.mu.Unlock()
		return ErrNotEditing
	}
	if err := Validate(e.drafts); err != nil {
		e.validationError = err.Error()
		e.mu.Unlock()
		return err
	}
	e.validationError = ""
	payload := BuildPayload(e.drafts)
	e.mu.Unlock()

	return e.submit(ctx, payload)
}

// Delete implements the two step delete. The first call arms the
// confirmation and returns false. Calls while the countdown runs return
// ErrCountdownActive. Once it has elapsed the entry is removed, the rest is
// validated and submitted, and Delete returns true.
func (e *Editor) Delete(ctx context.Context, id string) (bool, error) {
	e.mu.Lock()
	if e.indexLocked(id) < 0 {
		e.mu.Unlock()
		return false, ErrNotFound
	}
	if Ranges(e.drafts, e.today())[id].IsCurrent {
		e.mu.Unlock()
		return false, ErrCurrentEntry
	}
	if e.confirmID != id {
		e.confirmID = id
		e.confirmArmedAt = e.now()
		e.mu.Unlock()
		return false, nil
	}
	if e.countdownLocked() > 0 {
		e.mu.Unlock()
		return false, ErrCountdownActive
	}

	remaining := make([]Draft, 0, len(e.drafts))
	for _, d := range e.drafts {
		if d.ID != id {
			remaining = append(remaining, d)
		}
	}
	if err := Validate(remaining); err != nil {
		e.validationError = err.Error()
		e.disarmLocked()
		e.mu.Unlock()
		return false, err
	}
	e.validationError = ""
	payload := BuildPayload(remaining)
	e.mu.Unlock()

	if err := e.submit(ctx, payload); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Editor) submit(ctx context.Context, payload []types.FeeScheduleInput) error {
	history, err := e.saver.SaveFeesHistory(ctx, payload)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save fees history", slog.Any("error", err))
		return fmt.Errorf("failed to save fees history: %w", err)
	}
	log.Ctx(ctx).InfoContext(ctx, "saved fees history", slog.Int("periods", len(history)))
	e.Reset(history)
	return nil
}
