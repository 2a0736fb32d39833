// Package chat owns the live conversation: the message list of the active
// session, the turn state machine that streams model replies into it, and
// write-back of settled sessions to the history store.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/thinkchat/internal/types"
	"github.com/user/thinkchat/pkg/llm"
)

var (
	// ErrBusy is returned when an operation is attempted while a turn is in flight.
	ErrBusy = errors.New("a response is still streaming")
	// ErrUnknownSession is returned for session ids missing from the index.
	ErrUnknownSession = errors.New("unknown session")
)

// Status is the turn state of the orchestrator.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSending Status = "sending"
	StatusErrored Status = "errored"
)

// Snapshot is the observable state handed to the presentation layer.
// Messages is a copy the caller may keep.
type Snapshot struct {
	SessionID types.SessionID
	Title     string
	Messages  []types.Message
	IsLoading bool
	Err       string
	Status    Status
}

// Fitter trims stored history before it is replayed into a new session.
type Fitter interface {
	Fit(systemPrompt string, history []types.Message) []types.Message
}

// Options configures an Orchestrator.
type Options struct {
	Provider     llm.Provider
	Store        types.HistoryStore
	SystemPrompt string
	Fitter       Fitter // optional
}

// Orchestrator drives turns against the active session. Only one
// operation runs at a time: a send, clear, switch or delete started while
// another is in flight fails with ErrBusy.
type Orchestrator struct {
	provider     llm.Provider
	store        types.HistoryStore
	fitter       Fitter
	systemPrompt string
	logger       *slog.Logger

	// held for the whole of any state-changing operation
	turn *semaphore.Weighted

	mu        sync.Mutex
	reducer   *Reducer
	session   llm.Session
	initErr   error
	index     types.SessionIndex
	activeID  types.SessionID
	status    Status
	errMsg    string
	listeners map[int]func(Snapshot)
	nextSub   int
}

// New loads the history index, restores the last active session when it
// still exists, and starts a remote session for it. A provider that cannot
// start is returned as *llm.InitError.
func New(ctx context.Context, opts Options) (*Orchestrator, error) {
	o := &Orchestrator{
		provider:     opts.Provider,
		store:        opts.Store,
		fitter:       opts.Fitter,
		systemPrompt: opts.SystemPrompt,
		logger:       slog.Default().With("component", "chat"),
		turn:         semaphore.NewWeighted(1),
		reducer:      NewReducer(),
		status:       StatusIdle,
		listeners:    make(map[int]func(Snapshot)),
	}

	o.index = o.store.Load(ctx)
	if id, ok := o.store.LoadActiveID(ctx); ok {
		if s, exists := o.index[id]; exists {
			o.activeID = id
			o.reducer.Load(s.Messages)
		} else {
			o.logger.Debug("last active session no longer exists", "session_id", string(id))
		}
	}

	session, err := o.startSession(ctx, o.reducer.Messages())
	if err != nil {
		return nil, err
	}
	o.session = session

	o.logger.Debug("chat ready", "sessions", len(o.index), "active", string(o.activeID))
	return o, nil
}

// startSession opens a remote session replaying messages as context.
func (o *Orchestrator) startSession(ctx context.Context, messages []types.Message) (llm.Session, error) {
	history := messages
	if o.fitter != nil {
		history = o.fitter.Fit(o.systemPrompt, history)
	}

	session, err := o.provider.Start(ctx, o.systemPrompt, toWire(history))
	if err != nil {
		var initErr *llm.InitError
		if !errors.As(err, &initErr) {
			err = &llm.InitError{Provider: "llm", Err: err}
		}
		return nil, err
	}
	return session, nil
}

// toWire converts stored messages to provider history. Attachments are not
// replayed.
func toWire(messages []types.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		role := llm.RoleUser
		if m.Role == types.RoleModel {
			role = llm.RoleModel
		}
		out = append(out, llm.Message{Role: role, Text: m.Text})
	}
	return out
}

// SendMessage runs one turn. Blank text without an image is ignored. The
// turn's outcome is reflected in State; a failed turn leaves an
// "Error: ..." model message, sets Err, and is also returned.
func (o *Orchestrator) SendMessage(ctx context.Context, text string, image *types.Attachment, fileName string) error {
	if strings.TrimSpace(text) == "" && image == nil {
		return nil
	}
	if !o.turn.TryAcquire(1) {
		return ErrBusy
	}
	defer o.turn.Release(1)

	o.mu.Lock()
	created := false
	if o.activeID == "" {
		o.activeID = types.NewSessionID()
		created = true
	}
	sessionID := o.activeID
	o.reducer.AppendUser(text, image, fileName)
	placeholder, err := o.reducer.AppendPlaceholderModel()
	if err != nil {
		o.mu.Unlock()
		return fmt.Errorf("start turn: %w", err)
	}
	o.status = StatusSending
	o.errMsg = ""
	remote, initErr := o.session, o.initErr
	o.mu.Unlock()
	o.notify()

	// Persisting must survive a cancelled turn.
	persistCtx := context.WithoutCancel(ctx)
	if created {
		if err := o.store.SaveActiveID(persistCtx, sessionID); err != nil {
			o.logger.Warn("failed to save active session", "session_id", string(sessionID), "error", err)
		}
	}

	var turnErr error
	if remote == nil {
		turnErr = initErr
		if turnErr == nil {
			turnErr = &llm.InitError{Provider: "llm", Err: errors.New("chat not initialized")}
		}
	} else {
		var inline *llm.InlineData
		if image != nil {
			inline = &llm.InlineData{Data: image.Data, MimeType: image.MimeType}
		}
		start := time.Now()
		fragments := 0
		for full, err := range remote.SendTurn(ctx, text, inline) {
			if err != nil {
				turnErr = err
				break
			}
			fragments++
			o.mu.Lock()
			patchErr := o.reducer.PatchModel(placeholder, full)
			o.mu.Unlock()
			if patchErr != nil {
				turnErr = patchErr
				break
			}
			o.notify()
		}
		o.logger.Debug("turn finished", "session_id", string(sessionID), "fragments", fragments, "duration", time.Since(start), "error", turnErr)
	}

	o.mu.Lock()
	if turnErr != nil {
		o.reducer.PatchModel(placeholder, "Error: "+turnErr.Error())
		o.status = StatusErrored
		o.errMsg = turnErr.Error()
	} else {
		o.status = StatusIdle
	}
	o.reducer.Freeze()
	o.recordLocked(sessionID)
	snapshot := o.index.Clone()
	o.mu.Unlock()
	o.notify()

	if err := o.store.Save(persistCtx, snapshot); err != nil {
		o.logger.Warn("failed to save chat history", "error", err)
	}

	if turnErr != nil {
		o.logger.Error("turn failed", "session_id", string(sessionID), "error", turnErr)
	}
	return turnErr
}

// recordLocked copies the reducer into the index entry for id. The title is
// derived on first population only. Caller must hold o.mu.
func (o *Orchestrator) recordLocked(id types.SessionID) {
	now := time.Now().UTC()
	s, ok := o.index[id]
	if !ok {
		s = &types.Session{CreatedAt: now}
		o.index[id] = s
	}
	s.Messages = o.reducer.Messages()
	if s.Title == "" {
		s.Title = types.DeriveTitle(s.Messages)
	}
	s.UpdatedAt = now
}

// ClearChat enters new-chat state: empty list, no active session, and a
// fresh remote session with no history.
func (o *Orchestrator) ClearChat(ctx context.Context) error {
	if !o.turn.TryAcquire(1) {
		return ErrBusy
	}
	defer o.turn.Release(1)

	session, err := o.startSession(ctx, nil)

	o.mu.Lock()
	o.reducer.Reset()
	o.activeID = ""
	o.setSessionLocked(session, err)
	o.mu.Unlock()

	if cerr := o.store.ClearActiveID(context.WithoutCancel(ctx)); cerr != nil {
		o.logger.Warn("failed to clear active session", "error", cerr)
	}
	o.notify()
	return err
}

// setSessionLocked installs a new remote session, or records why there is
// none. Caller must hold o.mu.
func (o *Orchestrator) setSessionLocked(session llm.Session, err error) {
	o.session = session
	o.initErr = err
	if err != nil {
		o.status = StatusErrored
		o.errMsg = err.Error()
		return
	}
	o.status = StatusIdle
	o.errMsg = ""
}

// SwitchSession shows the stored session id and restarts the remote session
// with its history as context.
func (o *Orchestrator) SwitchSession(ctx context.Context, id types.SessionID) error {
	if !o.turn.TryAcquire(1) {
		return ErrBusy
	}
	defer o.turn.Release(1)

	o.mu.Lock()
	s, ok := o.index[id]
	var messages []types.Message
	if ok {
		messages = append(messages, s.Messages...)
	}
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("switch to %s: %w", id, ErrUnknownSession)
	}

	session, err := o.startSession(ctx, messages)

	o.mu.Lock()
	o.reducer.Load(messages)
	o.activeID = id
	o.setSessionLocked(session, err)
	o.mu.Unlock()

	if serr := o.store.SaveActiveID(context.WithoutCancel(ctx), id); serr != nil {
		o.logger.Warn("failed to save active session", "session_id", string(id), "error", serr)
	}
	o.notify()
	return err
}

// DeleteSession removes a stored session. Deleting the active session
// enters new-chat state.
func (o *Orchestrator) DeleteSession(ctx context.Context, id types.SessionID) error {
	if !o.turn.TryAcquire(1) {
		return ErrBusy
	}
	defer o.turn.Release(1)

	o.mu.Lock()
	if _, ok := o.index[id]; !ok {
		o.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, ErrUnknownSession)
	}
	delete(o.index, id)
	wasActive := id == o.activeID
	snapshot := o.index.Clone()
	o.mu.Unlock()

	persistCtx := context.WithoutCancel(ctx)
	if err := o.store.Save(persistCtx, snapshot); err != nil {
		o.logger.Warn("failed to save chat history", "error", err)
	}

	var err error
	if wasActive {
		var session llm.Session
		session, err = o.startSession(ctx, nil)
		o.mu.Lock()
		o.reducer.Reset()
		o.activeID = ""
		o.setSessionLocked(session, err)
		o.mu.Unlock()
		if cerr := o.store.ClearActiveID(persistCtx); cerr != nil {
			o.logger.Warn("failed to clear active session", "error", cerr)
		}
	}
	o.notify()
	return err
}

// State returns the current observable state.
func (o *Orchestrator) State() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: o.activeID,
		Messages:  o.reducer.Messages(),
		IsLoading: o.status == StatusSending,
		Err:       o.errMsg,
		Status:    o.status,
	}
	if s, ok := o.index[o.activeID]; ok {
		snap.Title = s.Title
	}
	return snap
}

// Subscribe registers fn to receive a snapshot after every state change.
// Calls happen on the goroutine that made the change, in order. The
// returned function unregisters fn.
func (o *Orchestrator) Subscribe(fn func(Snapshot)) (cancel func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSub
	o.nextSub++
	o.listeners[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.listeners, id)
	}
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	snap := o.snapshotLocked()
	ids := make([]int, 0, len(o.listeners))
	for id := range o.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, o.listeners[id])
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Sessions lists stored sessions, newest first.
func (o *Orchestrator) Sessions() []types.SessionSummary {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Summaries(o.index)
}

// Summaries lists the sessions of an index, newest first. Session ids are
// time-ordered, so newest first is descending id order.
func Summaries(index types.SessionIndex) []types.SessionSummary {
	out := make([]types.SessionSummary, 0, len(index))
	for id, s := range index {
		title := s.Title
		if title == "" {
			title = types.DefaultTitle
		}
		out = append(out, types.SessionSummary{
			ID:           id,
			Title:        title,
			MessageCount: len(s.Messages),
			UpdatedAt:    s.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].ID) != len(out[j].ID) {
			return len(out[i].ID) > len(out[j].ID)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
