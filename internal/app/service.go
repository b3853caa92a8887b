package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"chronicle/reorder/internal/config"
	"chronicle/reorder/internal/document"
	"chronicle/reorder/internal/dragsession"
	"chronicle/reorder/internal/gitrepo"
	"chronicle/reorder/internal/layout"
	"chronicle/reorder/internal/ledger"
	"chronicle/reorder/internal/reorder"
	"chronicle/reorder/internal/store"
	"chronicle/reorder/internal/util"
)

const defaultActor = "system"

var documentIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

type gitService interface {
	EnsureDocumentRepo(string, gitrepo.Content, string) (bool, error)
	CommitContent(string, gitrepo.Content, string, string) (store.CommitInfo, error)
	GetHeadContent(string) (gitrepo.Content, store.CommitInfo, error)
	History(string, int) ([]store.CommitInfo, error)
}

type moveLog interface {
	InsertMoveEvent(context.Context, store.MoveEvent) (store.MoveEvent, error)
	ListMoveEvents(context.Context, string, int) ([]store.MoveEvent, error)
	Ping(context.Context) error
}

// GestureLedger deduplicates drops by gesture id.
type GestureLedger interface {
	Claim(context.Context, string, string, time.Duration) (bool, error)
	Complete(context.Context, string, string, []byte, time.Duration) error
	Lookup(context.Context, string, string) (ledger.Entry, bool, error)
	Release(context.Context, string, string) error
	Ping(context.Context) error
}

type measurer interface {
	Measure(context.Context, *document.Document) (*layout.Snapshot, error)
}

type CommitView struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type OutlineItem struct {
	Position int    `json:"position"`
	Size     int    `json:"size"`
	Index    int    `json:"index"`
	Type     string `json:"type"`
	NodeID   string `json:"nodeId,omitempty"`
}

type OutlineBlock struct {
	Position int           `json:"position"`
	Size     int           `json:"size"`
	Index    int           `json:"index"`
	Kind     string        `json:"kind"`
	Type     string        `json:"type"`
	NodeID   string        `json:"nodeId,omitempty"`
	Items    []OutlineItem `json:"items,omitempty"`
}

type Outline struct {
	DocumentID  string         `json:"documentId"`
	Title       string         `json:"title"`
	Head        CommitView     `json:"head"`
	ContentSize int            `json:"contentSize"`
	Blocks      []OutlineBlock `json:"blocks"`
}

type PutDocumentInput struct {
	Title string          `json:"title"`
	Doc   json.RawMessage `json:"doc"`
}

type MoveRequest struct {
	GestureID string `json:"gestureId"`
	reorder.Move
}

type MoveResponse struct {
	GestureID string         `json:"gestureId"`
	Duplicate bool           `json:"duplicate"`
	Changed   bool           `json:"changed"`
	Result    reorder.Result `json:"result"`
	Commit    *CommitView    `json:"commit,omitempty"`
	Outline   *Outline       `json:"outline,omitempty"`
}

type GestureRequest struct {
	GestureID string              `json:"gestureId"`
	Events    []dragsession.Event `json:"events"`
	// Snapshot is the client's measured frame. Without one the server
	// measures the document itself.
	Snapshot *layout.Snapshot `json:"snapshot,omitempty"`
}

type GestureResponse struct {
	MoveResponse
	Reason string        `json:"reason,omitempty"`
	Move   *reorder.Move `json:"move,omitempty"`
}

type MoveEventView struct {
	ID             int64     `json:"id"`
	GestureID      string    `json:"gestureId"`
	Depth          int       `json:"depth"`
	ParentPosition int       `json:"parentPosition"`
	FromIndex      int       `json:"fromIndex"`
	ToIndex        int       `json:"toIndex"`
	SiblingCount   int       `json:"siblingCount"`
	CommitHash     string    `json:"commitHash"`
	Actor          string    `json:"actor"`
	CreatedAt      time.Time `json:"createdAt"`
}

type History struct {
	Commits []CommitView    `json:"commits"`
	Events  []MoveEventView `json:"events"`
	// AuditEnabled is false when no database is configured.
	AuditEnabled bool `json:"auditEnabled"`
}

type Service struct {
	cfg     config.Config
	git     gitService
	moves   moveLog
	ledger  GestureLedger
	browser measurer
	log     logrus.FieldLogger
	applier reorder.Applier

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func New(cfg config.Config, gitService *gitrepo.Service, gestures GestureLedger, logger logrus.FieldLogger) *Service {
	return newService(cfg, gitService, gestures, logger)
}

func newService(cfg config.Config, git gitService, gestures GestureLedger, logger logrus.FieldLogger) *Service {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	if gestures == nil {
		gestures = ledger.NewMemoryLedger()
	}
	return &Service{
		cfg:    cfg,
		git:    git,
		ledger: gestures,
		log:    logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// WithMoveLog enables the move audit log.
func (s *Service) WithMoveLog(moves moveLog) *Service {
	s.moves = moves
	return s
}

// WithMeasurer lets gesture replays measure documents in a browser.
func (s *Service) WithMeasurer(m measurer) *Service {
	s.browser = m
	return s
}

// Ready reports the health of each configured backend.
func (s *Service) Ready(ctx context.Context) map[string]error {
	checks := map[string]error{
		"ledger": s.ledger.Ping(ctx),
	}
	if s.moves != nil {
		checks["database"] = s.moves.Ping(ctx)
	}
	return checks
}

func (s *Service) PutDocument(ctx context.Context, documentID string, input PutDocumentInput, actor string) (Outline, error) {
	if err := validateDocumentID(documentID); err != nil {
		return Outline{}, err
	}
	if _, err := parseDocument(input.Doc); err != nil {
		return Outline{}, err
	}
	actor = actorOrDefault(actor)
	content := gitrepo.Content{Title: strings.TrimSpace(input.Title), Doc: input.Doc}

	lock := s.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	created, err := s.git.EnsureDocumentRepo(documentID, content, actor)
	if err != nil {
		return Outline{}, fmt.Errorf("ensure document repo: %w", err)
	}
	if !created {
		head, _, err := s.git.GetHeadContent(documentID)
		if err != nil {
			return Outline{}, err
		}
		if gitrepo.HasChanges(head, content) {
			if _, err := s.git.CommitContent(documentID, content, actor, "Replace document content"); err != nil {
				return Outline{}, fmt.Errorf("commit document content: %w", err)
			}
		}
	}
	s.log.WithFields(logrus.Fields{"document": documentID, "created": created, "actor": actor}).Info("document stored")
	return s.outlineLocked(documentID)
}

func (s *Service) Outline(ctx context.Context, documentID string) (Outline, error) {
	if err := validateDocumentID(documentID); err != nil {
		return Outline{}, err
	}
	lock := s.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()
	return s.outlineLocked(documentID)
}

func (s *Service) outlineLocked(documentID string) (Outline, error) {
	content, head, err := s.git.GetHeadContent(documentID)
	if err != nil {
		return Outline{}, err
	}
	doc, err := parseDocument(content.Doc)
	if err != nil {
		return Outline{}, err
	}
	return buildOutline(documentID, content.Title, head, doc), nil
}

// ApplyMove applies a move computed by the client's own drag session.
func (s *Service) ApplyMove(ctx context.Context, documentID string, req MoveRequest, actor string) (MoveResponse, error) {
	if err := validateDocumentID(documentID); err != nil {
		return MoveResponse{}, err
	}
	gestureID := gestureOrNew(req.GestureID)
	if prior, duplicate, err := s.claim(ctx, documentID, gestureID); err != nil || duplicate {
		return prior.MoveResponse, err
	}

	lock := s.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	content, _, doc, err := s.loadHead(documentID)
	if err != nil {
		s.release(ctx, documentID, gestureID)
		return MoveResponse{}, err
	}
	result, err := s.applier.Apply(doc, req.Move)
	if err != nil {
		s.release(ctx, documentID, gestureID)
		s.logRejected(documentID, gestureID, req.Move, err)
		return MoveResponse{}, err
	}

	resp, err := s.finishMove(ctx, documentID, gestureID, actorOrDefault(actor), content, doc, result)
	if err != nil {
		s.release(ctx, documentID, gestureID)
		return MoveResponse{}, err
	}
	s.complete(ctx, documentID, gestureID, GestureResponse{MoveResponse: resp})
	return resp, nil
}

// ReplayGesture runs a recorded gesture through a fresh drag session over
// the head document and persists the move it commits, if any.
func (s *Service) ReplayGesture(ctx context.Context, documentID string, req GestureRequest, actor string) (GestureResponse, error) {
	if err := validateDocumentID(documentID); err != nil {
		return GestureResponse{}, err
	}
	if len(req.Events) == 0 {
		return GestureResponse{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "events are required", nil)
	}
	gestureID := gestureOrNew(req.GestureID)
	if prior, duplicate, err := s.claim(ctx, documentID, gestureID); err != nil || duplicate {
		return prior, err
	}

	lock := s.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	content, _, doc, err := s.loadHead(documentID)
	if err != nil {
		s.release(ctx, documentID, gestureID)
		return GestureResponse{}, err
	}

	logger := s.log.WithFields(logrus.Fields{"document": documentID, "gesture": gestureID})
	var committed *dragsession.Commit
	// recorded events carry no timing, so a pending hide never elapses
	// mid-replay
	session := dragsession.New(dragsession.Options{
		Tree:      doc,
		Layout:    s.layoutFor(ctx, doc, req.Snapshot, logger),
		HitTest:   s.cfg.HitTest,
		HideDelay: s.cfg.HideDelay,
		Logger:    logger,
		OnCommit: func(c dragsession.Commit) {
			if committed == nil {
				committed = &c
			}
		},
	})
	outcome, err := session.Replay(req.Events)
	if err != nil {
		s.release(ctx, documentID, gestureID)
		return GestureResponse{}, domainError(http.StatusBadRequest, "INVALID_EVENT", err.Error(), nil)
	}
	if outcome.Err != nil {
		s.release(ctx, documentID, gestureID)
		if outcome.Move != nil {
			s.logRejected(documentID, gestureID, *outcome.Move, outcome.Err)
		}
		return GestureResponse{}, outcome.Err
	}

	resp := GestureResponse{
		MoveResponse: MoveResponse{GestureID: gestureID, Result: outcome.Result},
		Reason:       outcome.Reason,
		Move:         outcome.Move,
	}
	// the tree has already been mutated once a drop commits
	if committed != nil {
		moved, err := s.finishMove(ctx, documentID, gestureID, actorOrDefault(actor), content, doc, committed.Result)
		if err != nil {
			s.release(ctx, documentID, gestureID)
			return GestureResponse{}, err
		}
		resp.MoveResponse = moved
		resp.Reason = ""
		resp.Move = &committed.Move
	}
	s.complete(ctx, documentID, gestureID, resp)
	return resp, nil
}

func (s *Service) History(ctx context.Context, documentID string, limit int) (History, error) {
	if err := validateDocumentID(documentID); err != nil {
		return History{}, err
	}
	commits, err := s.git.History(documentID, limit)
	if err != nil {
		return History{}, err
	}
	out := History{
		Commits: make([]CommitView, 0, len(commits)),
		Events:  make([]MoveEventView, 0),
	}
	for _, c := range commits {
		out.Commits = append(out.Commits, toCommitView(c))
	}
	if s.moves == nil {
		return out, nil
	}
	out.AuditEnabled = true
	events, err := s.moves.ListMoveEvents(ctx, documentID, limit)
	if err != nil {
		return History{}, fmt.Errorf("list move events: %w", err)
	}
	for _, e := range events {
		out.Events = append(out.Events, MoveEventView{
			ID:             e.ID,
			GestureID:      e.GestureID,
			Depth:          e.Depth,
			ParentPosition: e.ParentPosition,
			FromIndex:      e.FromIndex,
			ToIndex:        e.ToIndex,
			SiblingCount:   e.SiblingCount,
			CommitHash:     e.CommitHash,
			Actor:          e.Actor,
			CreatedAt:      e.CreatedAt,
		})
	}
	return out, nil
}

// finishMove commits a changed document and records the audit event. The
// caller holds the document lock.
func (s *Service) finishMove(ctx context.Context, documentID, gestureID, actor string, content gitrepo.Content, doc *document.Document, result reorder.Result) (MoveResponse, error) {
	resp := MoveResponse{GestureID: gestureID, Changed: result.Changed, Result: result}
	if !result.Changed {
		return resp, nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return MoveResponse{}, fmt.Errorf("encode document: %w", err)
	}
	content.Doc = raw
	commit, err := s.git.CommitContent(documentID, content, actor, moveMessage(result))
	if err != nil {
		return MoveResponse{}, fmt.Errorf("commit move: %w", err)
	}
	view := toCommitView(commit)
	resp.Commit = &view

	logger := s.log.WithFields(logrus.Fields{
		"document": documentID,
		"gesture":  gestureID,
		"commit":   commit.Hash,
		"depth":    result.Depth,
		"from":     result.From,
		"to":       result.To,
	})
	if s.moves != nil {
		_, err := s.moves.InsertMoveEvent(ctx, store.MoveEvent{
			DocumentID:     documentID,
			GestureID:      gestureID,
			Depth:          result.Depth,
			ParentPosition: result.Parent,
			FromIndex:      result.From,
			ToIndex:        result.To,
			SiblingCount:   result.Count,
			CommitHash:     commit.Hash,
			Actor:          actor,
		})
		if err != nil {
			// the commit is the source of truth; a missing audit row is not fatal
			logger.WithError(err).Warn("record move event failed")
		}
	}
	logger.Info("move committed")

	outline := buildOutline(documentID, content.Title, commit, doc)
	resp.Outline = &outline
	return resp, nil
}

func (s *Service) layoutFor(ctx context.Context, doc *document.Document, snapshot *layout.Snapshot, logger logrus.FieldLogger) layout.Layout {
	if snapshot != nil {
		return snapshot
	}
	if s.cfg.Layout == config.LayoutBrowser && s.browser != nil {
		measured, err := s.browser.Measure(ctx, doc)
		if err == nil {
			return measured
		}
		logger.WithError(err).Warn("browser measurement failed; using stacked layout")
	}
	return layout.Stack(doc, layout.DefaultMetrics())
}

func (s *Service) loadHead(documentID string) (gitrepo.Content, store.CommitInfo, *document.Document, error) {
	content, head, err := s.git.GetHeadContent(documentID)
	if err != nil {
		return gitrepo.Content{}, store.CommitInfo{}, nil, err
	}
	doc, err := parseDocument(content.Doc)
	if err != nil {
		return gitrepo.Content{}, store.CommitInfo{}, nil, err
	}
	return content, head, doc, nil
}

// claim reserves a gesture. For a gesture seen before it returns the stored
// response marked as a duplicate.
func (s *Service) claim(ctx context.Context, documentID, gestureID string) (GestureResponse, bool, error) {
	ok, err := s.ledger.Claim(ctx, documentID, gestureID, s.cfg.GestureTTL)
	if err != nil {
		return GestureResponse{}, false, fmt.Errorf("claim gesture: %w", err)
	}
	if ok {
		return GestureResponse{}, false, nil
	}

	prior := GestureResponse{MoveResponse: MoveResponse{GestureID: gestureID}}
	entry, found, err := s.ledger.Lookup(ctx, documentID, gestureID)
	if err != nil {
		return GestureResponse{}, false, fmt.Errorf("lookup gesture: %w", err)
	}
	if found && !entry.Pending {
		if err := json.Unmarshal(entry.Payload, &prior); err != nil {
			s.log.WithError(err).WithField("gesture", gestureID).Warn("decode stored gesture outcome")
		}
	}
	prior.Duplicate = true
	s.log.WithFields(logrus.Fields{"document": documentID, "gesture": gestureID, "pending": entry.Pending}).Debug("duplicate gesture ignored")
	return prior, true, nil
}

// complete stores the outcome, minus the outline, for later duplicates.
func (s *Service) complete(ctx context.Context, documentID, gestureID string, resp GestureResponse) {
	stored := resp
	stored.Outline = nil
	payload, err := json.Marshal(stored)
	if err == nil {
		err = s.ledger.Complete(ctx, documentID, gestureID, payload, s.cfg.GestureTTL)
	}
	if err != nil {
		s.log.WithError(err).WithField("gesture", gestureID).Warn("record gesture outcome failed")
	}
}

func (s *Service) release(ctx context.Context, documentID, gestureID string) {
	if err := s.ledger.Release(ctx, documentID, gestureID); err != nil {
		s.log.WithError(err).WithField("gesture", gestureID).Warn("release gesture failed")
	}
}

func (s *Service) logRejected(documentID, gestureID string, mv reorder.Move, err error) {
	fields := logrus.Fields{
		"document": documentID,
		"gesture":  gestureID,
		"depth":    mv.Source.Depth,
	}
	var structural *reorder.StructuralError
	if errors.As(err, &structural) {
		fields["code"] = structural.Code
	}
	s.log.WithFields(fields).WithError(err).Debug("move rejected")
}

func (s *Service) documentLock(documentID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[documentID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[documentID] = lock
	return lock
}

func buildOutline(documentID, title string, head store.CommitInfo, doc *document.Document) Outline {
	out := Outline{
		DocumentID:  documentID,
		Title:       title,
		Head:        toCommitView(head),
		ContentSize: doc.ContentSize(),
		Blocks:      make([]OutlineBlock, 0),
	}
	for _, b := range doc.Blocks() {
		block := OutlineBlock{
			Position: b.Position,
			Size:     b.Size,
			Index:    b.Index,
			Kind:     b.Kind.String(),
			Type:     b.Type,
			NodeID:   b.NodeID,
		}
		if b.Kind == document.KindContainer {
			// a malformed list is still outlined as a block
			items, _ := doc.ItemsOf(b)
			for _, it := range items {
				block.Items = append(block.Items, OutlineItem{
					Position: it.Position,
					Size:     it.Size,
					Index:    it.Index,
					Type:     it.Type,
					NodeID:   it.NodeID,
				})
			}
		}
		out.Blocks = append(out.Blocks, block)
	}
	return out
}

func moveMessage(result reorder.Result) string {
	if result.Depth == 1 {
		return fmt.Sprintf("Move block %d to %d", result.From, result.To)
	}
	return fmt.Sprintf("Move list item %d to %d in list at %d", result.From, result.To, result.Parent)
}

func parseDocument(raw json.RawMessage) (*document.Document, error) {
	if len(raw) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "INVALID_DOCUMENT", "doc is required", nil)
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "INVALID_DOCUMENT", err.Error(), nil)
	}
	return doc, nil
}

func validateDocumentID(documentID string) error {
	if !documentIDPattern.MatchString(documentID) {
		return domainError(http.StatusBadRequest, "INVALID_DOCUMENT_ID", "Invalid document id", nil)
	}
	return nil
}

func toCommitView(c store.CommitInfo) CommitView {
	return CommitView{Hash: c.Hash, Message: c.Message, Author: c.Author, CreatedAt: c.CreatedAt}
}

func actorOrDefault(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return defaultActor
	}
	return actor
}

func gestureOrNew(gestureID string) string {
	gestureID = strings.TrimSpace(gestureID)
	if gestureID == "" {
		return util.NewID("gesture")
	}
	return gestureID
}
