// Package dragsession owns the lifecycle of one editor's drag gestures.
//
// A Session is created per editor instance. It is driven by the host's
// pointer and drag events, keeps the drag handle and drop indicator state,
// and hands a validated move to the reorder applier on drop.
package dragsession

import (
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"chronicle/reorder/internal/document"
	"chronicle/reorder/internal/hittest"
	"chronicle/reorder/internal/layout"
	"chronicle/reorder/internal/reorder"
)

// DefaultHideDelay debounces the handle when the pointer crosses gaps.
const DefaultHideDelay = 300 * time.Millisecond

// State is a gesture lifecycle state.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateDragging
	StateDropping
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateDragging:
		return "dragging"
	case StateDropping:
		return "dropping"
	case StateCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Tree is the live document: readable by the hit tester, writable by the
// applier.
type Tree interface {
	reorder.Tree
	hittest.Model
}

// Scheduler runs delayed callbacks. The returned func cancels the callback.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Handle is the drag handle's visual state.
type Handle struct {
	Visible bool              `json:"visible"`
	Top     float64           `json:"top"`
	Left    float64           `json:"left"`
	Node    document.DragInfo `json:"node"`
}

// Indicator is the drop indicator line.
type Indicator struct {
	Visible bool    `json:"visible"`
	Top     float64 `json:"top"`
	Left    float64 `json:"left"`
	Width   float64 `json:"width"`
}

// View is the derived, ephemeral UI state.
type View struct {
	State     string    `json:"state"`
	Handle    Handle    `json:"handle"`
	Indicator Indicator `json:"indicator"`
}

// Commit is handed to the host after a move changed the document.
type Commit struct {
	Move   reorder.Move
	Result reorder.Result
}

// Outcome reports how a drop resolved.
type Outcome struct {
	Committed bool           `json:"committed"`
	Move      *reorder.Move  `json:"move,omitempty"`
	Result    reorder.Result `json:"result"`
	Reason    string         `json:"reason,omitempty"`
	Err       error          `json:"-"`
}

// Options configures a Session.
type Options struct {
	Tree      Tree
	Layout    layout.Layout
	HitTest   hittest.Config
	HideDelay time.Duration
	Scheduler Scheduler
	Logger    logrus.FieldLogger
	// OnCommit runs once per committed move, after session state is cleared.
	OnCommit func(Commit)
}

// Session is one editor's drag state machine.
type Session struct {
	mu        sync.Mutex
	tree      Tree
	tester    *hittest.Tester
	applier   reorder.Applier
	hideDelay time.Duration
	scheduler Scheduler
	log       logrus.FieldLogger
	onCommit  func(Commit)

	state     State
	hover     *hittest.Hit
	handle    Handle
	hideGen   int
	stopHide  func() bool
	source    *document.DragInfo
	target    *hittest.Hit
	indicator Indicator
}

// New creates an idle session.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = timerScheduler{}
	}
	return &Session{
		tree:      opts.Tree,
		tester:    hittest.New(opts.Tree, opts.Layout, opts.HitTest),
		hideDelay: opts.HideDelay,
		scheduler: scheduler,
		log:       logger,
		onCommit:  opts.OnCommit,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns the handle and indicator state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{State: s.state.String(), Handle: s.handle, Indicator: s.indicator}
}

// UpdateLayout replaces the rendered frame used for hit testing.
func (s *Session) UpdateLayout(l layout.Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tester.SetLayout(l)
}

// PointerMove keeps the pickup handle positioned while idle.
func (s *Session) PointerMove(p document.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return
	}
	hit, ok := s.tester.Pickup(p)
	if !ok {
		s.scheduleHideLocked()
		return
	}
	s.showHandleLocked(hit)
}

// PointerDown arms a gesture when it lands on the visible handle. The node
// under the handle becomes the frozen source.
func (s *Session) PointerDown(p document.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle || !s.handle.Visible || s.hover == nil {
		return false
	}
	cfg := s.tester.Config()
	box := document.Rect{Top: s.handle.Top, Left: s.handle.Left, Width: cfg.HandleWidth, Height: cfg.HandleWidth}
	if !box.Contains(p) {
		return false
	}
	s.cancelHideLocked()
	source := s.hover.Info
	s.source = &source
	s.transitionLocked(StateArmed)
	return true
}

// DragStart moves an armed gesture into dragging.
func (s *Session) DragStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateArmed {
		return false
	}
	s.transitionLocked(StateDragging)
	return true
}

// DragOver resolves the live target. Missing or incompatible candidates keep
// the previous target.
func (s *Session) DragOver(p document.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDragging || s.source == nil {
		return
	}
	hit, ok := s.tester.Target(p, *s.source)
	if !ok {
		return
	}
	if !compatible(*s.source, hit.Info) {
		s.log.WithFields(logrus.Fields{
			"source_depth": s.source.Depth,
			"target_depth": hit.Info.Depth,
			"target":       hit.Info.Position,
		}).Debug("drag target discarded")
		return
	}
	s.target = &hit
	s.indicator = Indicator{
		Visible: true,
		Top:     hit.IndicatorTop(),
		Left:    hit.Rect.Left,
		Width:   hit.Rect.Width,
	}
}

// compatible restricts item sources to items of the same container.
func compatible(source, target document.DragInfo) bool {
	if source.Depth != 2 {
		return true
	}
	return target.Depth == 2 && target.ParentPosition == source.ParentPosition
}

// Drop commits the last accepted target. Source and target are cleared before
// the applier runs, so a repeated drop or a trailing drag end is a no-op.
func (s *Session) Drop() Outcome {
	outcome, commit := s.drop()
	if commit != nil && s.onCommit != nil {
		s.onCommit(*commit)
	}
	return outcome
}

func (s *Session) drop() (Outcome, *Commit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDragging {
		s.cancelLocked("drop outside a drag")
		return Outcome{Reason: "not dragging"}, nil
	}
	s.transitionLocked(StateDropping)

	source, target := s.source, s.target
	s.source, s.target = nil, nil
	s.indicator = Indicator{}

	if source == nil || target == nil {
		s.cancelLocked("no target")
		return Outcome{Reason: "no target"}, nil
	}
	if source.SameAddress(target.Info) {
		s.cancelLocked("same position")
		return Outcome{Reason: "same position"}, nil
	}

	mv := reorder.Move{Source: *source, Target: target.Info, InsertAfter: target.After}
	res, err := s.applier.Apply(s.tree, mv)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"source": mv.Source.Position,
			"target": mv.Target.Position,
			"depth":  mv.Source.Depth,
		}).WithError(err).Debug("move rejected")
		s.cancelLocked("structural error")
		return Outcome{Move: &mv, Reason: "structural error", Err: err}, nil
	}

	s.transitionLocked(StateIdle)
	if !res.Changed {
		return Outcome{Move: &mv, Result: res, Reason: "unchanged"}, nil
	}
	s.log.WithFields(logrus.Fields{
		"depth":  res.Depth,
		"parent": res.Parent,
		"from":   res.From,
		"to":     res.To,
	}).Info("move committed")
	return Outcome{Committed: true, Move: &mv, Result: res}, &Commit{Move: mv, Result: res}
}

// DragEnd cancels a gesture that ended without a drop.
func (s *Session) DragEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked("drag end")
}

// PointerLeave hides the handle when idle and cancels an active gesture.
func (s *Session) PointerLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		s.scheduleHideLocked()
		return
	}
	s.cancelLocked("pointer left")
}

// Reset cancels any gesture and hides the handle immediately.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked("reset")
	s.hideHandleLocked()
}

func (s *Session) cancelLocked(reason string) {
	if s.state != StateIdle {
		s.log.WithField("reason", reason).Debug("drag cancelled")
		s.transitionLocked(StateCancelled)
	}
	s.source = nil
	s.target = nil
	s.indicator = Indicator{}
	if s.state != StateIdle {
		s.transitionLocked(StateIdle)
	}
}

func (s *Session) transitionLocked(next State) {
	s.log.WithFields(logrus.Fields{"from": s.state.String(), "to": next.String()}).Debug("drag transition")
	s.state = next
}

func (s *Session) showHandleLocked(hit hittest.Hit) {
	s.cancelHideLocked()
	s.hover = &hit
	s.handle = Handle{
		Visible: true,
		Top:     hit.Rect.Top,
		Left:    s.tester.HandleLeft(hit),
		Node:    hit.Info,
	}
}

func (s *Session) scheduleHideLocked() {
	if !s.handle.Visible {
		return
	}
	if s.hideDelay <= 0 {
		s.hideHandleLocked()
		return
	}
	if s.stopHide != nil {
		return
	}
	gen := s.hideGen
	s.stopHide = s.scheduler.AfterFunc(s.hideDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.hideGen != gen || s.state != StateIdle {
			return
		}
		s.hideHandleLocked()
	})
}

func (s *Session) cancelHideLocked() {
	s.hideGen++
	if s.stopHide != nil {
		s.stopHide()
		s.stopHide = nil
	}
}

func (s *Session) hideHandleLocked() {
	s.cancelHideLocked()
	s.hover = nil
	s.handle = Handle{}
}
