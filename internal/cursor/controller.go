package cursor

import (
	"fmt"
	"math"

	"github.com/ajmal017/piker/internal/render"

	"github.com/sirupsen/logrus"
)

// ContentsRenderer displays OHLCV text for a bar on a panel. It is a
// collaborator concern; the controller only requests refreshes.
type ContentsRenderer interface {
	UpdateContents(panelID string, barIndex int)
}

// Update is the synchronized crosshair state emitted to subscribers
// after every full refresh, i.e. only when the snapped index changed.
type Update struct {
	PanelID      string  `json:"panel_id"`
	SnappedIndex int     `json:"snapped_index"`
	X            float64 `json:"x"` // un-rounded data x
	Y            float64 `json:"y"`
}

// Controller tracks one active panel among N linked panels, maps
// pointer positions to data coordinates, snaps to the nearest bar
// index and fires synchronized updates across all panels only when
// the snapped index changes.
//
// All methods must be called from the session dispatch goroutine;
// upstream pointer events are coalesced by a Debouncer first.
type Controller struct {
	panels []*Panel
	byID   map[string]*Panel
	active *Panel

	lastSnapped int
	hasSnapped  bool

	digits   int
	contents ContentsRenderer
	notify   func(Update)

	// shared bottom-axis time label, positioned from the un-rounded x
	XLabel string

	logger *logrus.Entry
}

// NewController creates a controller with the given y-label precision
func NewController(digits int, logger *logrus.Logger) *Controller {
	return &Controller{
		byID:   make(map[string]*Panel),
		digits: digits,
		logger: logger.WithField("component", "cursor"),
	}
}

// SetContentsRenderer wires the collaborator that renders per-bar
// OHLCV contents labels
func (c *Controller) SetContentsRenderer(r ContentsRenderer) {
	c.contents = r
}

// SetNotifier subscribes an explicit callback for synchronized
// refreshes. At most one subscriber; nil unsubscribes.
func (c *Controller) SetNotifier(fn func(Update)) {
	c.notify = fn
}

// RegisterPanel adds a panel to the synchronized group
func (c *Controller) RegisterPanel(p *Panel) {
	if _, exists := c.byID[p.ID]; exists {
		c.logger.WithField("panel", p.ID).Warn("Panel already registered")
		return
	}
	c.panels = append(c.panels, p)
	c.byID[p.ID] = p
}

// Panel returns a registered panel by id
func (c *Controller) Panel(id string) (*Panel, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// PanelIDs returns the registered panel ids in registration order
func (c *Controller) PanelIDs() []string {
	ids := make([]string, len(c.panels))
	for i, p := range c.panels {
		ids[i] = p.ID
	}
	return ids
}

// ActivePanelID returns the active panel's id, or "" when none
func (c *Controller) ActivePanelID() string {
	if c.active == nil {
		return ""
	}
	return c.active.ID
}

// PointerEnter activates the given panel and shows its horizontal
// line and y-axis label. An enter for an unknown panel is ignored.
func (c *Controller) PointerEnter(panelID string) {
	p, ok := c.byID[panelID]
	if !ok {
		c.logger.WithField("panel", panelID).Debug("Enter for unregistered panel ignored")
		return
	}

	c.active = p
	p.HLineVisible = true
	p.YLabelVisible = true
}

// PointerLeave deactivates the panel and hides its horizontal line
// and y-axis label. Only the currently active panel may deactivate;
// a leave from any other panel is a stale event and is ignored.
func (c *Controller) PointerLeave(panelID string) {
	if c.active == nil || c.active.ID != panelID {
		c.logger.WithField("panel", panelID).Debug("Stale leave ignored")
		return
	}

	c.active.HLineVisible = false
	c.active.YLabelVisible = false
	c.active = nil
}

// PointerMove handles a (debounced) pointer position in the active
// panel's screen coordinates. The horizontal line and y-axis label
// track every call; the synchronized cross-panel refresh runs only
// when the snapped bar index changes.
func (c *Controller) PointerMove(sx, sy float64) {
	if c.active == nil {
		return
	}

	x, y := c.active.Transform.ToData(sx, sy)

	c.active.HLineY = y
	c.active.YLabel = fmt.Sprintf("%.*f", c.digits, y)

	// Snap to nearest integer index since bars are centered on
	// integers; skipping unchanged indices bounds redraw cost to
	// index transitions rather than raw pointer motion.
	snapped := int(math.Round(x))
	if c.hasSnapped && snapped == c.lastSnapped {
		return
	}

	for _, p := range c.panels {
		p.VLineX = float64(snapped)

		if c.contents != nil {
			c.contents.UpdateContents(p.ID, snapped)
		}

		for _, dot := range p.Dots {
			dot.Index = snapped
		}
	}

	c.XLabel = fmt.Sprintf("%.*f", c.digits, x)

	c.lastSnapped = snapped
	c.hasSnapped = true

	if c.notify != nil {
		c.notify(Update{
			PanelID:      c.active.ID,
			SnappedIndex: snapped,
			X:            x,
			Y:            y,
		})
	}
}

// BoundingBox returns the active panel's layout box, or the first
// registered panel's when none is active
func (c *Controller) BoundingBox() render.Rect {
	if c.active != nil {
		return c.active.Bounds
	}
	if len(c.panels) > 0 {
		return c.panels[0].Bounds
	}
	return render.Rect{}
}
