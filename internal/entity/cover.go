package entity

import (
	"context"

	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// CoverSnapshot is the serialisable state of a cover.
type CoverSnapshot struct {
	Index    int    `json:"index"`
	Name     string `json:"name,omitempty"`
	Position *int   `json:"position,omitempty"`
	Lamella  *int   `json:"lamella,omitempty"`
	Goal     *int   `json:"goal,omitempty"`
	Moving   string `json:"moving,omitempty"`
}

// Cover is one motorised blind. Position and lamella are 0 (closed) to 100
// (open).
type Cover struct {
	base
	cmd Commander

	position *int
	lamella  *int
	goal     *int
	motion   *notify.MotorMotion
}

// NewCover creates the view of blind index.
func NewCover(cmd Commander, index int, name string) *Cover {
	return &Cover{base: base{index: index, name: name}, cmd: cmd}
}

func (c *Cover) Kind() string { return KindCover }

// ApplyState takes position, lamella and movement from the state blind.
// The state carries no goal, so a goal from an earlier push is dropped.
func (c *Cover) ApplyState(s *dingz.State) {
	sb := s.Blind(c.index)
	if sb == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if sb.Position != nil {
		c.position = copyInt(sb.Position)
	}
	if sb.Lamella != nil {
		c.lamella = copyInt(sb.Lamella)
	}
	if sb.Moving != nil {
		c.motion = stateMotion(*sb.Moving)
	}
	c.goal = nil
}

// stateMotion maps the state payload's moving field onto the motor phases
// used by MQTT; unknown values are nil.
func stateMotion(moving string) *notify.MotorMotion {
	var m notify.MotorMotion
	switch moving {
	case "stop":
		m = notify.MotorStopped
	case "up":
		m = notify.MotorOpening
	case "down":
		m = notify.MotorClosing
	default:
		return nil
	}
	return &m
}

// HandleNotification applies a MotorState for this index.
func (c *Cover) HandleNotification(n notify.Notification) {
	ms, ok := n.(notify.MotorState)
	if !ok || ms.Index != c.index {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	pos, lam, motion := ms.Position, ms.Lamella, ms.Motion
	c.position = &pos
	c.lamella = &lam
	c.goal = copyInt(ms.Goal)
	c.motion = &motion
}

// Motion returns the motor phase; ok is false while it is unknown.
func (c *Cover) Motion() (m notify.MotorMotion, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.motion == nil {
		return 0, false
	}
	return *c.motion, true
}

// IsClosed reports whether the cover is fully closed; ok is false while the
// position is unknown.
func (c *Cover) IsClosed() (closed, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.position == nil {
		return false, false
	}
	return *c.position == 0, true
}

func (c *Cover) Snapshot() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := CoverSnapshot{
		Index:    c.index,
		Name:     c.name,
		Position: copyInt(c.position),
		Lamella:  copyInt(c.lamella),
		Goal:     copyInt(c.goal),
	}
	if c.motion != nil {
		snap.Moving = c.motion.String()
	}
	return snap
}

// Open raises the blind.
func (c *Cover) Open(ctx context.Context) error { return c.move(ctx, dingz.ShadeUp) }

// Close lowers the blind.
func (c *Cover) Close(ctx context.Context) error { return c.move(ctx, dingz.ShadeDown) }

// Stop halts the motor.
func (c *Cover) Stop(ctx context.Context) error { return c.move(ctx, dingz.ShadeStop) }

// SetPosition moves to position and/or lamella; a nil argument is left as
// is.
func (c *Cover) SetPosition(ctx context.Context, position, lamella *int) error {
	if err := c.cmd.Client().SetShadePosition(ctx, c.index, position, lamella); err != nil {
		return err
	}
	settle(ctx, c.cmd)
	return nil
}

func (c *Cover) move(ctx context.Context, action dingz.ShadeAction) error {
	if err := c.cmd.Client().SetShade(ctx, c.index, action); err != nil {
		return err
	}
	settle(ctx, c.cmd)
	return nil
}
