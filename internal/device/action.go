package device

import (
	"fmt"
	"strings"
	"time"
)

type ActionKind uint8

const (
	ActionKey ActionKind = iota + 1
	ActionMouse
	ActionMouseMove
	ActionMouseScroll
	ActionMultiple
	ActionSequential
)

// OutputAction is the effect a trigger produces. Actions of Multiple and Sequential kinds share
// their list between copies; it is never modified after construction.
type OutputAction struct {
	Kind      ActionKind
	Key       uint16
	Button    MouseButton
	Direction Direction
	Speed     int32
	Actions   []OutputAction
	Interval  time.Duration
}

func KeyAction(vk uint16) OutputAction {
	return OutputAction{Kind: ActionKey, Key: vk}
}

func MouseAction(button MouseButton) OutputAction {
	return OutputAction{Kind: ActionMouse, Button: button}
}

func MoveAction(direction Direction, speed int32) OutputAction {
	return OutputAction{Kind: ActionMouseMove, Direction: direction, Speed: speed}
}

func ScrollAction(direction Direction, speed int32) OutputAction {
	return OutputAction{Kind: ActionMouseScroll, Direction: direction, Speed: speed}
}

// MultipleActions fires all actions simultaneously.
func MultipleActions(actions ...OutputAction) OutputAction {
	return OutputAction{Kind: ActionMultiple, Actions: actions}
}

// SequentialActions fires actions in order, interval apart.
func SequentialActions(interval time.Duration, actions ...OutputAction) OutputAction {
	return OutputAction{Kind: ActionSequential, Actions: actions, Interval: interval}
}

// WithSpeed substitutes the speed of mouse move and scroll actions. Other kinds are returned as-is.
func (a OutputAction) WithSpeed(speed int32) OutputAction {
	if a.Kind == ActionMouseMove || a.Kind == ActionMouseScroll {
		a.Speed = speed
	}
	return a
}

func (a OutputAction) IsZero() bool {
	return a.Kind == 0
}

func (a OutputAction) String() string {
	switch a.Kind {
	case ActionKey:
		return fmt.Sprintf("Key(0x%02x)", a.Key)
	case ActionMouse:
		return fmt.Sprintf("Mouse(%d)", a.Button)
	case ActionMouseMove:
		return fmt.Sprintf("Move(%s,%d)", a.Direction, a.Speed)
	case ActionMouseScroll:
		return fmt.Sprintf("Scroll(%s,%d)", a.Direction, a.Speed)
	case ActionMultiple, ActionSequential:
		parts := make([]string, len(a.Actions))
		for i, sub := range a.Actions {
			parts[i] = sub.String()
		}
		if a.Kind == ActionMultiple {
			return "Multiple(" + strings.Join(parts, ",") + ")"
		}
		return fmt.Sprintf("Sequential(%s;%s)", strings.Join(parts, ","), a.Interval)
	}
	return "None"
}

// InputMappingInfo is published once and replaced wholesale on reload.
type InputMappingInfo struct {
	Target        OutputAction
	Interval      time.Duration
	EventDuration time.Duration
	Turbo         bool
	// IsSequence marks non-terminal sequence steps. They only feed the sequence matcher.
	IsSequence bool
}
