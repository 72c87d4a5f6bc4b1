// Package keys resolves the free-form device and action names used in mapping configuration.
package keys

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/neuroplastio/neio-turbo/internal/device"
)

var ErrEmptyName = errors.New("empty name")

// ParseInputDevice resolves a trigger name into the device it identifies.
func ParseInputDevice(s string) (device.InputDevice, error) {
	expr, err := parse(s)
	if err != nil {
		return device.InputDevice{}, err
	}
	if expr.Controller != nil {
		return parseController(expr.Controller)
	}
	names := expr.Chord.Names
	if len(names) == 1 {
		return parseSingleInput(names[0])
	}
	vks := make([]uint16, len(names))
	for i, name := range names {
		vk, err := chordVK(name)
		if err != nil {
			return device.InputDevice{}, err
		}
		vks[i] = vk
	}
	return device.KeyCombo(vks...), nil
}

// ParseOutputAction resolves a target name. "Ctrl+C" yields simultaneous actions.
// Mouse move and scroll actions carry zero speed; the mapping substitutes its own.
func ParseOutputAction(s string) (device.OutputAction, error) {
	expr, err := parse(s)
	if err != nil {
		return device.OutputAction{}, err
	}
	if expr.Controller != nil {
		return device.OutputAction{}, fmt.Errorf("controller input %q cannot be used as an action", s)
	}
	actions := make([]device.OutputAction, len(expr.Chord.Names))
	for i, name := range expr.Chord.Names {
		action, err := parseSingleAction(name)
		if err != nil {
			return device.OutputAction{}, err
		}
		actions[i] = action
	}
	if len(actions) == 1 {
		return actions[0], nil
	}
	return device.MultipleActions(actions...), nil
}

func parse(s string) (*Expression, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyName
	}
	expr, err := ParseExpression(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", s, err)
	}
	return expr, nil
}

func parseController(c *ControllerExpression) (device.InputDevice, error) {
	t, err := parseType(c.Kind, c.Args)
	if err != nil {
		return device.InputDevice{}, err
	}
	if c.Target.Button != nil {
		id, err := strconv.ParseUint(*c.Target.Button, 10, 16)
		if err != nil {
			return device.InputDevice{}, fmt.Errorf("invalid button id %q: %w", *c.Target.Button, err)
		}
		return device.GenericDevice(t, uint16(id)), nil
	}
	ids := make([]uint8, len(c.Target.Buttons))
	for i, name := range c.Target.Buttons {
		id, ok := LookupPadID(name)
		if !ok {
			n, err := strconv.ParseUint(name, 10, 8)
			if err != nil || n >= 32 {
				return device.InputDevice{}, fmt.Errorf("unknown controller button %q", name)
			}
			id = uint8(n)
		}
		ids[i] = id
	}
	return device.XInputCombo(t, ids...), nil
}

func parseType(kind string, args []string) (device.DeviceType, error) {
	values := make([]uint16, len(args))
	for i, arg := range args {
		v, err := parseHex(arg)
		if err != nil {
			return device.DeviceType{}, fmt.Errorf("invalid %s argument %q: %w", kind, arg, err)
		}
		values[i] = v
	}
	switch kind {
	case "Gamepad", "Joystick":
		if len(values) != 1 {
			return device.DeviceType{}, fmt.Errorf("%s expects a vendor id", kind)
		}
		if kind == "Gamepad" {
			return device.Gamepad(values[0]), nil
		}
		return device.Joystick(values[0]), nil
	case "HID":
		if len(values) != 2 {
			return device.DeviceType{}, fmt.Errorf("HID expects usage page and usage")
		}
		return device.HIDType(values[0], values[1]), nil
	}
	return device.DeviceType{}, fmt.Errorf("unknown device type %q", kind)
}

func parseHex(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func parseSingleInput(name string) (device.InputDevice, error) {
	if button, ok := mouseByName[normalize(name)]; ok {
		return device.Mouse(button), nil
	}
	if dir, ok := prefixedDirection(name, "move"); ok {
		return device.MouseMove(dir), nil
	}
	vk, err := lookupVK(name)
	if err != nil {
		return device.InputDevice{}, err
	}
	return device.Keyboard(vk), nil
}

func parseSingleAction(name string) (device.OutputAction, error) {
	if button, ok := mouseByName[normalize(name)]; ok {
		return device.MouseAction(button), nil
	}
	if dir, ok := prefixedDirection(name, "move"); ok {
		return device.MoveAction(dir, 0), nil
	}
	if dir, ok := prefixedDirection(name, "scroll"); ok {
		return device.ScrollAction(dir, 0), nil
	}
	vk, err := lookupVK(name)
	if err != nil {
		return device.OutputAction{}, err
	}
	return device.KeyAction(vk), nil
}

func chordVK(name string) (uint16, error) {
	if button, ok := mouseByName[normalize(name)]; ok {
		return mouseVK[button], nil
	}
	return lookupVK(name)
}

func lookupVK(name string) (uint16, error) {
	if vk, ok := LookupVK(name); ok {
		return vk, nil
	}
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "0x") {
		vk, err := parseHex(lower)
		if err == nil && vk > 0 && vk < 0x100 {
			return vk, nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", name)
}

func prefixedDirection(name, prefix string) (device.Direction, bool) {
	n := normalize(name)
	if !strings.HasPrefix(n, prefix) {
		return 0, false
	}
	dir, ok := directionByName[strings.TrimPrefix(n, prefix)]
	return dir, ok
}

// FormatDevice is the inverse of ParseInputDevice.
func FormatDevice(d device.InputDevice) string {
	switch d.Kind() {
	case device.KindKeyboard:
		return VKName(d.VK())
	case device.KindMouse:
		return mouseDisplay[d.Button()]
	case device.KindMouseMove:
		return "Move" + d.Direction().String()
	case device.KindKeyCombo:
		names := make([]string, len(d.Keys()))
		for i, vk := range d.Keys() {
			names[i] = VKName(vk)
		}
		return strings.Join(names, "+")
	case device.KindXInputCombo:
		ids := d.ButtonIDs()
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = PadName(id)
		}
		return d.Type().String() + ":" + strings.Join(names, "+")
	case device.KindGeneric:
		return fmt.Sprintf("%s#%d", d.Type(), d.ButtonID())
	}
	return ""
}

func FormatAction(a device.OutputAction) string {
	switch a.Kind {
	case device.ActionKey:
		return VKName(a.Key)
	case device.ActionMouse:
		return mouseDisplay[a.Button]
	case device.ActionMouseMove:
		return "Move" + a.Direction.String()
	case device.ActionMouseScroll:
		return "Scroll" + a.Direction.String()
	case device.ActionMultiple, device.ActionSequential:
		sep := "+"
		if a.Kind == device.ActionSequential {
			sep = ", "
		}
		names := make([]string, len(a.Actions))
		for i, sub := range a.Actions {
			names[i] = FormatAction(sub)
		}
		return strings.Join(names, sep)
	}
	return ""
}
