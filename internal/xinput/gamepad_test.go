package xinput

import (
	"testing"

	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/pkg/bits"
	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	type testCase struct {
		name    string
		gamepad Gamepad
		ids     []uint8
	}
	tcs := []testCase{
		{name: "idle", gamepad: Gamepad{}, ids: []uint8{}},
		{
			name:    "dpad up and a",
			gamepad: Gamepad{Buttons: ButtonDPadUp | ButtonA},
			ids:     []uint8{device.PadDPadUp, device.PadA},
		},
		{
			name:    "left stick diagonal",
			gamepad: Gamepad{ThumbLX: 20000, ThumbLY: 20000},
			ids:     []uint8{device.PadLSUp, device.PadLSRight},
		},
		{
			name:    "right stick down left",
			gamepad: Gamepad{ThumbRX: -9000, ThumbRY: -32768},
			ids:     []uint8{device.PadRSDown, device.PadRSLeft},
		},
		{
			name:    "inside deadzone",
			gamepad: Gamepad{ThumbLX: 7849, ThumbLY: -7849, ThumbRX: 8000},
			ids:     []uint8{},
		},
		{
			name:    "triggers",
			gamepad: Gamepad{LeftTrigger: 30, RightTrigger: 31},
			ids:     []uint8{device.PadRT},
		},
		{
			name:    "all buttons",
			gamepad: Gamepad{Buttons: 0xF3FF},
			ids:     []uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13},
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			set, ids := Extract(tc.gamepad)
			assert.Equal(t, tc.ids, ids)
			assert.Equal(t, bits.FromIDs(tc.ids...), set)
		})
	}
}
