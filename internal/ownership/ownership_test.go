package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArbiter(t *testing.T) {
	a := NewArbiter()
	pad := DeviceID{VendorID: 0x045e, ProductID: 0x028e}

	assert.True(t, a.ClaimDevice(pad, "xinput"))
	assert.False(t, a.ClaimDevice(pad, "hid"))
	assert.True(t, a.ClaimDevice(pad, "xinput"), "second identical pad")

	a.ReleaseDevice(pad)
	owner, ok := a.Owner(pad)
	assert.True(t, ok)
	assert.Equal(t, "xinput", owner)

	a.ReleaseDevice(pad)
	_, ok = a.Owner(pad)
	assert.False(t, ok)
	assert.True(t, a.ClaimDevice(pad, "hid"))

	a.ReleaseDevice(DeviceID{VendorID: 1})
	_, ok = a.Owner(DeviceID{VendorID: 1})
	assert.False(t, ok)
	assert.Equal(t, "045e:028e", pad.String())
}
