// Package ownership keeps one physical device from being driven by two input backends.
package ownership

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

type DeviceID struct {
	VendorID  uint16
	ProductID uint16
}

func (id DeviceID) String() string {
	return fmt.Sprintf("%04x:%04x", id.VendorID, id.ProductID)
}

type claim struct {
	source string
	count  int
}

// Arbiter grants a device to the first source that claims it. The same source may claim a
// device several times (two identical pads); it is freed after as many releases.
type Arbiter struct {
	owners *xsync.MapOf[DeviceID, claim]
}

func NewArbiter() *Arbiter {
	return &Arbiter{
		owners: xsync.NewMapOf[DeviceID, claim](),
	}
}

func (a *Arbiter) ClaimDevice(id DeviceID, source string) bool {
	granted := false
	a.owners.Compute(id, func(c claim, loaded bool) (claim, bool) {
		switch {
		case !loaded:
			granted = true
			return claim{source: source, count: 1}, false
		case c.source == source:
			granted = true
			c.count++
			return c, false
		}
		return c, false
	})
	return granted
}

func (a *Arbiter) ReleaseDevice(id DeviceID) {
	a.owners.Compute(id, func(c claim, loaded bool) (claim, bool) {
		if !loaded {
			return c, true
		}
		c.count--
		return c, c.count <= 0
	})
}

func (a *Arbiter) Owner(id DeviceID) (string, bool) {
	c, ok := a.owners.Load(id)
	return c.source, ok
}
